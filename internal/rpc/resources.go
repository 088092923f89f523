package rpc

import (
	"context"
	"encoding/json"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"minebridge.ai/internal/agent"
	"minebridge.ai/internal/spatial"
)

// Resource URIs. Every read returns one application/json content block keyed
// by the requested URI.
const (
	URIPlayers   = "minecraft://players"
	URIPosition  = "minecraft://position"
	URIBlocks    = "minecraft://blocks/nearby"
	URIEntities  = "minecraft://entities/nearby"
	URIInventory = "minecraft://inventory"
	URIHealth    = "minecraft://health"
	URIWeather   = "minecraft://weather"
)

type resources struct {
	src ConnectionSource
	log *log.Logger
}

// readFunc produces the JSON payload for one resource.
type readFunc func(ctx context.Context, f agent.Facade) (any, error)

func registerResources(s *server.MCPServer, r *resources) {
	catalog := []struct {
		uri  string
		name string
		desc string
		read readFunc
	}{
		{URIPlayers, "Online players", "Players currently on the server.", r.players},
		{URIPosition, "Agent position", "The agent's position and heading.", r.position},
		{URIBlocks, "Nearby blocks", "Non-air blocks around the agent.", r.blocks},
		{URIEntities, "Nearby entities", "Entities around the agent.", r.entities},
		{URIInventory, "Inventory", "The agent's inventory contents.", r.inventory},
		{URIHealth, "Health", "Health, food, and a coarse status.", r.health},
		{URIWeather, "Weather", "Current weather state.", r.weather},
	}
	for _, entry := range catalog {
		res := mcp.NewResource(entry.uri, entry.name,
			mcp.WithResourceDescription(entry.desc),
			mcp.WithMIMEType("application/json"),
		)
		s.AddResource(res, r.wrap(entry.read))
	}
}

func (r *resources) wrap(read readFunc) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		f, err := r.src.Facade()
		if err != nil {
			return nil, err
		}
		v, err := read(ctx, f)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func (r *resources) players(ctx context.Context, f agent.Facade) (any, error) {
	players, err := f.Players(ctx)
	if err != nil {
		return nil, err
	}
	if players == nil {
		players = []agent.Player{}
	}
	return players, nil
}

func (r *resources) position(ctx context.Context, f agent.Facade) (any, error) {
	pos, err := f.Position(ctx)
	if err != nil {
		return nil, err
	}
	heading, err := f.Heading(ctx)
	if err != nil {
		return nil, err
	}
	return struct {
		Pos     spatial.Vec3 `json:"pos"`
		Heading float64      `json:"heading"`
	}{pos, heading}, nil
}

func (r *resources) blocks(ctx context.Context, f agent.Facade) (any, error) {
	blocks, err := f.NearbyBlocks(ctx, nearbyBlockRadius)
	if err != nil {
		return nil, err
	}
	if blocks == nil {
		blocks = []agent.BlockInfo{}
	}
	return blocks, nil
}

func (r *resources) entities(ctx context.Context, f agent.Facade) (any, error) {
	entities, err := f.FindEntities(ctx, "", defaultSearchDistance)
	if err != nil {
		return nil, err
	}
	if entities == nil {
		entities = []agent.Entity{}
	}
	return entities, nil
}

func (r *resources) inventory(ctx context.Context, f agent.Facade) (any, error) {
	items, err := f.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []agent.ItemStack{}
	}
	return items, nil
}

func (r *resources) health(ctx context.Context, f agent.Facade) (any, error) {
	return f.Health(ctx)
}

func (r *resources) weather(ctx context.Context, f agent.Facade) (any, error) {
	return f.Weather(ctx)
}
