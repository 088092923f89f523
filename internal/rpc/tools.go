// Package rpc is the request-handling surface: it registers the tool and
// resource catalog on an MCP server, validates every call against its JSON
// schema, dispatches to the live facade, and shapes results and errors.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"minebridge.ai/internal/agent"
	"minebridge.ai/internal/area"
	"minebridge.ai/internal/spatial"
)

// ConnectionSource hands out the live facade and disconnect subscriptions;
// the supervisor implements it.
type ConnectionSource interface {
	Facade() (agent.Facade, error)
	NotifyDisconnect() (<-chan struct{}, func())
}

const (
	defaultFollowDistance = 2.0
	defaultSearchDistance = 32
	nearbyBlockRadius     = 16
)

type tools struct {
	src    ConnectionSource
	engine *area.Engine
	log    *log.Logger
}

// toolFunc runs one validated call against a live facade.
type toolFunc func(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error)

func registerTools(s *server.MCPServer, t *tools) {
	handlers := map[string]toolFunc{
		"chat":               t.chat,
		"navigate":           t.navigate,
		"navigate_relative":  t.navigateRelative,
		"dig_block":          t.digBlock,
		"dig_block_relative": t.digBlockRelative,
		"dig_area":           t.digArea,
		"dig_area_relative":  t.digAreaRelative,
		"place_block":        t.placeBlock,
		"follow_player":      t.followPlayer,
		"attack_entity":      t.attackEntity,
		"inspect_block":      t.inspectBlock,
		"find_blocks":        t.findBlocks,
		"find_entities":      t.findEntities,
		"check_path":         t.checkPath,
		"craft_item":         t.craftItem,
		"smelt_item":         t.smeltItem,
		"equip_item":         t.equipItem,
		"deposit_item":       t.depositItem,
		"withdraw_item":      t.withdrawItem,
	}
	for _, name := range toolOrder {
		def := toolDefs[name]
		fn, ok := handlers[name]
		if !ok {
			panic("rpc: no handler for tool " + name)
		}
		tool := mcp.NewToolWithRawSchema(name, def.desc, json.RawMessage(def.schema))
		s.AddTool(tool, t.wrap(name, fn))
	}
}

// wrap is the validate -> acquire facade -> dispatch -> shape pipeline every
// tool call goes through. Structural failures (bad arguments, no connection)
// are protocol errors; domain failures come back as isError results.
func (t *tools) wrap(name string, fn toolFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if err := validateArgs(name, args); err != nil {
			t.log.Printf("tool %s rejected: %v", name, err)
			return nil, err
		}
		f, err := t.src.Facade()
		if err != nil {
			return nil, err
		}
		res, err := fn(ctx, f, args)
		if err != nil {
			return shapeErr(err)
		}
		return res, nil
	}
}

// shapeErr sorts a dispatch error into the response taxonomy.
func shapeErr(err error) (*mcp.CallToolResult, error) {
	var de *area.DisconnectedError
	if errors.As(err, &de) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", de.Error(), jsonText(de.Progress))), nil
	}
	var ae *agent.ActionError
	if errors.As(err, &ae) {
		return mcp.NewToolResultError(ae.Error()), nil
	}
	return nil, err
}

func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}

// Argument readers. The schema has already pinned the types, so a missing
// optional key is the only case left to handle.

func argNum(args map[string]any, key string, def float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return def
}

func argInt(args map[string]any, key string, def int) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return def
}

func argStr(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return def
}

func argVec(args map[string]any) spatial.Vec3 {
	return spatial.Vec3{X: argNum(args, "x", 0), Y: argNum(args, "y", 0), Z: argNum(args, "z", 0)}
}

func argOffset(args map[string]any, sx, sy, sz string) spatial.Offset {
	return spatial.Offset{DX: argNum(args, sx, 0), DY: argNum(args, sy, 0), DZ: argNum(args, sz, 0)}
}

// relFrame snapshots origin and heading once so both the caller's offsets
// resolve in the same frame.
func relFrame(ctx context.Context, f agent.Facade) (spatial.Vec3, float64, error) {
	origin, err := f.Position(ctx)
	if err != nil {
		return spatial.Vec3{}, 0, err
	}
	heading, err := f.Heading(ctx)
	if err != nil {
		return spatial.Vec3{}, 0, err
	}
	return origin, heading, nil
}

func (t *tools) chat(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	msg := argStr(args, "message", "")
	if err := f.Chat(ctx, msg); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText("message sent"), nil
}

func (t *tools) navigate(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	target := argVec(args)
	if err := f.NavigateTo(ctx, target); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("arrived at (%.1f, %.1f, %.1f)", target.X, target.Y, target.Z)), nil
}

func (t *tools) navigateRelative(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	origin, heading, err := relFrame(ctx, f)
	if err != nil {
		return nil, err
	}
	target := spatial.ToAbsolute(origin, heading, argOffset(args, "dx", "dy", "dz"))
	if err := f.NavigateTo(ctx, target); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("arrived at (%.1f, %.1f, %.1f)", target.X, target.Y, target.Z)), nil
}

func (t *tools) digBlock(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	pos := argVec(args).Floor()
	if err := f.DigBlock(ctx, pos); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("dug block at (%d, %d, %d)", pos.X, pos.Y, pos.Z)), nil
}

func (t *tools) digBlockRelative(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	origin, heading, err := relFrame(ctx, f)
	if err != nil {
		return nil, err
	}
	pos := spatial.ToAbsolute(origin, heading, argOffset(args, "dx", "dy", "dz")).Floor()
	if err := f.DigBlock(ctx, pos); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("dug block at (%d, %d, %d)", pos.X, pos.Y, pos.Z)), nil
}

func (t *tools) digArea(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	c1 := spatial.Vec3{X: argNum(args, "x1", 0), Y: argNum(args, "y1", 0), Z: argNum(args, "z1", 0)}.Floor()
	c2 := spatial.Vec3{X: argNum(args, "x2", 0), Y: argNum(args, "y2", 0), Z: argNum(args, "z2", 0)}.Floor()
	p, err := t.engine.DigArea(ctx, f, t.src, c1, c2, nil)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("dug %d blocks: %s", p.Total, jsonText(p))), nil
}

func (t *tools) digAreaRelative(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	off1 := argOffset(args, "dx1", "dy1", "dz1")
	off2 := argOffset(args, "dx2", "dy2", "dz2")
	p, err := t.engine.DigAreaRelative(ctx, f, t.src, off1, off2, nil)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("dug %d blocks: %s", p.Total, jsonText(p))), nil
}

func (t *tools) placeBlock(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	pos := argVec(args).Floor()
	block := argStr(args, "block", "")
	if err := f.PlaceBlock(ctx, pos, block); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("placed %s at (%d, %d, %d)", block, pos.X, pos.Y, pos.Z)), nil
}

func (t *tools) followPlayer(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	name := argStr(args, "name", "")
	distance := argNum(args, "distance", defaultFollowDistance)
	if err := f.FollowPlayer(ctx, name, distance); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("following %s at distance %.1f", name, distance)), nil
}

func (t *tools) attackEntity(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	name := argStr(args, "name", "")
	if err := f.AttackEntity(ctx, name); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("attacking %s", name)), nil
}

func (t *tools) inspectBlock(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	pos := argVec(args).Floor()
	block, err := f.BlockAt(ctx, pos)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(jsonText(block)), nil
}

func (t *tools) findBlocks(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	name := argStr(args, "name", "")
	maxDistance := argInt(args, "max_distance", defaultSearchDistance)
	count := argInt(args, "count", 1)
	positions, err := f.FindBlocks(ctx, name, maxDistance, count)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no %s found within %d blocks", name, maxDistance)), nil
	}
	return mcp.NewToolResultText(jsonText(positions)), nil
}

func (t *tools) findEntities(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	kind := argStr(args, "kind", "")
	maxDistance := argInt(args, "max_distance", defaultSearchDistance)
	entities, err := f.FindEntities(ctx, kind, maxDistance)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no %s found within %d blocks", kind, maxDistance)), nil
	}
	return mcp.NewToolResultText(jsonText(entities)), nil
}

func (t *tools) checkPath(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	report, err := f.CheckPath(ctx, argVec(args))
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(jsonText(report)), nil
}

func (t *tools) craftItem(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	item := argStr(args, "item", "")
	count := argInt(args, "count", 1)
	if err := f.CraftItem(ctx, item, count); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("crafted %d x %s", count, item)), nil
}

func (t *tools) smeltItem(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	item := argStr(args, "item", "")
	fuel := argStr(args, "fuel", "coal")
	count := argInt(args, "count", 1)
	if err := f.SmeltItem(ctx, item, fuel, count); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("smelted %d x %s", count, item)), nil
}

func (t *tools) equipItem(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	item := argStr(args, "item", "")
	destination := argStr(args, "destination", "hand")
	if err := f.EquipItem(ctx, item, destination); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("equipped %s to %s", item, destination)), nil
}

func (t *tools) depositItem(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	item := argStr(args, "item", "")
	count := argInt(args, "count", 1)
	if err := f.DepositItem(ctx, item, count); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("deposited %d x %s", count, item)), nil
}

func (t *tools) withdrawItem(ctx context.Context, f agent.Facade, args map[string]any) (*mcp.CallToolResult, error) {
	item := argStr(args, "item", "")
	count := argInt(args, "count", 1)
	if err := f.WithdrawItem(ctx, item, count); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("withdrew %d x %s", count, item)), nil
}
