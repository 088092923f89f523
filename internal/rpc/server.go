package rpc

import (
	"log"

	"github.com/mark3labs/mcp-go/server"

	"minebridge.ai/internal/area"
)

// Deps is everything the RPC surface needs at wiring time.
type Deps struct {
	Name    string
	Version string

	Source   ConnectionSource
	Engine   *area.Engine
	Notifier *Notifier
	Logger   *log.Logger
}

// NewServer builds the MCP server with the full tool and resource catalog
// registered, and binds the notifier to it.
func NewServer(d Deps) *server.MCPServer {
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	s := server.NewMCPServer(
		d.Name,
		d.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
	)

	registerTools(s, &tools{src: d.Source, engine: d.Engine, log: d.Logger})
	registerResources(s, &resources{src: d.Source, log: d.Logger})

	if d.Notifier != nil {
		d.Notifier.Bind(s)
	}
	return s
}
