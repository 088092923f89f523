package rpc

import (
	"log"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"minebridge.ai/internal/area"
	"minebridge.ai/internal/supervisor"
)

// Notification methods pushed to all connected clients.
const (
	methodServerStatus = "server/status"
	methodToolProgress = "tool/progress"
)

// EventSink receives a copy of every notification; the journal writer
// implements it. May be nil.
type EventSink interface {
	Append(kind string, payload map[string]any) error
}

// Notifier fans server and job events out to MCP clients and the journal. It
// is constructed before the MCP server exists (the supervisor needs it at
// wiring time), so the server is attached later via Bind; events emitted
// before Bind only reach the journal.
type Notifier struct {
	log  *log.Logger
	sink EventSink

	mu  sync.Mutex
	srv *server.MCPServer
}

func NewNotifier(logger *log.Logger, sink EventSink) *Notifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Notifier{log: logger, sink: sink}
}

func (n *Notifier) Bind(s *server.MCPServer) {
	n.mu.Lock()
	n.srv = s
	n.mu.Unlock()
}

// Startup announces the process coming up.
func (n *Notifier) Startup() {
	n.emit(methodServerStatus, map[string]any{
		"type":   "startup",
		"status": "running",
	})
}

// ServerStatus forwards a supervisor transition. Matches the signature of
// supervisor.Config.Notify.
func (n *Notifier) ServerStatus(ev supervisor.StatusEvent) {
	payload := map[string]any{"type": ev.Type}
	if ev.Status != "" {
		payload["status"] = ev.Status
	}
	if ev.Message != "" {
		payload["message"] = ev.Message
	}
	n.emit(methodServerStatus, payload)
}

// ToolProgress forwards an area-job progress event. Matches
// area.ProgressNotifier.
func (n *Notifier) ToolProgress(token string, p area.Progress, status, message string) {
	payload := map[string]any{
		"token":    token,
		"progress": p.Percent,
		"status":   status,
	}
	if message != "" {
		payload["message"] = message
	}
	n.emit(methodToolProgress, payload)
}

func (n *Notifier) emit(method string, payload map[string]any) {
	n.mu.Lock()
	srv := n.srv
	n.mu.Unlock()

	if srv != nil {
		srv.SendNotificationToAllClients(method, payload)
	}
	if n.sink != nil {
		if err := n.sink.Append(method, payload); err != nil {
			n.log.Printf("journal %s: %v", method, err)
		}
	}
}
