package rpc

import (
	"log"
	"testing"

	"minebridge.ai/internal/area"
	"minebridge.ai/internal/supervisor"
)

type recordedEvent struct {
	kind    string
	payload map[string]any
}

type fakeSink struct {
	events []recordedEvent
}

func (s *fakeSink) Append(kind string, payload map[string]any) error {
	s.events = append(s.events, recordedEvent{kind, payload})
	return nil
}

func TestNotifierJournalsBeforeBind(t *testing.T) {
	sink := &fakeSink{}
	n := NewNotifier(log.New(testWriter{}, "", 0), sink)

	n.Startup()
	n.ServerStatus(supervisor.StatusEvent{Type: "connection", Status: "connected", Message: "connected to game server"})
	n.ToolProgress("tok", area.Progress{Percent: 50, Completed: 2, Total: 4}, area.StatusInProgress, "")

	if len(sink.events) != 3 {
		t.Fatalf("events: %d", len(sink.events))
	}
	if sink.events[0].kind != "server/status" || sink.events[0].payload["type"] != "startup" {
		t.Fatalf("startup: %+v", sink.events[0])
	}
	if sink.events[1].payload["status"] != "connected" {
		t.Fatalf("status: %+v", sink.events[1])
	}
	prog := sink.events[2]
	if prog.kind != "tool/progress" || prog.payload["token"] != "tok" || prog.payload["progress"] != 50.0 {
		t.Fatalf("progress: %+v", prog)
	}
	if _, ok := prog.payload["message"]; ok {
		t.Fatalf("empty message should be omitted")
	}
}

func TestTerminalErrorEventShape(t *testing.T) {
	sink := &fakeSink{}
	n := NewNotifier(log.New(testWriter{}, "", 0), sink)

	n.ServerStatus(supervisor.StatusEvent{Type: "error", Message: "giving up after 3 reconnect attempts"})

	if len(sink.events) != 1 {
		t.Fatalf("events: %d", len(sink.events))
	}
	ev := sink.events[0]
	if ev.payload["type"] != "error" {
		t.Fatalf("type: %+v", ev)
	}
	if _, ok := ev.payload["status"]; ok {
		t.Fatalf("error events carry no status field")
	}
}
