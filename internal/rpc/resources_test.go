package rpc

import (
	"context"
	"encoding/json"
	"log"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"minebridge.ai/internal/agent"
)

func readResource(t *testing.T, r *resources, uri string, read readFunc) mcp.TextResourceContents {
	t.Helper()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	contents, err := r.wrap(read)(context.Background(), req)
	if err != nil {
		t.Fatalf("read %s: %v", uri, err)
	}
	if len(contents) != 1 {
		t.Fatalf("content blocks: %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content type %T", contents[0])
	}
	return tc
}

func TestHealthResource(t *testing.T) {
	r := &resources{src: &fakeSource{f: &fakeFacade{}}, log: log.New(testWriter{}, "", 0)}

	tc := readResource(t, r, URIHealth, r.health)
	if tc.URI != URIHealth || tc.MIMEType != "application/json" {
		t.Fatalf("envelope: %+v", tc)
	}
	var got agent.HealthStatus
	if err := json.Unmarshal([]byte(tc.Text), &got); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Status != agent.StatusHealthy || got.Health != 18 {
		t.Fatalf("health: %+v", got)
	}
}

func TestPositionResourceIncludesHeading(t *testing.T) {
	f := &fakeFacade{heading: 1.5}
	f.pos.X = 3
	r := &resources{src: &fakeSource{f: f}, log: log.New(testWriter{}, "", 0)}

	tc := readResource(t, r, URIPosition, r.position)
	var got struct {
		Pos     struct{ X, Y, Z float64 } `json:"pos"`
		Heading float64                   `json:"heading"`
	}
	if err := json.Unmarshal([]byte(tc.Text), &got); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Pos.X != 3 || got.Heading != 1.5 {
		t.Fatalf("position: %+v", got)
	}
}

func TestResourceWhenDisconnectedIsProtocolError(t *testing.T) {
	r := &resources{src: &fakeSource{err: agent.ErrNotConnected}, log: log.New(testWriter{}, "", 0)}

	req := mcp.ReadResourceRequest{}
	req.Params.URI = URIWeather
	if _, err := r.wrap(r.weather)(context.Background(), req); err != agent.ErrNotConnected {
		t.Fatalf("err = %v", err)
	}
}
