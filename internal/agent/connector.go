package agent

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"minebridge.ai/internal/gameproto"
)

// Connection is one live, ready-to-drive game session.
type Connection struct {
	Facade      Facade
	AgentID     string
	ResumeToken string
}

// Connector dials the game server and blocks until the agent has spawned.
// onDown fires exactly once when the connection later dies, whatever the
// cause (read error, kick, explicit close).
type Connector struct {
	URL          string
	Name         string
	ReadyTimeout time.Duration
	Logger       *log.Logger
}

func (c *Connector) Connect(ctx context.Context, resumeToken string, onDown func(reason string)) (*Connection, error) {
	readyTimeout := c.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = 10 * time.Second
	}

	ready := make(chan struct{}, 1)
	var downOnce sync.Once
	var kickMu sync.Mutex
	kickReason := ""

	client, err := gameproto.Dial(ctx, gameproto.Config{
		URL:         c.URL,
		AgentName:   c.Name,
		ResumeToken: resumeToken,
		Logger:      c.Logger,
		OnEvent: func(ev gameproto.Event) {
			switch ev.Kind {
			case gameproto.EventConnReady:
				select {
				case ready <- struct{}{}:
				default:
				}
			case gameproto.EventConnKicked:
				kickMu.Lock()
				kickReason = ev.Reason
				kickMu.Unlock()
			case gameproto.EventConnEnded:
				reason := ev.Reason
				kickMu.Lock()
				if kickReason != "" {
					reason = kickReason
				}
				kickMu.Unlock()
				if onDown != nil {
					downOnce.Do(func() { onDown(reason) })
				}
			case gameproto.EventConnError:
				if c.Logger != nil {
					c.Logger.Printf("protocol error: %s", ev.Reason)
				}
			}
		},
	})
	if err != nil {
		return nil, err
	}

	select {
	case <-ready:
	case <-ctx.Done():
		_ = client.Close()
		return nil, ctx.Err()
	case <-time.After(readyTimeout):
		_ = client.Close()
		return nil, fmt.Errorf("timeout waiting for spawn")
	}

	w := client.Welcome()
	return &Connection{
		Facade:      NewBot(client),
		AgentID:     w.AgentID,
		ResumeToken: w.ResumeToken,
	}, nil
}
