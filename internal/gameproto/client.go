package gameproto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrClosed is returned by Do once the underlying connection is gone.
var ErrClosed = errors.New("gameproto: connection closed")

// Event is a lifecycle signal surfaced to the owner of the client.
type Event struct {
	Kind   string
	Reason string
}

const (
	// EventConnReady fires when the spawn event arrives and the agent body
	// is controllable.
	EventConnReady = "ready"
	// EventConnEnded fires exactly once when the read loop exits.
	EventConnEnded = "ended"
	// EventConnKicked fires before EventConnEnded when the server kicked us.
	EventConnKicked = "kicked"
	// EventConnError fires for protocol-level errors that do not end the
	// connection.
	EventConnError = "error"
)

type Config struct {
	URL         string
	AgentName   string
	ResumeToken string

	HandshakeTimeout time.Duration
	OnEvent          func(Event)
	Logger           *log.Logger
}

// Client is a single physical connection to the game server. It caches the
// latest STATE frame and correlates COMMAND/RESULT pairs by id.
type Client struct {
	cfg  Config
	conn *websocket.Conn
	log  *log.Logger

	writeMu sync.Mutex

	mu      sync.RWMutex
	welcome WelcomeMsg
	state   StateMsg
	pending map[string]chan ResultMsg
	closed  bool

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects, performs the HELLO/WELCOME handshake and starts the read
// loop. A resume token in cfg re-attaches to the previous agent body.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("gameproto: empty url")
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	d := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, resp, err := d.DialContext(ctx, cfg.URL, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	hello := HelloMsg{
		Type:            TypeHello,
		ProtocolVersion: Version,
		AgentName:       cfg.AgentName,
		Capabilities: HelloCapabilities{
			CompressedBlocks: true,
			MaxQueue:         64,
		},
	}
	if cfg.ResumeToken != "" {
		hello.Auth = &HelloAuth{Token: cfg.ResumeToken}
	}
	_ = conn.SetWriteDeadline(time.Now().Add(cfg.HandshakeTimeout))
	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send HELLO: %w", err)
	}

	welcome, err := readWelcome(conn, cfg.HandshakeTimeout)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	c := &Client{
		cfg:     cfg,
		conn:    conn,
		log:     cfg.Logger,
		welcome: welcome,
		pending: map[string]chan ResultMsg{},
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func readWelcome(conn *websocket.Conn, timeout time.Duration) (WelcomeMsg, error) {
	deadline := time.Now().Add(timeout)
	for {
		if time.Now().After(deadline) {
			return WelcomeMsg{}, fmt.Errorf("timeout waiting for WELCOME")
		}
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return WelcomeMsg{}, fmt.Errorf("read WELCOME: %w", err)
		}
		base, err := DecodeBase(msg)
		if err != nil || base.Type != TypeWelcome {
			continue
		}
		var w WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			return WelcomeMsg{}, fmt.Errorf("parse WELCOME: %w", err)
		}
		if !IsSupportedVersion(w.ProtocolVersion) {
			return WelcomeMsg{}, fmt.Errorf("unsupported protocol_version %q", w.ProtocolVersion)
		}
		return w, nil
	}
}

func (c *Client) Welcome() WelcomeMsg {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.welcome
}

// State returns a copy of the latest STATE frame; Tick 0 means none arrived.
func (c *Client) State() StateMsg {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close tears the connection down. Safe to call more than once; pending
// commands fail with ErrClosed.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		_ = c.conn.Close()
		<-c.done
	})
	return nil
}

// Do sends a command and waits for its RESULT. A failed result comes back as
// *CommandError; a dead connection as ErrClosed.
func (c *Client) Do(ctx context.Context, op string, params any) (json.RawMessage, error) {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal %s params: %w", op, err)
		}
		raw = b
	}
	id := uuid.NewString()
	cmd := CommandMsg{
		Type:            TypeCommand,
		ProtocolVersion: Version,
		ID:              id,
		Op:              op,
		Params:          raw,
	}
	b, _ := json.Marshal(cmd)

	ch := make(chan ResultMsg, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	err := c.conn.WriteMessage(websocket.TextMessage, b)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", op, err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	case res, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		if !res.OK {
			code := res.Code
			if code == "" {
				code = ErrInternal
			}
			return nil, &CommandError{Code: code, Message: res.Message}
		}
		return res.Data, nil
	}
}

func (c *Client) readLoop() {
	defer close(c.done)

	var endReason string
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			endReason = err.Error()
			break
		}
		base, err := DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case TypeState:
			var st StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			if !IsSupportedVersion(st.ProtocolVersion) {
				continue
			}
			c.mu.Lock()
			c.state = st
			c.mu.Unlock()

		case TypeResult:
			var res ResultMsg
			if err := json.Unmarshal(msg, &res); err != nil {
				continue
			}
			c.mu.RLock()
			ch := c.pending[res.ID]
			c.mu.RUnlock()
			if ch != nil {
				select {
				case ch <- res:
				default:
				}
			}

		case TypeEvent:
			var ev EventMsg
			if err := json.Unmarshal(msg, &ev); err != nil {
				continue
			}
			switch ev.Name {
			case EventSpawn:
				c.emit(Event{Kind: EventConnReady})
			case EventKicked:
				endReason = ev.Reason
				c.emit(Event{Kind: EventConnKicked, Reason: ev.Reason})
			case EventError:
				c.emit(Event{Kind: EventConnError, Reason: ev.Reason})
			}
		}
	}

	c.mu.Lock()
	c.closed = true
	pending := c.pending
	c.pending = map[string]chan ResultMsg{}
	c.mu.Unlock()
	for _, ch := range pending {
		close(ch)
	}
	_ = c.conn.Close()
	c.emit(Event{Kind: EventConnEnded, Reason: endReason})
}

func (c *Client) emit(ev Event) {
	if c.cfg.OnEvent != nil {
		c.cfg.OnEvent(ev)
	}
}
