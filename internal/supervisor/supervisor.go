// Package supervisor owns the lifecycle of the single game connection:
// initial connect, ready detection, disconnect detection and bounded-retry
// reconnection. Nothing else in the system creates or destroys connections.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"minebridge.ai/internal/agent"
	"minebridge.ai/internal/spatial"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	// StateFailed is terminal for automatic recovery: reconnect attempts are
	// exhausted and only an explicit Connect leaves it.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Policy bounds automatic reconnection. Delay before attempt n (1-based) is
// n * BackoffBase.
type Policy struct {
	MaxAttempts int
	BackoffBase time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BackoffBase: 5 * time.Second}
}

// StatusEvent is pushed on every externally visible transition.
type StatusEvent struct {
	Type    string // "connection" or "error"
	Status  string // "connected" or "disconnected" for connection events
	Message string
}

// Connector abstracts agent.Connector so tests can fail connections on
// demand.
type Connector interface {
	Connect(ctx context.Context, resumeToken string, onDown func(reason string)) (*agent.Connection, error)
}

// SessionSink persists session identity across process restarts. May be nil.
type SessionSink interface {
	SaveSession(agentID, resumeToken string, pos spatial.Vec3) error
}

type Config struct {
	Connector Connector
	Policy    Policy
	Notify    func(StatusEvent)
	Logger    *log.Logger
	Sink      SessionSink

	// ResumeToken seeds the first connect, usually loaded from the sink's
	// backing store.
	ResumeToken string
}

type Supervisor struct {
	connector Connector
	policy    Policy
	notify    func(StatusEvent)
	log       *log.Logger
	sink      SessionSink

	mu           sync.Mutex
	state        State
	conn         *agent.Connection
	resumeToken  string
	attempts     int
	connecting   bool
	intentional  bool
	terminalSent bool
	closed       bool
	gen          int
	pendingDown  map[int]string
	timer        *time.Timer
	subs         map[int]chan struct{}
	nextSub      int
}

func New(cfg Config) (*Supervisor, error) {
	if cfg.Connector == nil {
		return nil, errors.New("supervisor: nil connector")
	}
	if cfg.Policy.MaxAttempts <= 0 {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.Notify == nil {
		cfg.Notify = func(StatusEvent) {}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Supervisor{
		connector:   cfg.Connector,
		policy:      cfg.Policy,
		notify:      cfg.Notify,
		log:         cfg.Logger,
		sink:        cfg.Sink,
		resumeToken: cfg.ResumeToken,
		pendingDown: map[int]string{},
		subs:        map[int]chan struct{}{},
	}, nil
}

// Connect establishes the connection. Concurrent calls while one attempt is
// in flight are no-ops; an explicit call also resets the retry budget and
// leaves StateFailed.
func (s *Supervisor) Connect(ctx context.Context) error {
	return s.connect(ctx, false)
}

func (s *Supervisor) connect(ctx context.Context, isRetry bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("supervisor closed")
	}
	if s.connecting {
		s.mu.Unlock()
		return nil
	}
	s.connecting = true
	s.intentional = false
	if !isRetry {
		s.attempts = 0
		s.terminalSent = false
	}
	old := s.conn
	s.conn = nil
	s.state = StateConnecting
	s.gen++
	gen := s.gen
	token := s.resumeToken
	s.mu.Unlock()

	// No two physical connections may coexist.
	if old != nil {
		_ = old.Facade.Disconnect()
	}

	conn, err := s.connector.Connect(ctx, token, func(reason string) {
		s.handleDown(gen, reason)
	})

	s.mu.Lock()
	s.connecting = false
	if err != nil {
		if s.state == StateConnecting {
			s.state = StateDisconnected
		}
		s.mu.Unlock()
		s.log.Printf("connect failed: %v", err)
		s.scheduleRetryOrFail(fmt.Sprintf("connect failed: %v", err))
		return err
	}
	s.conn = conn
	if conn.ResumeToken != "" {
		s.resumeToken = conn.ResumeToken
	}
	s.state = StateConnected
	s.attempts = 0
	downReason, diedDuringSetup := s.pendingDown[gen]
	delete(s.pendingDown, gen)
	s.mu.Unlock()

	s.log.Printf("connected agent_id=%s", conn.AgentID)
	s.notify(StatusEvent{Type: "connection", Status: "connected", Message: "connected to game server"})
	s.saveSession(conn)

	if diedDuringSetup {
		s.handleDown(gen, downReason)
	}
	return nil
}

// handleDown is the single Connected -> Disconnected transition point.
// Stale generations (a previous connection's death) are ignored.
func (s *Supervisor) handleDown(gen int, reason string) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	if s.conn == nil {
		if s.connecting {
			s.pendingDown[gen] = reason
		}
		s.mu.Unlock()
		return
	}
	conn := s.conn
	s.conn = nil
	s.state = StateDisconnected
	intentional := s.intentional
	subs := s.subs
	s.subs = map[int]chan struct{}{}
	s.mu.Unlock()

	_ = conn.Facade.Disconnect()
	for _, ch := range subs {
		close(ch)
	}
	if reason == "" {
		reason = "connection ended"
	}
	s.log.Printf("disconnected: %s", reason)
	s.notify(StatusEvent{Type: "connection", Status: "disconnected", Message: reason})

	if !intentional {
		s.scheduleRetryOrFail(reason)
	}
}

func (s *Supervisor) scheduleRetryOrFail(reason string) {
	s.mu.Lock()
	if s.closed || s.intentional || s.connecting || s.state == StateConnected {
		s.mu.Unlock()
		return
	}
	if s.attempts >= s.policy.MaxAttempts {
		s.state = StateFailed
		alreadySent := s.terminalSent
		s.terminalSent = true
		s.mu.Unlock()
		if !alreadySent {
			msg := fmt.Sprintf("giving up after %d reconnect attempts: %s", s.policy.MaxAttempts, reason)
			s.log.Printf("%s", msg)
			s.notify(StatusEvent{Type: "error", Message: msg})
		}
		return
	}
	s.attempts++
	attempt := s.attempts
	delay := time.Duration(attempt) * s.policy.BackoffBase
	s.timer = time.AfterFunc(delay, func() {
		_ = s.connect(context.Background(), true)
	})
	s.mu.Unlock()
	s.log.Printf("reconnect attempt %d/%d in %s (%s)", attempt, s.policy.MaxAttempts, delay, reason)
}

// Disconnect tears the connection down without scheduling a reconnect.
func (s *Supervisor) Disconnect() {
	s.mu.Lock()
	s.intentional = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		// The facade teardown surfaces through onDown, which completes the
		// transition (state, subscribers, notification).
		_ = conn.Facade.Disconnect()
	}
}

// Close shuts the supervisor down for good.
func (s *Supervisor) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.intentional = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	conn := s.conn
	s.conn = nil
	s.state = StateDisconnected
	s.closed = true
	subs := s.subs
	s.subs = map[int]chan struct{}{}
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Facade.Disconnect()
	}
	for _, ch := range subs {
		close(ch)
	}
}

// Facade hands out the live capability surface, or ErrNotConnected.
func (s *Supervisor) Facade() (agent.Facade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || s.state != StateConnected {
		return nil, agent.ErrNotConnected
	}
	return s.conn.Facade, nil
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) AgentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ""
	}
	return s.conn.AgentID
}

func (s *Supervisor) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// NotifyDisconnect registers a one-shot subscription: the channel closes on
// the next disconnect. The cancel func must be called when the caller is
// done, or stale channels accumulate across long-running jobs. If the
// supervisor is not currently connected the channel is already closed.
func (s *Supervisor) NotifyDisconnect() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{})
	if s.conn == nil || s.state != StateConnected {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Supervisor) saveSession(conn *agent.Connection) {
	if s.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pos, err := conn.Facade.Position(ctx)
	if err != nil {
		pos = spatial.Vec3{}
	}
	if err := s.sink.SaveSession(conn.AgentID, conn.ResumeToken, pos); err != nil {
		s.log.Printf("persist session: %v", err)
	}
}
