package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"minebridge.ai/internal/agent"
	"minebridge.ai/internal/spatial"
)

type fakeFacade struct {
	agent.Facade
	onDisconnect func()
}

func (f *fakeFacade) Disconnect() error {
	if f.onDisconnect != nil {
		f.onDisconnect()
	}
	return nil
}

func (f *fakeFacade) Position(context.Context) (spatial.Vec3, error) {
	return spatial.Vec3{X: 1, Y: 64, Z: 1}, nil
}

type fakeConnector struct {
	mu       sync.Mutex
	calls    int
	failures int
	tokens   []string
	lastDown func(reason string)
	gate     chan struct{}
}

func (f *fakeConnector) Connect(ctx context.Context, token string, onDown func(reason string)) (*agent.Connection, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.tokens = append(f.tokens, token)
	if n <= f.failures {
		f.mu.Unlock()
		return nil, errors.New("dial refused")
	}
	f.lastDown = onDown
	f.mu.Unlock()

	ff := &fakeFacade{}
	ff.onDisconnect = func() { onDown("connection closed") }
	return &agent.Connection{
		Facade:      ff,
		AgentID:     "A1",
		ResumeToken: fmt.Sprintf("tok-%d", n),
	}, nil
}

func (f *fakeConnector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeConnector) down(reason string) {
	f.mu.Lock()
	d := f.lastDown
	f.mu.Unlock()
	if d != nil {
		d(reason)
	}
}

type recorder struct {
	mu     sync.Mutex
	events []StatusEvent
}

func (r *recorder) record(ev StatusEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) count(typ, status string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ && (status == "" || ev.Status == status) {
			n++
		}
	}
	return n
}

func newTestSupervisor(t *testing.T, fc *fakeConnector, rec *recorder) *Supervisor {
	t.Helper()
	s, err := New(Config{
		Connector: fc,
		Policy:    Policy{MaxAttempts: 3, BackoffBase: time.Millisecond},
		Notify:    rec.record,
		Logger:    log.New(os.Stderr, "[supervisor-test] ", 0),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached within %s", timeout)
}

func TestConnectSuccess(t *testing.T) {
	fc := &fakeConnector{}
	rec := &recorder{}
	s := newTestSupervisor(t, fc, rec)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if s.State() != StateConnected {
		t.Fatalf("state: %s", s.State())
	}
	if s.AgentID() != "A1" {
		t.Fatalf("agent id: %q", s.AgentID())
	}
	if s.Attempts() != 0 {
		t.Fatalf("attempts not reset: %d", s.Attempts())
	}
	if _, err := s.Facade(); err != nil {
		t.Fatalf("facade: %v", err)
	}
	if rec.count("connection", "connected") != 1 {
		t.Fatalf("events: %+v", rec.events)
	}
}

func TestFacadeWhenDisconnected(t *testing.T) {
	s := newTestSupervisor(t, &fakeConnector{}, &recorder{})

	if _, err := s.Facade(); !errors.Is(err, agent.ErrNotConnected) {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}
}

func TestExhaustedRetriesEmitTerminalExactlyOnce(t *testing.T) {
	fc := &fakeConnector{failures: 1 << 20}
	rec := &recorder{}
	s := newTestSupervisor(t, fc, rec)

	if err := s.Connect(context.Background()); err == nil {
		t.Fatalf("expected connect error")
	}

	// Initial attempt + MaxAttempts retries, then the terminal error.
	waitFor(t, 2*time.Second, func() bool { return s.State() == StateFailed })
	if got := fc.callCount(); got != 4 {
		t.Fatalf("connect attempts: got %d want 4", got)
	}
	if got := rec.count("error", ""); got != 1 {
		t.Fatalf("terminal error events: got %d (%+v)", got, rec.events)
	}

	// No further attempts are scheduled once failed.
	time.Sleep(20 * time.Millisecond)
	if got := fc.callCount(); got != 4 {
		t.Fatalf("attempts kept going after terminal failure: %d", got)
	}
}

func TestUnintentionalDropTriggersReconnect(t *testing.T) {
	fc := &fakeConnector{}
	rec := &recorder{}
	s := newTestSupervisor(t, fc, rec)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	fc.down("read: connection reset")

	waitFor(t, 2*time.Second, func() bool {
		return fc.callCount() == 2 && s.State() == StateConnected
	})
	if rec.count("connection", "disconnected") != 1 || rec.count("connection", "connected") != 2 {
		t.Fatalf("events: %+v", rec.events)
	}

	// The resume token issued by the first connection is presented on the
	// reconnect.
	fc.mu.Lock()
	tokens := append([]string(nil), fc.tokens...)
	fc.mu.Unlock()
	if len(tokens) != 2 || tokens[1] != "tok-1" {
		t.Fatalf("tokens: %+v", tokens)
	}
}

func TestExplicitDisconnectDoesNotReconnect(t *testing.T) {
	fc := &fakeConnector{}
	rec := &recorder{}
	s := newTestSupervisor(t, fc, rec)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	s.Disconnect()

	waitFor(t, time.Second, func() bool { return s.State() == StateDisconnected })
	time.Sleep(20 * time.Millisecond)
	if got := fc.callCount(); got != 1 {
		t.Fatalf("reconnect after explicit disconnect: %d calls", got)
	}
	if rec.count("error", "") != 0 {
		t.Fatalf("unexpected error event: %+v", rec.events)
	}
}

func TestConcurrentConnectIsNoOp(t *testing.T) {
	fc := &fakeConnector{gate: make(chan struct{})}
	s := newTestSupervisor(t, fc, &recorder{})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Connect(context.Background()) }()

	waitFor(t, time.Second, func() bool { return s.State() == StateConnecting })

	// Second call while the first is in flight returns immediately without
	// dialing again.
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("overlapping connect: %v", err)
	}

	close(fc.gate)
	if err := <-errCh; err != nil {
		t.Fatalf("first connect: %v", err)
	}
	if got := fc.callCount(); got != 1 {
		t.Fatalf("dial count: %d", got)
	}
}

func TestNotifyDisconnect(t *testing.T) {
	fc := &fakeConnector{}
	s := newTestSupervisor(t, fc, &recorder{})

	// Not connected yet: subscription is already closed.
	ch, cancel := s.NotifyDisconnect()
	select {
	case <-ch:
	default:
		t.Fatalf("expected closed channel while disconnected")
	}
	cancel()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	ch, cancel = s.NotifyDisconnect()
	defer cancel()

	select {
	case <-ch:
		t.Fatalf("channel closed before disconnect")
	default:
	}

	fc.down("kicked")
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("disconnect never signaled")
	}
}
