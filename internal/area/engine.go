// Package area executes multi-block operations as ordered sequences of
// single-step facade calls, with progress accounting and cooperative abort
// on disconnect. A single failed step never fails the job; only losing the
// connection does.
package area

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"minebridge.ai/internal/agent"
	"minebridge.ai/internal/spatial"
)

// Progress counters for one job. Percent is always derived from
// Completed/Total.
type Progress struct {
	Percent   float64 `json:"percent"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
}

func (p *Progress) recompute() {
	if p.Total <= 0 {
		p.Percent = 100
		return
	}
	p.Percent = float64(p.Completed) / float64(p.Total) * 100
}

// DisconnectedError reports a job aborted by a connection drop, carrying the
// last known counters.
type DisconnectedError struct {
	Progress Progress
}

func (e *DisconnectedError) Error() string {
	return fmt.Sprintf("connection lost after %d/%d blocks", e.Progress.Completed, e.Progress.Total)
}

// DisconnectWatcher hands out one-shot disconnect subscriptions; the
// supervisor implements it.
type DisconnectWatcher interface {
	NotifyDisconnect() (<-chan struct{}, func())
}

// JobRecord is the journal row written for every finished or aborted job.
type JobRecord struct {
	ID        string
	Min       spatial.BlockPos
	Max       spatial.BlockPos
	Total     int
	Completed int
	Outcome   string
	StartedAt time.Time
	Duration  time.Duration
}

const (
	OutcomeComplete     = "complete"
	OutcomeDisconnected = "disconnected"
	OutcomeCanceled     = "canceled"
)

// JobSink records finished jobs. May be nil.
type JobSink interface {
	RecordJob(rec JobRecord) error
}

// ProgressNotifier pushes async progress events. May be nil.
type ProgressNotifier func(token string, p Progress, status, message string)

const (
	StatusInProgress = "in_progress"
	StatusComplete   = "complete"
	StatusFailed     = "failed"
)

type Config struct {
	// Reach is the distance beyond which the engine relocates before
	// digging.
	Reach float64
	// StepDelay spaces out dig attempts so a large sweep does not flood the
	// connection.
	StepDelay time.Duration
	// ProgressInterval throttles progress emission; the final 100% emission
	// is never throttled.
	ProgressInterval time.Duration

	Logger *log.Logger
	Notify ProgressNotifier
	Jobs   JobSink
}

type Engine struct {
	reach            float64
	stepDelay        time.Duration
	progressInterval time.Duration
	log              *log.Logger
	notify           ProgressNotifier
	jobs             JobSink
}

func NewEngine(cfg Config) *Engine {
	if cfg.Reach <= 0 {
		cfg.Reach = 4.5
	}
	if cfg.ProgressInterval < 0 {
		cfg.ProgressInterval = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Engine{
		reach:            cfg.Reach,
		stepDelay:        cfg.StepDelay,
		progressInterval: cfg.ProgressInterval,
		log:              cfg.Logger,
		notify:           cfg.Notify,
		jobs:             cfg.Jobs,
	}
}

// DigAreaRelative transforms both corners with one shared origin/heading
// snapshot so the box is computed in a single consistent frame, then digs it.
func (e *Engine) DigAreaRelative(ctx context.Context, f agent.Facade, watch DisconnectWatcher, off1, off2 spatial.Offset, onProgress func(Progress)) (Progress, error) {
	origin, err := f.Position(ctx)
	if err != nil {
		return Progress{}, err
	}
	heading, err := f.Heading(ctx)
	if err != nil {
		return Progress{}, err
	}
	c1 := spatial.ToAbsolute(origin, heading, off1).Floor()
	c2 := spatial.ToAbsolute(origin, heading, off2).Floor()
	return e.DigArea(ctx, f, watch, c1, c2, onProgress)
}

// DigArea excavates the box between two corners top-down. Per-step failures
// are logged and skipped; the job only aborts when the connection drops or
// ctx is canceled.
func (e *Engine) DigArea(ctx context.Context, f agent.Facade, watch DisconnectWatcher, c1, c2 spatial.BlockPos, onProgress func(Progress)) (Progress, error) {
	box := spatial.NewBox(c1, c2)
	targets := box.SweepTopDown()

	token := uuid.NewString()
	started := time.Now()
	p := Progress{Total: len(targets)}

	down, cancel := watch.NotifyDisconnect()
	defer cancel()

	var lastEmit time.Time
	emit := func(status, message string, force bool) {
		if !force && e.progressInterval > 0 && time.Since(lastEmit) < e.progressInterval {
			return
		}
		lastEmit = time.Now()
		if onProgress != nil {
			onProgress(p)
		}
		if e.notify != nil {
			e.notify(token, p, status, message)
		}
	}

	e.log.Printf("dig area start job=%s box=%+v..%+v total=%d", token, box.Min, box.Max, p.Total)

	for _, pos := range targets {
		select {
		case <-down:
			return e.abort(token, box, p, started, emit)
		case <-ctx.Done():
			e.record(token, box, p, OutcomeCanceled, started)
			return p, ctx.Err()
		default:
		}

		if err := e.digOne(ctx, f, pos); err != nil {
			if errors.Is(err, agent.ErrNotConnected) {
				return e.abort(token, box, p, started, emit)
			}
			e.log.Printf("skip block (%d,%d,%d): %v", pos.X, pos.Y, pos.Z, err)
		}
		p.Completed++
		p.recompute()
		emit(StatusInProgress, "", false)

		if e.stepDelay > 0 && p.Completed < p.Total {
			select {
			case <-down:
				return e.abort(token, box, p, started, emit)
			case <-ctx.Done():
				e.record(token, box, p, OutcomeCanceled, started)
				return p, ctx.Err()
			case <-time.After(e.stepDelay):
			}
		}
	}

	emit(StatusComplete, fmt.Sprintf("dug %d blocks", p.Total), true)
	e.record(token, box, p, OutcomeComplete, started)
	e.log.Printf("dig area done job=%s blocks=%d in %s", token, p.Total, time.Since(started).Round(time.Millisecond))
	return p, nil
}

// digOne processes a single position: skip if already empty, relocate if out
// of reach, then dig. A failed relocation does not abort the step.
func (e *Engine) digOne(ctx context.Context, f agent.Facade, pos spatial.BlockPos) error {
	block, err := f.BlockAt(ctx, pos)
	if errors.Is(err, agent.ErrNotConnected) {
		return err
	}
	if err == nil && block.IsAir() {
		return nil
	}

	if cur, perr := f.Position(ctx); perr == nil && cur.DistanceTo(pos.Center()) > e.reach {
		if nerr := f.NavigateTo(ctx, pos.Center()); nerr != nil {
			if errors.Is(nerr, agent.ErrNotConnected) {
				return nerr
			}
			e.log.Printf("relocation toward (%d,%d,%d) failed: %v", pos.X, pos.Y, pos.Z, nerr)
		}
	}

	return f.DigBlock(ctx, pos)
}

func (e *Engine) abort(token string, box spatial.Box, p Progress, started time.Time, emit func(string, string, bool)) (Progress, error) {
	emit(StatusFailed, fmt.Sprintf("disconnected after %d/%d blocks", p.Completed, p.Total), true)
	e.record(token, box, p, OutcomeDisconnected, started)
	return p, &DisconnectedError{Progress: p}
}

func (e *Engine) record(token string, box spatial.Box, p Progress, outcome string, started time.Time) {
	if e.jobs == nil {
		return
	}
	rec := JobRecord{
		ID:        token,
		Min:       box.Min,
		Max:       box.Max,
		Total:     p.Total,
		Completed: p.Completed,
		Outcome:   outcome,
		StartedAt: started,
		Duration:  time.Since(started),
	}
	if err := e.jobs.RecordJob(rec); err != nil {
		e.log.Printf("record job %s: %v", token, err)
	}
}
