package statestore

import (
	"path/filepath"
	"testing"
	"time"

	"minebridge.ai/internal/area"
	"minebridge.ai/internal/spatial"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "bridge.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionRoundtrip(t *testing.T) {
	s := openTestStore(t)

	if _, ok, err := s.LoadSession(); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	pos := spatial.Vec3{X: 12.5, Y: 64, Z: -7.25}
	if err := s.SaveSession("A1", "tok-1", pos); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Second save overwrites, it never accumulates rows.
	if err := s.SaveSession("A1", "tok-2", pos); err != nil {
		t.Fatalf("save again: %v", err)
	}

	sess, ok, err := s.LoadSession()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if sess.AgentID != "A1" || sess.ResumeToken != "tok-2" || sess.LastPos != pos {
		t.Fatalf("session: %+v", sess)
	}
	if sess.LastConnectedAt.IsZero() {
		t.Fatalf("missing timestamp")
	}
}

func TestJobJournal(t *testing.T) {
	s := openTestStore(t)

	recs := []area.JobRecord{
		{
			ID:  "job-1",
			Min: spatial.BlockPos{X: 0, Y: 64, Z: 0}, Max: spatial.BlockPos{X: 1, Y: 65, Z: 1},
			Total: 8, Completed: 8, Outcome: area.OutcomeComplete,
			StartedAt: time.Now().Add(-time.Minute), Duration: 4 * time.Second,
		},
		{
			ID:  "job-2",
			Min: spatial.BlockPos{X: 5, Y: 60, Z: 5}, Max: spatial.BlockPos{X: 9, Y: 63, Z: 9},
			Total: 100, Completed: 37, Outcome: area.OutcomeDisconnected,
			StartedAt: time.Now(), Duration: 9 * time.Second,
		},
	}
	for _, rec := range recs {
		if err := s.RecordJob(rec); err != nil {
			t.Fatalf("record %s: %v", rec.ID, err)
		}
	}

	got, err := s.RecentJobs(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("job count: %d", len(got))
	}
	if got[0].ID != "job-2" {
		t.Fatalf("newest first, got %q", got[0].ID)
	}
	if got[0].Completed != 37 || got[0].Outcome != area.OutcomeDisconnected {
		t.Fatalf("job row: %+v", got[0])
	}
	if got[1].Max != (spatial.BlockPos{X: 1, Y: 65, Z: 1}) {
		t.Fatalf("box roundtrip: %+v", got[1])
	}
}
