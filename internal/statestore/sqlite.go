// Package statestore persists session identity and the area-job journal in
// a local SQLite database, so a restarted process resumes the same agent and
// past excavations stay inspectable.
package statestore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"minebridge.ai/internal/area"
	"minebridge.ai/internal/spatial"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session (
			key TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			resume_token TEXT NOT NULL,
			last_x REAL NOT NULL,
			last_y REAL NOT NULL,
			last_z REAL NOT NULL,
			last_connected_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS area_jobs (
			id TEXT PRIMARY KEY,
			min_x INTEGER NOT NULL, min_y INTEGER NOT NULL, min_z INTEGER NOT NULL,
			max_x INTEGER NOT NULL, max_y INTEGER NOT NULL, max_z INTEGER NOT NULL,
			total INTEGER NOT NULL,
			completed INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_area_jobs_started ON area_jobs(started_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// sessionKey: a single agent identity per store. The bridge drives exactly
// one connection.
const sessionKey = "default"

type Session struct {
	AgentID         string
	ResumeToken     string
	LastPos         spatial.Vec3
	LastConnectedAt time.Time
}

// SaveSession upserts the one session row. Satisfies supervisor.SessionSink.
func (s *Store) SaveSession(agentID, resumeToken string, pos spatial.Vec3) error {
	_, err := s.db.Exec(`
		INSERT INTO session (key, agent_id, resume_token, last_x, last_y, last_z, last_connected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			agent_id = excluded.agent_id,
			resume_token = excluded.resume_token,
			last_x = excluded.last_x,
			last_y = excluded.last_y,
			last_z = excluded.last_z,
			last_connected_at = excluded.last_connected_at;`,
		sessionKey, agentID, resumeToken, pos.X, pos.Y, pos.Z,
		time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// LoadSession returns the persisted session, reporting false when none was
// ever saved.
func (s *Store) LoadSession() (Session, bool, error) {
	row := s.db.QueryRow(`
		SELECT agent_id, resume_token, last_x, last_y, last_z, last_connected_at
		FROM session WHERE key = ?;`, sessionKey)

	var sess Session
	var at string
	err := row.Scan(&sess.AgentID, &sess.ResumeToken, &sess.LastPos.X, &sess.LastPos.Y, &sess.LastPos.Z, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	if t, perr := time.Parse(time.RFC3339Nano, at); perr == nil {
		sess.LastConnectedAt = t
	}
	return sess, true, nil
}

// RecordJob satisfies area.JobSink.
func (s *Store) RecordJob(rec area.JobRecord) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO area_jobs
			(id, min_x, min_y, min_z, max_x, max_y, max_z, total, completed, outcome, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		rec.ID,
		rec.Min.X, rec.Min.Y, rec.Min.Z,
		rec.Max.X, rec.Max.Y, rec.Max.Z,
		rec.Total, rec.Completed, rec.Outcome,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.Duration.Milliseconds())
	return err
}

// RecentJobs lists the newest jobs first.
func (s *Store) RecentJobs(limit int) ([]area.JobRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, min_x, min_y, min_z, max_x, max_y, max_z, total, completed, outcome, started_at, duration_ms
		FROM area_jobs ORDER BY started_at DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []area.JobRecord
	for rows.Next() {
		var rec area.JobRecord
		var at string
		var durMS int64
		if err := rows.Scan(&rec.ID,
			&rec.Min.X, &rec.Min.Y, &rec.Min.Z,
			&rec.Max.X, &rec.Max.Y, &rec.Max.Z,
			&rec.Total, &rec.Completed, &rec.Outcome, &at, &durMS); err != nil {
			return nil, err
		}
		if t, perr := time.Parse(time.RFC3339Nano, at); perr == nil {
			rec.StartedAt = t
		}
		rec.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}
