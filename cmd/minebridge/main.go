package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	"minebridge.ai/internal/agent"
	"minebridge.ai/internal/area"
	"minebridge.ai/internal/config"
	"minebridge.ai/internal/journal"
	"minebridge.ai/internal/rpc"
	"minebridge.ai/internal/statestore"
	"minebridge.ai/internal/supervisor"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to yaml config (optional)")
		gameURL    = flag.String("url", "", "game server ws url (overrides config)")
		agentName  = flag.String("name", "", "agent name (overrides config)")
		dbPath     = flag.String("db", "", "sqlite state path (overrides config)")
		journalDir = flag.String("journal-dir", "", "event journal directory (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[main] config: %v", err)
	}
	if strings.TrimSpace(*gameURL) != "" {
		cfg.Game.URL = *gameURL
	}
	if strings.TrimSpace(*agentName) != "" {
		cfg.Game.AgentName = *agentName
	}
	if strings.TrimSpace(*dbPath) != "" {
		cfg.Store.DBPath = *dbPath
	}
	if strings.TrimSpace(*journalDir) != "" {
		cfg.Store.JournalDir = *journalDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[main] config: %v", err)
	}

	// Stdout is the MCP transport; everything human-readable goes to stderr.
	logger := log.New(os.Stderr, "[main] ", log.LstdFlags|log.Lmicroseconds)

	jw := journal.NewWriter(cfg.Store.JournalDir, "events")
	defer func() {
		if err := jw.Close(); err != nil {
			logger.Printf("journal close: %v", err)
		}
	}()

	notifier := rpc.NewNotifier(log.New(os.Stderr, "[notify] ", log.LstdFlags|log.Lmicroseconds), jw)

	store, err := statestore.Open(cfg.Store.DBPath)
	if err != nil {
		logger.Fatalf("state store: %v", err)
	}
	defer store.Close()

	resumeToken := ""
	if sess, ok, err := store.LoadSession(); err != nil {
		logger.Printf("load session: %v", err)
	} else if ok {
		resumeToken = sess.ResumeToken
		logger.Printf("resuming session agent_id=%s last_seen=%s", sess.AgentID, sess.LastConnectedAt.Format("2006-01-02T15:04:05Z07:00"))
	}

	connector := &agent.Connector{
		URL:          cfg.Game.URL,
		Name:         cfg.Game.AgentName,
		ReadyTimeout: cfg.ReadyTimeout(),
		Logger:       log.New(os.Stderr, "[game] ", log.LstdFlags|log.Lmicroseconds),
	}

	sup, err := supervisor.New(supervisor.Config{
		Connector: connector,
		Policy: supervisor.Policy{
			MaxAttempts: cfg.Reconnect.MaxAttempts,
			BackoffBase: cfg.Backoff(),
		},
		Notify:      notifier.ServerStatus,
		Logger:      log.New(os.Stderr, "[supervisor] ", log.LstdFlags|log.Lmicroseconds),
		Sink:        store,
		ResumeToken: resumeToken,
	})
	if err != nil {
		logger.Fatalf("supervisor: %v", err)
	}
	defer sup.Close()

	engine := area.NewEngine(area.Config{
		Reach:            cfg.Area.Reach,
		StepDelay:        cfg.StepDelay(),
		ProgressInterval: cfg.ProgressInterval(),
		Logger:           log.New(os.Stderr, "[area] ", log.LstdFlags|log.Lmicroseconds),
		Notify:           notifier.ToolProgress,
		Jobs:             store,
	})

	s := rpc.NewServer(rpc.Deps{
		Name:     cfg.Server.Name,
		Version:  cfg.Server.Version,
		Source:   sup,
		Engine:   engine,
		Notifier: notifier,
		Logger:   log.New(os.Stderr, "[rpc] ", log.LstdFlags|log.Lmicroseconds),
	})

	notifier.Startup()

	// Connect in the background so a slow or down game server never delays
	// the MCP handshake; tools report not-connected until it succeeds.
	go func() {
		if err := sup.Connect(context.Background()); err != nil {
			logger.Printf("initial connect: %v", err)
		}
	}()

	logger.Printf("serving %s %s on stdio (game ws=%s agent=%s)",
		cfg.Server.Name, cfg.Server.Version, cfg.Game.URL, cfg.Game.AgentName)
	if err := server.ServeStdio(s, server.WithErrorLogger(logger)); err != nil {
		logger.Printf("serve: %v", err)
	}
	logger.Printf("shutting down")
}
