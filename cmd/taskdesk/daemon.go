package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fentz26/taskdesk/internal/access"
	"github.com/fentz26/taskdesk/internal/audit"
	"github.com/fentz26/taskdesk/internal/config"
	"github.com/fentz26/taskdesk/internal/controlplane"
	"github.com/fentz26/taskdesk/internal/conversation"
	"github.com/fentz26/taskdesk/internal/export"
	"github.com/fentz26/taskdesk/internal/lifecycle"
	"github.com/fentz26/taskdesk/internal/notify"
	"github.com/fentz26/taskdesk/internal/notify/webhook"
	"github.com/fentz26/taskdesk/internal/reminder"
	"github.com/fentz26/taskdesk/internal/store"
	"github.com/spf13/cobra"
)

var (
	listenAddr string
	dbPath     string
	adminID    int64
	webhookURL string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the taskdesk daemon",
	Long:  `Starts the daemon which serves the HTTP API, delivers notifications and sends deadline reminders.`,
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (overrides config)")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
	daemonCmd.Flags().Int64Var(&adminID, "admin", 0, "Administrator user id (overrides config)")
	daemonCmd.Flags().StringVar(&webhookURL, "webhook", "", "Webhook that receives chat messages (overrides config)")
}

// loadConfig reads --config or the default file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Listen = listenAddr
	}
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("admin") {
		cfg.AdminID = adminID
	}
	if flags.Changed("webhook") {
		cfg.Notify.WebhookURL = webhookURL
	}
	return cfg, cfg.Validate()
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log.Println("Starting taskdesk daemon...")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	matrix, err := cfg.Matrix()
	if err != nil {
		return err
	}
	if cfg.AdminID == 0 {
		log.Println("Warning: no admin_id configured; nobody can manage users")
	}

	// Initialize store
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}

	// Initialize components
	journal := audit.NewJournal(s)
	policy := access.NewPolicy(access.NewAuthorizationIndex(cfg.AdminID), matrix)
	bus := notify.NewBus()

	var messenger notify.Messenger = notify.LogMessenger{}
	if cfg.Notify.WebhookURL != "" {
		messenger = webhook.New(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
	}

	engine := lifecycle.New(s, policy, bus, lifecycle.Options{
		Location:  loc,
		OpTimeout: cfg.Store.OpTimeout,
		PageSize:  cfg.List.PageSize,
		Journal:   journal,
	})
	if err := engine.ReloadUsers(context.Background()); err != nil {
		s.Close()
		return err
	}
	log.Printf("Allow-list loaded: %d users, timezone %s", policy.Index().Len(), loc)

	dispatcher := notify.NewDispatcher(bus, messenger, cfg.Notify.Timeout)
	dispatcher.Start()

	sweeper := reminder.New(s, messenger, &cfg.Reminders, loc)
	if cfg.Reminders.Enabled {
		sweeper.Start()
	}

	sessions := conversation.NewSessions(cfg.Conversation.TTL)
	pruneCtx, stopPrune := context.WithCancel(context.Background())
	go pruneSessions(pruneCtx, sessions, cfg.Conversation.TTL)

	// Create service and server
	exporter := export.NewExporter(engine)
	pdfFont := cfg.Export.PDFFont
	if pdfFont == "" {
		pdfFont = export.DetectFont()
	}
	if pdfFont == "" {
		log.Println("Warning: no Unicode font found; PDF exports only render cp1252 text (set export.pdf_font)")
	}
	exporter.SetFont(pdfFont)

	service := controlplane.NewService(engine, conversation.NewHandler(engine, sessions), exporter, journal)
	server := controlplane.NewServer(service, s, cfg.Listen)

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	// Wait for shutdown signal or server error
	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server error: %v", err)
			runErr = err
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Println("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	stopPrune()
	if cfg.Reminders.Enabled {
		sweeper.Stop()
	}
	dispatcher.Stop()

	log.Println("Closing database connection...")
	if err := s.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("Shutdown complete")
	return runErr
}

// pruneSessions drops abandoned chat dialogs once per ttl.
func pruneSessions(ctx context.Context, sessions *conversation.Sessions, ttl time.Duration) {
	if ttl <= 0 {
		ttl = conversation.DefaultTTL
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Prune()
		}
	}
}
