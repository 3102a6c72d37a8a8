package dashboardapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/0xtitan6/quantis/internal/config"
)

// Server is the dashboard's HTTP/WebSocket listener.
type Server struct {
	cfg      config.DashboardConfig
	provider SnapshotProvider
	fullCfg  config.Config
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
}

// NewServer builds a dashboard server. It does not start listening until Start.
func NewServer(cfg config.DashboardConfig, provider SnapshotProvider, fullCfg config.Config, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(provider, fullCfg, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/api/snapshot", handlers.HandleSnapshot)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		provider: provider,
		fullCfg:  fullCfg,
		hub:      hub,
		handlers: handlers,
		server:   server,
		logger:   logger.With("component", "dashboard_server"),
	}
}

// Start runs the WebSocket hub and the periodic snapshot broadcaster, then
// blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.broadcastLoop()

	s.logger.Info("dashboard server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop() error {
	s.logger.Info("stopping dashboard server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// BroadcastEvent pushes evt to every connected client immediately, for
// latency-sensitive events (fills, kill-switch trips) the periodic snapshot
// loop would otherwise delay.
func (s *Server) BroadcastEvent(evt Event) {
	s.hub.BroadcastEvent(evt)
}

func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		s.hub.BroadcastSnapshot(BuildSnapshot(s.provider, s.fullCfg))
	}
}
