package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/vardakademi/gdprguard/internal/account"
	"github.com/vardakademi/gdprguard/internal/config"
	"github.com/vardakademi/gdprguard/internal/escalation"
	"github.com/vardakademi/gdprguard/internal/guard"
	"github.com/vardakademi/gdprguard/internal/logger"
	"github.com/vardakademi/gdprguard/internal/websocket"
	"go.uber.org/zap"
)

// statusInterval is how often service health is pushed to connected tabs.
const statusInterval = 30 * time.Second

// AccountDirectory provisions trainee accounts and exposes their violation
// status. Accounts must exist before their submissions can be scanned.
type AccountDirectory interface {
	CreateAccount(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (*account.Account, error)
}

// SessionRegistrar records active browser sessions so a later lockout can
// terminate them across tabs and devices.
type SessionRegistrar interface {
	RegisterSession(ctx context.Context, userID, sessionID string) error
}

// Server exposes the guard over HTTP to the platform frontend and backend.
type Server struct {
	config    *config.Config
	logger    *logger.Logger
	guard     *guard.Guard
	tracker   *escalation.Tracker
	accounts  AccountDirectory
	sessions  SessionRegistrar
	router    *mux.Router
	server    *http.Server
	wsHub     *websocket.Hub
	limiter   *clientLimiter
	startTime time.Time
}

// New creates a new guard server instance
func New(cfg *config.Config, log *logger.Logger, g *guard.Guard, tracker *escalation.Tracker, hub *websocket.Hub, accounts AccountDirectory, sessions SessionRegistrar) *Server {
	router := mux.NewRouter()

	s := &Server{
		config:    cfg,
		logger:    log.WithComponent("server"),
		guard:     g,
		tracker:   tracker,
		accounts:  accounts,
		sessions:  sessions,
		router:    router,
		wsHub:     hub,
		limiter:   newClientLimiter(cfg.Server.RateLimit.RequestsPerMin, cfg.Server.RateLimit.Burst),
		startTime: time.Now(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Info endpoint
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	// WebSocket endpoint for violation/lockout notices
	s.router.HandleFunc(s.config.WebSocket.Path, s.handleWebSocket).Methods("GET")

	// Guard API
	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/submissions/scan", s.handleSubmissionScan).Methods("POST")
	api.HandleFunc("/uploads/scan", s.handleUploadScan).Methods("POST")
	api.HandleFunc("/responses/sanitize", s.handleSanitizeResponse).Methods("POST")
	api.HandleFunc("/redact", s.handleRedact).Methods("POST")
	api.HandleFunc("/accounts", s.handleCreateAccount).Methods("POST")
	api.HandleFunc("/accounts/{user_id}", s.handleAccountStatus).Methods("GET")
	api.HandleFunc("/sessions", s.handleRegisterSession).Methods("POST")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting GDPR guard server",
		zap.Int("port", s.config.Server.Port),
		zap.Strings("categories", s.guard.EnabledCategories()),
		zap.Int("violation_threshold", s.tracker.Threshold()),
	)

	// Start WebSocket hub in a separate goroutine
	go s.wsHub.Run()
	go s.statusLoop()

	return s.server.ListenAndServe()
}

// statusLoop periodically pushes service health to connected tabs.
func (s *Server) statusLoop() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for range ticker.C {
		s.publishSystemStatus()
	}
}

func (s *Server) publishSystemStatus() {
	s.wsHub.PublishSystemStatus(time.Since(s.startTime), len(s.guard.EnabledCategories()))
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping GDPR guard server")
	return s.server.Shutdown(ctx)
}

// Router exposes the handler tree, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{
		"name":"gdprguard",
		"version":"0.1.0",
		"uptime":"%s",
		"guard_enabled":%t,
		"violation_threshold":%d,
		"categories_count":%d
	}`, time.Since(s.startTime).Round(time.Second), s.config.Guard.Enabled, s.tracker.Threshold(), len(s.guard.EnabledCategories()))
}

// handleWebSocket handles WebSocket connections for violation notices
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}
