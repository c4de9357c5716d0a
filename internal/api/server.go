package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/privatepub/internal/audit"
	"github.com/nerrad567/privatepub/internal/events"
	"github.com/nerrad567/privatepub/internal/infrastructure/config"
	"github.com/nerrad567/privatepub/internal/infrastructure/database"
	"github.com/nerrad567/privatepub/internal/infrastructure/logging"
	"github.com/nerrad567/privatepub/internal/infrastructure/metrics"
	"github.com/nerrad567/privatepub/internal/publisher"
	"github.com/nerrad567/privatepub/internal/pubsub"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ConnectionChecker reports whether an optional backend is connected.
type ConnectionChecker interface {
	IsConnected() bool
}

// TicketRecorder receives ticket telemetry.
type TicketRecorder interface {
	RecordTicket()
	RecordVerification(result string)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Security  config.SecurityConfig
	Logger    *logging.Logger
	Signer    *pubsub.Signer
	Publisher *publisher.Publisher
	Adapter   *events.Adapter
	Audit     *audit.Recorder   // optional
	Metrics   *metrics.Metrics  // optional
	Tickets   []TicketRecorder  // optional, fed alongside Metrics
	MQTT      ConnectionChecker // optional, reported by /status
	InfluxDB  ConnectionChecker // optional, reported by /status
	DB        *database.DB      // optional, reported by /status
	Version   string
}

// Server is the HTTP API server.
//
// It is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	jwtSecret []byte
	logger    *logging.Logger
	signer    *pubsub.Signer
	publisher *publisher.Publisher
	adapter   *events.Adapter
	audit     *audit.Recorder
	metrics   *metrics.Metrics
	tickets   []TicketRecorder
	mqtt      ConnectionChecker
	influx    ConnectionChecker
	db        *database.DB
	version   string
	startTime time.Time
	hub       *Hub

	mu     sync.Mutex
	server *http.Server
	cancel context.CancelFunc // stops the hub on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if deps.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if deps.Adapter == nil {
		return nil, fmt.Errorf("event adapter is required")
	}
	if deps.Security.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	tickets := append([]TicketRecorder(nil), deps.Tickets...)
	if deps.Metrics != nil {
		tickets = append(tickets, deps.Metrics)
	}

	return &Server{
		cfg:       deps.Config,
		jwtSecret: []byte(deps.Security.JWT.Secret),
		logger:    deps.Logger,
		signer:    deps.Signer,
		publisher: deps.Publisher,
		adapter:   deps.Adapter,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
		tickets:   tickets,
		mqtt:      deps.MQTT,
		influx:    deps.InfluxDB,
		db:        deps.DB,
		version:   deps.Version,
		startTime: time.Now(),
		hub:       NewHub(deps.Logger),
	}, nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	var hubCtx context.Context
	hubCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(hubCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.ReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.WriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.IdleTimeout(),
	}

	srv := s.server
	go func() {
		s.logger.Info("API server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// Broker connections are closed first, then in-flight requests get up to
// 10 seconds to complete.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)
	s.server = nil
	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
