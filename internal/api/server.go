// Package api provides the HTTP REST surface of Shelfbridge.
//
// It exposes the inventory operations (shelves, positions, lights) to
// warehouse tooling, plus health and Prometheus metrics endpoints.
//
// The server follows the same lifecycle pattern as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shelfbridge/shelfbridge/internal/infrastructure/config"
	"github.com/shelfbridge/shelfbridge/internal/infrastructure/logging"
	"github.com/shelfbridge/shelfbridge/internal/inventory"
)

// Inventory is the slice of the inventory manager the handlers consume.
// *inventory.Manager satisfies this.
type Inventory interface {
	CreateShelf(shelfNumber int, deviceAddress string) error
	DeleteShelf(ctx context.Context, shelfNumber int) error
	Shelves() []inventory.Shelf
	Positions(shelfNumber int) ([]inventory.Position, error)
	UnassignedAddresses() []string

	CreatePosition(ctx context.Context, shelfNumber, positionID int, leds []int) error
	UpdatePosition(ctx context.Context, shelfNumber, positionID int, leds []int) error
	DeletePosition(ctx context.Context, shelfNumber, positionID int) error

	TurnOn(ctx context.Context, shelfNumber, positionID int, color string) error
	TurnOff(ctx context.Context, shelfNumber, positionID int) error
	TurnOnAll(ctx context.Context, shelfNumber int, color string) error
	TurnOffAll(ctx context.Context, shelfNumber int) error
	SetLEDs(ctx context.Context, deviceAddress string, leds []int, color string) error
	UnsetLEDs(ctx context.Context, deviceAddress string, leds []int) error

	PullFromDevice(shelfNumber int) error
	PushToDevice(ctx context.Context, shelfNumber int) ([]int, error)
	ResetDevice(ctx context.Context, deviceAddress string) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Logger    *logging.Logger
	Inventory Inventory
	Metrics   *Metrics // Optional; /metrics returns 404 when nil
	Version   string
}

// Server is the HTTP API server for Shelfbridge.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	inventory Inventory
	metrics   *Metrics
	version   string
	server    *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, inventory)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Inventory == nil {
		return nil, fmt.Errorf("inventory is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		inventory: deps.Inventory,
		metrics:   deps.Metrics,
		version:   deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router and launches the HTTP listener in a background
// goroutine. The server is stopped with Close().
//
// Parameters:
//   - ctx: Context for startup only; listener lifetime is governed by Close()
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Close gracefully shuts down the API server, waiting for in-flight
// requests to complete.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
