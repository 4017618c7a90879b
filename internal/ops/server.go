// Package ops serves the operational HTTP endpoints: Prometheus metrics and a
// health report for the ingestion loop and snapshot writer.
package ops

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"vessel-track-lab/internal/observability"
)

// StateStreaming is the only state reported as healthy.
const StateStreaming = "streaming"

// Status is a point-in-time health report.
type Status struct {
	State        string
	Vessels      int
	LastSnapshot time.Time // zero if nothing was written yet
	LastError    error     // error of the most recent snapshot write
}

// ServerOptions contains configuration for creating a Server.
type ServerOptions struct {
	Addr   string
	Status func() Status
	Logger *zerolog.Logger
}

// Server is the ops HTTP server.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	status func() Status
	logger zerolog.Logger
}

// NewServer creates a server and registers its routes.
func NewServer(opts ServerOptions) *Server {
	gin.SetMode(gin.ReleaseMode)

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "ops").Logger()
	}

	status := opts.Status
	if status == nil {
		status = func() Status { return Status{} }
	}

	s := &Server{
		engine: gin.New(),
		status: status,
		logger: logger,
	}
	s.engine.Use(gin.Recovery())
	s.setupRoutes()

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/metrics", gin.WrapH(observability.Handler()))
	s.engine.GET("/health", s.getHealth)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.http.Addr).Msg("starting ops server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve ops http: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type healthResponse struct {
	Status       string  `json:"status"`
	State        string  `json:"state"`
	Vessels      int     `json:"vessels"`
	LastSnapshot *string `json:"last_snapshot"`
	LastError    string  `json:"last_error,omitempty"`
}

func (s *Server) getHealth(c *gin.Context) {
	st := s.status()

	resp := healthResponse{
		Status:  "ok",
		State:   st.State,
		Vessels: st.Vessels,
	}
	if !st.LastSnapshot.IsZero() {
		ts := st.LastSnapshot.UTC().Format(time.RFC3339Nano)
		resp.LastSnapshot = &ts
	}
	if st.LastError != nil {
		resp.LastError = st.LastError.Error()
	}

	code := http.StatusOK
	if st.State != StateStreaming {
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}
