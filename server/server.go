package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tienminhktvn/dataops-project/logger"
	"github.com/tienminhktvn/dataops-project/server/endpoint"
	"github.com/tienminhktvn/dataops-project/server/middleware"
	"github.com/tienminhktvn/dataops-project/sse"
)

// APIPrefix is the base path of the run API.
const APIPrefix = "/api/v1"

// Server is the HTTP API backed by Gin. The middleware stack wraps the whole
// engine, so 404s and probes pass through it too.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	handler    http.Handler
	tlsConfig  *tls.Config
	config     Config
	log        *logger.Logger

	mu       sync.Mutex
	listener net.Listener
}

// New creates a Server. Without TLS the handler also speaks h2c.
func New(cfg Config, log *logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.Get("server")
	}
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	tlsConfig, err := cfg.TLS.BuildServer()
	if err != nil {
		return nil, fmt.Errorf("server tls: %w", err)
	}

	s := &Server{
		engine:    gin.New(),
		tlsConfig: tlsConfig,
		config:    cfg,
		log:       log.WithComponent("server"),
	}
	s.handler = middleware.Chain(
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.CORS(cfg.CORS),
		middleware.BodySizeLimit(cfg.MaxBodySize),
		middleware.RequestLogger(s.log),
	)(s.engine)

	h2s := &http2.Server{
		MaxConcurrentStreams: 100,
		IdleTimeout:          seconds(cfg.IdleTimeout),
	}
	handler := s.handler
	if tlsConfig == nil {
		handler = h2c.NewHandler(s.handler, h2s)
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		TLSConfig:         tlsConfig,
		ReadTimeout:       seconds(cfg.ReadTimeout),
		ReadHeaderTimeout: seconds(cfg.ReadTimeout),
		WriteTimeout:      seconds(cfg.WriteTimeout),
		IdleTimeout:       seconds(cfg.IdleTimeout),
	}
	if tlsConfig != nil {
		if err := http2.ConfigureServer(s.httpServer, h2s); err != nil {
			return nil, fmt.Errorf("server http2: %w", err)
		}
	}
	return s, nil
}

// GinEngine returns the underlying Gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Use adds gin middleware, such as request tracing, to routes registered
// afterwards.
func (s *Server) Use(handlers ...gin.HandlerFunc) {
	s.engine.Use(handlers...)
}

// Handler is the engine wrapped in the middleware stack, for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// RegisterDefaultEndpoints registers /health, /alive, /ready and /version.
func (s *Server) RegisterDefaultEndpoints(serviceName string, checker endpoint.HealthChecker) {
	s.engine.GET("/health", endpoint.Health(serviceName, checker))
	s.engine.GET("/alive", endpoint.Liveness(serviceName))
	s.engine.GET("/ready", endpoint.Readiness(serviceName, checker))
	s.engine.GET("/version", endpoint.Version())
}

// RegisterRunEndpoints mounts the run API. Triggering and cancelling need
// the API token when one is configured; triggering is rate limited per
// client.
func (s *Server) RegisterRunEndpoints(runs endpoint.RunService, plan endpoint.PlanSource, sched endpoint.ScheduleSource) {
	api := s.engine.Group(APIPrefix)
	guard := middleware.BearerToken(s.config.APIToken)
	limit := middleware.RateLimit(middleware.RateLimitConfig{
		Name:  "trigger",
		Rate:  s.config.TriggerRate,
		Burst: s.config.TriggerBurst,
	})

	api.GET("/runs", endpoint.ListRuns(runs))
	api.GET("/runs/:id", endpoint.GetRun(runs))
	api.POST("/runs", guard, limit, endpoint.TriggerRun(runs))
	api.POST("/runs/:id/cancel", guard, endpoint.CancelRun(runs))
	api.GET("/plan", endpoint.Plan(plan, sched))
}

// RegisterEventStream mounts GET /api/v1/events, the live run progress
// stream. Like the other read routes it needs no token.
func (s *Server) RegisterEventStream(hub *sse.Hub, cfg sse.Config) {
	s.engine.GET(APIPrefix+"/events", sse.Handler(hub, cfg))
}

// RegisterMetrics mounts a scrape handler, typically the Prometheus
// registry, at path.
func (s *Server) RegisterMetrics(path string, h http.Handler) {
	s.engine.GET(path, gin.WrapH(h))
}

// Start binds the port and serves in a goroutine. It returns once the
// listener is bound.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.httpServer.TLSConfig)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields("addr", ln.Addr().String(), "tls", s.tlsConfig != nil))
	return nil
}

// Stop drains in-flight requests for up to ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, seconds(s.config.ShutdownTimeout))
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("server shutdown error", logger.Fields(logger.FieldError, err.Error()))
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// Addr returns the bound address once started, otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// started reports whether Start bound a listener.
func (s *Server) started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

