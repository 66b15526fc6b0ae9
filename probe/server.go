package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kbukum/graceful/component"
	apperrors "github.com/kbukum/graceful/errors"
	"github.com/kbukum/graceful/logger"
	"github.com/kbukum/graceful/shutdown"
)

const componentName = "probe-server"

// State is the process state the probes report.
type State interface {
	IsReady() bool
	Phase() shutdown.Phase
}

// HealthChecker returns the health of every component.
type HealthChecker func(ctx context.Context) []component.Health

// Server is the probe HTTP server.
type Server struct {
	cfg     Config
	service string
	state   State
	checker HealthChecker
	engine  *gin.Engine
	log     *logger.Logger

	mu   sync.Mutex
	http *http.Server
	addr string
}

var _ component.Component = (*Server)(nil)

// New creates a probe server. checker may be nil.
func New(cfg Config, service string, state State, checker HealthChecker, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	s := &Server{
		cfg:     cfg,
		service: service,
		state:   state,
		checker: checker,
		engine:  gin.New(),
		log:     log.WithComponent("probe"),
	}
	s.engine.Use(s.recovery(), requestID())
	s.engine.GET("/livez", s.liveness)
	s.engine.GET("/readyz", s.readiness)
	s.engine.GET("/status", s.status)
	return s
}

// Handler returns the probe routes as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Name returns the component name used for registration.
func (s *Server) Name() string { return componentName }

// Start binds the port and serves in a goroutine. It returns once the
// listener is bound.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("probe server failed to bind %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
	}
	s.mu.Lock()
	s.http = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("Probe server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.log.Info("Probe server started", logger.Fields("addr", s.addr))
	return nil
}

// Stop shuts the server down, waiting for in-flight probes until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("probe server shutdown: %w", err)
	}
	s.log.Info("Probe server stopped")
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Health reports healthy while serving.
func (s *Server) Health(context.Context) component.Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.http != nil {
		return component.Health{Name: componentName, Status: component.StatusHealthy}
	}
	return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "probe server not running"}
}

func (s *Server) liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   s.service,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) readiness(c *gin.Context) {
	if s.state.Phase() != shutdown.PhaseIdle {
		c.JSON(http.StatusServiceUnavailable, apperrors.ShuttingDown().ToResponse())
		return
	}
	if !s.state.IsReady() {
		c.JSON(http.StatusServiceUnavailable, apperrors.NotReady().ToResponse())
		return
	}
	for _, h := range s.components(c.Request.Context()) {
		if h.Status == component.StatusUnhealthy {
			c.JSON(http.StatusServiceUnavailable, apperrors.NotReady().
				WithDetail("component", h.Name).
				ToResponse())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"service":   s.service,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":    s.service,
		"phase":      s.state.Phase(),
		"ready":      s.state.IsReady(),
		"components": s.components(c.Request.Context()),
	})
}

func (s *Server) components(ctx context.Context) []component.Health {
	if s.checker == nil {
		return []component.Health{}
	}
	return s.checker(ctx)
}

func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("Panic recovered", logger.Fields(
					logger.FieldError, fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
				))
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					apperrors.Internal(fmt.Errorf("%v", r)).ToResponse())
			}
		}()
		c.Next()
	}
}

// requestID echoes or generates an X-Request-Id header.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-Id", id)
		c.Next()
	}
}
