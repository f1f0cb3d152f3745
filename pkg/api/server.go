// @title           Lumber Agent API
// @version         1.0
// @description     Remote execution agent API.
// @host            localhost:8081
// @BasePath        /

package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumber-labs/lumber-agent/pkg/agent"
	"github.com/lumber-labs/lumber-agent/pkg/api/middleware"
)

// Config defines the HTTP server settings.
type Config struct {
	Addr   string
	APIKey string

	// CompressThreshold is the response size above which
	// compression-enabled operations get gzipped responses.
	CompressThreshold int

	// OutboundIPURL is the echo service for the outbound-ip network test.
	OutboundIPURL string

	Version string
}

// Server hosts the Gin engine and manages API resources.
type Server struct {
	engine *gin.Engine
	config Config
	agent  *agent.Agent
	log    *slog.Logger
}

// NewServer constructs the HTTP API server.
func NewServer(cfg Config, a *agent.Agent, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	if cfg.Addr == "" {
		cfg.Addr = ":8081"
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Logger(log))

	srv := &Server{
		engine: engine,
		config: cfg,
		agent:  a,
		log:    log,
	}

	srv.setupRoutes()

	return srv
}

// Engine returns the underlying Gin engine (for http.Server).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the configured address.
func (s *Server) Addr() string {
	return s.config.Addr
}

// Run starts the HTTP server on the configured address.
func (s *Server) Run() error {
	s.log.Info("http api listening", "addr", s.config.Addr)
	return http.ListenAndServe(s.config.Addr, s.engine)
}
