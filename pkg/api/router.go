package api

import (
	"github.com/lumber-labs/lumber-agent/pkg/api/handler"
	"github.com/lumber-labs/lumber-agent/pkg/api/middleware"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	healthHandler := handler.NewHealthHandler(s.agent, s.config.Version)

	// Liveness probes (no auth required)
	s.engine.GET("/health", healthHandler.Live)
	s.engine.GET("/healthz", healthHandler.Live)

	// API v1 group
	v1 := s.engine.Group("/api/v1")
	v1.Use(middleware.Auth(s.config.APIKey))

	// Operation execution
	operationHandler := handler.NewOperationHandler(s.agent, s.config.CompressThreshold, s.log)
	v1.POST("/agent/execute/:connection_type/:operation_name", operationHandler.Execute)

	// Agent diagnostics and offloaded responses
	v1.GET("/agent/health", healthHandler.Agent)
	responseHandler := handler.NewResponseHandler(s.agent)
	v1.GET("/agent/responses/:id", responseHandler.Get)

	// Network troubleshooting
	networkHandler := handler.NewNetworkHandler(s.config.OutboundIPURL)
	v1.GET("/test/network/open", networkHandler.Open)
	v1.GET("/test/network/telnet", networkHandler.Telnet)
	v1.GET("/test/network/dns", networkHandler.DNS)
	v1.GET("/test/network/http", networkHandler.HTTP)
	v1.GET("/test/network/outbound_ip", networkHandler.OutboundIP)
}
