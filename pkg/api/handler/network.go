package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumber-labs/lumber-agent/pkg/api/dto"
	"github.com/lumber-labs/lumber-agent/pkg/api/middleware"
	"github.com/lumber-labs/lumber-agent/pkg/network"
)

// NetworkHandler handles connectivity troubleshooting requests.
type NetworkHandler struct {
	outboundIPURL string
}

// NewNetworkHandler creates a new NetworkHandler.
func NewNetworkHandler(outboundIPURL string) *NetworkHandler {
	return &NetworkHandler{outboundIPURL: outboundIPURL}
}

func (h *NetworkHandler) writeResult(c *gin.Context, result map[string]any, err error) {
	if err != nil {
		writeError(c, err, middleware.TraceID(c))
		return
	}
	c.JSON(http.StatusOK, dto.NetworkTestResponse{
		Result:  result,
		TraceID: middleware.TraceID(c),
	})
}

// Open godoc
// @Summary      TCP open check
// @Description  Tests whether host:port accepts a TCP connection
// @Tags         network
// @Produce      json
// @Param        host query string true "Host to check"
// @Param        port query string true "Port to check"
// @Param        timeout query string false "Timeout in seconds, default 5"
// @Success      200 {object} dto.NetworkTestResponse
// @Failure      400 {object} dto.ErrorResponse
// @Failure      502 {object} dto.ErrorResponse
// @Router       /api/v1/test/network/open [get]
func (h *NetworkHandler) Open(c *gin.Context) {
	result, err := network.ValidateTCPOpen(c.Request.Context(),
		c.Query("host"), c.Query("port"), c.Query("timeout"))
	h.writeResult(c, result, err)
}

// Telnet godoc
// @Summary      Telnet-style probe
// @Description  Connects and verifies the peer keeps the connection open
// @Tags         network
// @Produce      json
// @Param        host query string true "Host to check"
// @Param        port query string true "Port to check"
// @Param        timeout query string false "Timeout in seconds, default 5"
// @Success      200 {object} dto.NetworkTestResponse
// @Failure      400 {object} dto.ErrorResponse
// @Failure      502 {object} dto.ErrorResponse
// @Router       /api/v1/test/network/telnet [get]
func (h *NetworkHandler) Telnet(c *gin.Context) {
	result, err := network.ValidateTelnet(c.Request.Context(),
		c.Query("host"), c.Query("port"), c.Query("timeout"))
	h.writeResult(c, result, err)
}

// DNS godoc
// @Summary      DNS lookup
// @Description  Resolves the host's addresses and names
// @Tags         network
// @Produce      json
// @Param        host query string true "Host to resolve"
// @Param        port query string false "Port to join to each address"
// @Success      200 {object} dto.NetworkTestResponse
// @Failure      400 {object} dto.ErrorResponse
// @Failure      502 {object} dto.ErrorResponse
// @Router       /api/v1/test/network/dns [get]
func (h *NetworkHandler) DNS(c *gin.Context) {
	result, err := network.PerformDNSLookup(c.Request.Context(),
		c.Query("host"), c.Query("port"))
	h.writeResult(c, result, err)
}

// HTTP godoc
// @Summary      Outbound HTTP check
// @Description  Performs a GET request against the given URL
// @Tags         network
// @Produce      json
// @Param        url query string true "URL to test"
// @Param        include_response query string false "Include the response body when true"
// @Param        timeout query string false "Timeout in seconds, default 10"
// @Success      200 {object} dto.NetworkTestResponse
// @Failure      400 {object} dto.ErrorResponse
// @Failure      502 {object} dto.ErrorResponse
// @Router       /api/v1/test/network/http [get]
func (h *NetworkHandler) HTTP(c *gin.Context) {
	result, err := network.ValidateHTTP(c.Request.Context(),
		c.Query("url"), c.Query("include_response"), c.Query("timeout"))
	h.writeResult(c, result, err)
}

// OutboundIP godoc
// @Summary      Outbound IP address
// @Description  Reports the public address the agent's outbound traffic uses
// @Tags         network
// @Produce      json
// @Success      200 {object} dto.NetworkTestResponse
// @Failure      502 {object} dto.ErrorResponse
// @Router       /api/v1/test/network/outbound_ip [get]
func (h *NetworkHandler) OutboundIP(c *gin.Context) {
	result, err := network.OutboundIP(c.Request.Context(), h.outboundIPURL)
	h.writeResult(c, result, err)
}
