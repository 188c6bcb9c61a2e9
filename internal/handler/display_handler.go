package handler

import (
	"net/http"

	"clinic-call-queue/internal/service"
	"clinic-call-queue/pkg/utils"

	"github.com/gin-gonic/gin"
)

// DisplayHandler serves the read-only announcement display
type DisplayHandler struct {
	displayService *service.DisplayService
	connect        gin.HandlerFunc
}

// NewDisplayHandler creates the handler. connect upgrades display
// connections for push notifications and may be nil.
func NewDisplayHandler(displayService *service.DisplayService, connect gin.HandlerFunc) *DisplayHandler {
	return &DisplayHandler{
		displayService: displayService,
		connect:        connect,
	}
}

// RegisterRoutes mounts the display endpoints on g
func (h *DisplayHandler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/calls", h.GetCalls)
	g.GET("/calls/current", h.GetCurrent)
	if h.connect != nil {
		g.GET("/ws", h.connect)
	}
}

// GetCalls returns the call log, most recent first
// GET /api/v1/display/calls?limit=10
func (h *DisplayHandler) GetCalls(c *gin.Context) {
	limit, err := parseLimit(c, 0)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid limit")
		return
	}

	calls, err := h.displayService.Calls(c.Request.Context(), limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Failed to read call log")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"calls": calls,
		"count": len(calls),
	})
}

// GetCurrent returns the call being announced
// GET /api/v1/display/calls/current
func (h *DisplayHandler) GetCurrent(c *gin.Context) {
	current, ok, err := h.displayService.Current(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Failed to read call log")
		return
	}
	if !ok {
		utils.ErrorResponse(c, http.StatusNotFound, "No patient is being called")
		return
	}

	utils.SuccessResponse(c, current)
}
