package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"clinic-call-queue/internal/calllog"
	"clinic-call-queue/internal/queue"
	"clinic-call-queue/internal/service"
	"clinic-call-queue/pkg/utils"

	"github.com/gin-gonic/gin"
)

type QueueHandler struct {
	queueService *service.QueueService
}

func NewQueueHandler(queueService *service.QueueService) *QueueHandler {
	return &QueueHandler{
		queueService: queueService,
	}
}

// CallRequest is the body of the call endpoints
type CallRequest struct {
	Room string `json:"room"`
}

// RegisterRoutes mounts the operator endpoints on g
func (h *QueueHandler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("", h.GetQueue)
	g.GET("/activity", h.GetActivity)
	g.POST("/call-next", h.CallNext)
	g.POST("/patients/:name/call", h.CallPatient)
	g.POST("/patients/:name/revert", h.RevertPatient)
}

// GetQueue returns the waiting and called lists
// GET /api/v1/queue
func (h *QueueHandler) GetQueue(c *gin.Context) {
	utils.SuccessResponse(c, h.queueService.Snapshot())
}

// CallNext calls the first waiting patient
// POST /api/v1/queue/call-next
func (h *QueueHandler) CallNext(c *gin.Context) {
	req, ok := bindCallRequest(c)
	if !ok {
		return
	}

	result, called, err := h.queueService.CallNext(c.Request.Context(), req.Room)
	if err != nil {
		writeQueueError(c, err)
		return
	}
	if !called {
		utils.SuccessResponse(c, gin.H{
			"called":  false,
			"message": "No patients waiting",
		})
		return
	}

	utils.SuccessResponse(c, gin.H{
		"called":  true,
		"patient": result.Patient,
		"record":  result.Record,
	})
}

// CallPatient calls a specific waiting patient
// POST /api/v1/queue/patients/:name/call
func (h *QueueHandler) CallPatient(c *gin.Context) {
	req, ok := bindCallRequest(c)
	if !ok {
		return
	}

	result, err := h.queueService.CallPatient(c.Request.Context(), c.Param("name"), req.Room)
	if err != nil {
		writeQueueError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"called":  true,
		"patient": result.Patient,
		"record":  result.Record,
	})
}

// RevertPatient returns a called patient to the waiting list
// POST /api/v1/queue/patients/:name/revert
func (h *QueueHandler) RevertPatient(c *gin.Context) {
	patient, err := h.queueService.RevertPatient(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeQueueError(c, err)
		return
	}

	utils.SuccessResponse(c, patient)
}

// GetActivity returns recent audited commands
// GET /api/v1/queue/activity?limit=50
func (h *QueueHandler) GetActivity(c *gin.Context) {
	limit, err := parseLimit(c, 50)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid limit")
		return
	}

	logs, err := h.queueService.Activity(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, service.ErrAuditDisabled) {
			utils.ErrorResponse(c, http.StatusNotFound, err.Error())
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to fetch activity")
		return
	}

	utils.SuccessResponse(c, logs)
}

// bindCallRequest accepts an empty body as an empty room so the missing room
// is reported by the service like any other missing room
func bindCallRequest(c *gin.Context) (CallRequest, bool) {
	var req CallRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	return req, true
}

func writeQueueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMissingRoom):
		utils.CodedErrorResponse(c, http.StatusUnprocessableEntity, "missing_room", "Please provide the room before calling a patient")
	case errors.Is(err, queue.ErrNotFound):
		utils.CodedErrorResponse(c, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, queue.ErrInvalidState):
		utils.CodedErrorResponse(c, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, calllog.ErrDuplicateRecord):
		utils.CodedErrorResponse(c, http.StatusConflict, "already_called", err.Error())
	case errors.Is(err, calllog.ErrVersionConflict):
		utils.CodedErrorResponse(c, http.StatusConflict, "call_log_conflict", "The call log was changed by another operator, please retry")
	case calllog.IsPersistence(err):
		utils.CodedErrorResponse(c, http.StatusServiceUnavailable, "persistence_error", "The call log could not be saved, please retry")
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, "Unexpected error")
	}
}

func parseLimit(c *gin.Context, defaultLimit int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.New("invalid limit")
	}
	return limit, nil
}
