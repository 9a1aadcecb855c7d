package handler

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/phishsim/internal/pkg/response"
	"github.com/xxxsen/phishsim/internal/service"
)

type EventHandler struct {
	events *service.EventService
}

func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{events: events}
}

type logActionRequest struct {
	Action  string          `json:"action" binding:"required"`
	Details json.RawMessage `json:"details"`
}

// Track stores the whole request body as the event payload.
func (h *EventHandler) Track(c *gin.Context) {
	limitPayload(c)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if !payloadTooLarge(c, err) {
			badRequest(c, "invalid data")
		}
		return
	}
	if !json.Valid(body) {
		badRequest(c, "invalid data")
		return
	}
	var head struct {
		EventType  string `json:"eventType"`
		CampaignID string `json:"campaignId"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		badRequest(c, "invalid data")
		return
	}
	event, err := h.events.Track(c.Request.Context(), getUserID(c), service.TrackInput{
		EventType:  head.EventType,
		CampaignID: head.CampaignID,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		Payload:    body,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "success", "id": event.ID})
}

func (h *EventHandler) List(c *gin.Context) {
	list, err := h.events.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, list)
}

func (h *EventHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	event, err := h.events.Get(c.Request.Context(), getUserID(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, event)
}

func (h *EventHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.events.Delete(c.Request.Context(), getUserID(c), id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "success"})
}

func (h *EventHandler) DeleteAll(c *gin.Context) {
	deleted, err := h.events.DeleteAll(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "success", "deleted": deleted})
}

func (h *EventHandler) Summary(c *gin.Context) {
	summary, err := h.events.Summary(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, summary)
}

func (h *EventHandler) Aggregated(c *gin.Context) {
	metrics, err := h.events.Aggregated(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"totalClicks": metrics.TotalClicks,
		"totalInputs": metrics.TotalInputs,
		"eventsCount": metrics.TotalEvents,
	})
}

func (h *EventHandler) LogAction(c *gin.Context) {
	var req logActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "action is required")
		return
	}
	entry, err := h.events.LogAction(c.Request.Context(), getUserID(c), req.Action, req.Details)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": entry.ID})
}

func (h *EventHandler) Stats(c *gin.Context) {
	stats, err := h.events.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}
