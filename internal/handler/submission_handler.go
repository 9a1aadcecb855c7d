package handler

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/phishsim/internal/model"
	"github.com/xxxsen/phishsim/internal/pkg/response"
	"github.com/xxxsen/phishsim/internal/service"
)

type SubmissionHandler struct {
	recorder service.Recorder
}

func NewSubmissionHandler(recorder service.Recorder) *SubmissionHandler {
	return &SubmissionHandler{recorder: recorder}
}

type submissionRequest struct {
	CampaignID     string          `json:"campaignId"`
	Type           string          `json:"type"`
	Username       string          `json:"username"`
	Password       string          `json:"password"`
	Name           string          `json:"name"`
	Address        string          `json:"address"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	AdditionalData json.RawMessage `json:"additionalData"`
}

// FakeSubmission takes captures from decoy pages on behalf of the
// authenticated caller.
func (h *SubmissionHandler) FakeSubmission(c *gin.Context) {
	limitPayload(c)
	var req submissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if payloadTooLarge(c, err) {
			return
		}
		badRequest(c, "invalid submission")
		return
	}
	if len(req.AdditionalData) > 0 && !json.Valid(req.AdditionalData) {
		badRequest(c, "invalid additionalData")
		return
	}
	userID := getUserID(c)
	sub := &model.Submission{
		CampaignID:     req.CampaignID,
		CampaignType:   req.Type,
		Username:       req.Username,
		Password:       req.Password,
		Name:           req.Name,
		Address:        req.Address,
		Phone:          req.Phone,
		Email:          req.Email,
		IPAddress:      c.ClientIP(),
		UserAgent:      c.Request.UserAgent(),
		AdditionalData: req.AdditionalData,
		UserID:         &userID,
	}
	if err := h.recorder.Record(c.Request.Context(), sub); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "submission recorded", "id": sub.ID})
}
