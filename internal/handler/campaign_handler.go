package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/phishsim/internal/model"
	"github.com/xxxsen/phishsim/internal/pkg/response"
	"github.com/xxxsen/phishsim/internal/service"
)

type CampaignHandler struct {
	campaigns *service.CampaignService
	recorder  service.Recorder
	gate      *service.AccessService
}

func NewCampaignHandler(campaigns *service.CampaignService, recorder service.Recorder, gate *service.AccessService) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, recorder: recorder, gate: gate}
}

type campaignRequest struct {
	StudentEmails []string `json:"studentEmails" binding:"required,min=1"`
	CampaignType  string   `json:"campaignType" binding:"required"`
	Schedule      string   `json:"schedule"`
	ScheduledTime string   `json:"scheduledTime"`
}

func (h *CampaignHandler) Create(c *gin.Context) {
	var req campaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "studentEmails and campaignType are required")
		return
	}
	campaign, err := h.campaigns.Create(c.Request.Context(), getUserID(c), service.CreateCampaignInput{
		StudentEmails: req.StudentEmails,
		CampaignType:  req.CampaignType,
		Schedule:      req.Schedule,
		ScheduledTime: req.ScheduledTime,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	message := "campaign sent"
	if campaign.Schedule == model.ScheduleScheduled {
		message = "campaign scheduled"
	}
	response.Success(c, gin.H{"campaignId": campaign.CampaignID, "message": message})
}

func (h *CampaignHandler) List(c *gin.Context) {
	campaigns, err := h.campaigns.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, campaigns)
}

func (h *CampaignHandler) Get(c *gin.Context) {
	campaign, err := h.campaigns.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, campaign)
}

func (h *CampaignHandler) Submissions(c *gin.Context) {
	ctx := c.Request.Context()
	campaign, err := h.campaigns.Get(ctx, getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	items, err := h.recorder.ListByCampaign(ctx, campaign.CampaignID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, items)
}

// Archive streams the delivered message of a campaign as an .eml download.
func (h *CampaignHandler) Archive(c *gin.Context) {
	rc, err := h.campaigns.Archive(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer func() { _ = rc.Close() }()
	c.DataFromReader(http.StatusOK, -1, "message/rfc822", rc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s.eml"`, c.Param("id")),
	})
}

func (h *CampaignHandler) CheckCampaignAccess(c *gin.Context) {
	ok, err := h.gate.Check(c.Request.Context(), getUserID(c), model.CapabilityStartCampaign)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"can_start_campaign": ok})
}

func (h *CampaignHandler) CheckCrawlAccess(c *gin.Context) {
	ok, err := h.gate.Check(c.Request.Context(), getUserID(c), model.CapabilityStartCrawl)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"can_start_crawl": ok})
}
