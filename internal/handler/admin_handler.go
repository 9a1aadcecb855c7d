package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/phishsim/internal/model"
	"github.com/xxxsen/phishsim/internal/pkg/response"
	"github.com/xxxsen/phishsim/internal/service"
)

type AdminHandler struct {
	admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

type toggleCrawlRequest struct {
	UserID        int64 `json:"userId" binding:"required"`
	CanStartCrawl *bool `json:"can_start_crawl" binding:"required"`
}

type toggleCampaignRequest struct {
	UserID           int64 `json:"userId" binding:"required"`
	CanStartCampaign *bool `json:"can_start_campaign" binding:"required"`
}

type deleteUserRequest struct {
	UserID int64 `json:"userId" binding:"required"`
}

type bulkDeleteRequest struct {
	UserIDs []int64 `json:"userIds" binding:"required,min=1"`
}

func (h *AdminHandler) Users(c *gin.Context) {
	users, err := h.admin.ListUsers(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, users)
}

func (h *AdminHandler) ToggleCrawlAccess(c *gin.Context) {
	var req toggleCrawlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "userId and can_start_crawl are required")
		return
	}
	if err := h.admin.SetCapability(c.Request.Context(), req.UserID, model.CapabilityStartCrawl, *req.CanStartCrawl); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"success": true})
}

func (h *AdminHandler) ToggleCampaignAccess(c *gin.Context) {
	var req toggleCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "userId and can_start_campaign are required")
		return
	}
	if err := h.admin.SetCapability(c.Request.Context(), req.UserID, model.CapabilityStartCampaign, *req.CanStartCampaign); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"success": true})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	var req deleteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "userId is required")
		return
	}
	if err := h.admin.DeleteUser(c.Request.Context(), req.UserID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"success": true})
}

func (h *AdminHandler) BulkDelete(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "userIds is required")
		return
	}
	deleted, err := h.admin.BulkDelete(c.Request.Context(), req.UserIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"success": true, "deleted": deleted})
}
