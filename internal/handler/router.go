package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/phishsim/internal/middleware"
	"github.com/xxxsen/phishsim/internal/service"
)

type RouterDeps struct {
	Auth        *AuthHandler
	Campaigns   *CampaignHandler
	Submissions *SubmissionHandler
	Events      *EventHandler
	Admin       *AdminHandler
	Verifier    middleware.TokenVerifier
	Gate        *service.AccessService
	Limiter     middleware.Limiter
	RateWindow  time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	limited := []gin.HandlerFunc{}
	if deps.Limiter != nil {
		limited = append(limited, middleware.RateLimit(deps.Limiter, deps.RateWindow))
	}

	authGroup := api.Group("/auth", limited...)
	authGroup.POST("/register", deps.Auth.Register)
	authGroup.POST("/login", deps.Auth.Login)
	authGroup.POST("/refresh", deps.Auth.Refresh)
	api.GET("/verify-email", deps.Auth.VerifyEmail)

	capture := append(append([]gin.HandlerFunc{}, limited...), middleware.JWTAuth(deps.Verifier), deps.Submissions.FakeSubmission)
	api.POST("/fake-submission", capture...)

	protected := api.Group("")
	protected.Use(middleware.JWTAuth(deps.Verifier))
	protected.GET("/profile", deps.Auth.Profile)
	protected.PUT("/profile", deps.Auth.UpdateProfile)

	protected.POST("/campaign", deps.Campaigns.Create)
	protected.GET("/campaigns", deps.Campaigns.List)
	protected.GET("/campaigns/:id", deps.Campaigns.Get)
	protected.GET("/campaigns/:id/submissions", deps.Campaigns.Submissions)
	protected.GET("/campaigns/:id/archive", deps.Campaigns.Archive)
	protected.GET("/check-campaign-access", deps.Campaigns.CheckCampaignAccess)
	protected.GET("/check-crawl-access", deps.Campaigns.CheckCrawlAccess)

	protected.POST("/track", deps.Events.Track)
	protected.GET("/events", deps.Events.List)
	protected.GET("/events/summary", deps.Events.Summary)
	protected.DELETE("/events/all", deps.Events.DeleteAll)
	protected.GET("/events/:id", deps.Events.Get)
	protected.DELETE("/events/:id", deps.Events.Delete)
	protected.GET("/aggregated-metrics", deps.Events.Aggregated)
	protected.POST("/log-action", deps.Events.LogAction)
	protected.GET("/stats", deps.Events.Stats)

	admin := api.Group("/admin")
	admin.Use(middleware.JWTAuth(deps.Verifier), middleware.RequireAdmin(deps.Gate))
	admin.GET("/users", deps.Admin.Users)
	admin.POST("/toggle-crawl-access", deps.Admin.ToggleCrawlAccess)
	admin.POST("/toggle-campaign-access", deps.Admin.ToggleCampaignAccess)
	admin.POST("/delete-user", deps.Admin.DeleteUser)
	admin.POST("/bulk-delete", deps.Admin.BulkDelete)
}
