package api

import (
	"github.com/gin-gonic/gin"
)

func NewRouter(h *Handler) *gin.Engine {
	if !h.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), identify(h.auth, h.cfg.SessionCookieName))

	r.GET("/healthz", h.Health)

	vapi := r.Group("/api/vapi")
	vapi.GET("/generate", h.GenerateHealth)
	vapi.POST("/generate", h.GenerateInterview)
	vapi.POST("/events", h.VapiEvents)
	vapi.POST("/workflow/start", h.StartWorkflow)

	authed := r.Group("/api")
	authed.Use(requireUser())

	authed.POST("/sessions", h.StartSession)
	authed.GET("/sessions/:id", h.GetSession)
	authed.POST("/sessions/:id/end", h.EndSession)
	authed.GET("/sessions/:id/stream", h.Stream)

	authed.GET("/interviews", h.ListInterviews)
	authed.GET("/interviews/latest", h.ListLatestInterviews)
	authed.GET("/interviews/:id", h.GetInterview)
	authed.GET("/interviews/:id/feedback", h.GetInterviewFeedback)
	authed.GET("/feedback", h.ListFeedback)

	return r
}
