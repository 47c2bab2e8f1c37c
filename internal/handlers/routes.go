package handlers

import (
	"github.com/gin-gonic/gin"
	"lab-accession-backend/internal/services"
)

type Handlers struct {
	Accession   *AccessionHandler
	Batches     *BatchesHandler
	Submissions *SubmissionsHandler
	Health      *HealthHandler
}

func NewHandlers(service *services.AccessionService, health *HealthHandler) Handlers {
	return Handlers{
		Accession:   NewAccessionHandler(service),
		Batches:     NewBatchesHandler(service),
		Submissions: NewSubmissionsHandler(service),
		Health:      health,
	}
}

// RegisterRoutes mounts /health and the authenticated /api/v1 routes.
func RegisterRoutes(router *gin.Engine, h Handlers, auth gin.HandlerFunc) {
	router.GET("/health", h.Health.Check)

	api := router.Group("/api/v1")
	api.Use(auth)

	// Draft editing
	api.GET("/accession", h.Accession.GetState)
	api.PUT("/accession/details", h.Accession.SetDetails)
	api.POST("/accession/samples", h.Accession.AddSample)
	api.PATCH("/accession/samples/:sample_key", h.Accession.UpdateSample)
	api.DELETE("/accession/samples/:sample_key", h.Accession.RemoveSample)
	api.POST("/accession/samples/:sample_key/slides", h.Accession.AddSlide)
	api.PATCH("/accession/samples/:sample_key/slides/:slide_key", h.Accession.UpdateSlide)
	api.DELETE("/accession/samples/:sample_key/slides/:slide_key", h.Accession.RemoveSlide)

	// Steps and submission
	api.POST("/accession/next", h.Accession.Next)
	api.POST("/accession/back", h.Accession.Back)
	api.POST("/accession/submit", h.Accession.Submit)
	api.POST("/accession/close", h.Accession.Close)
	api.GET("/accession/progress", h.Accession.Progress)
	api.GET("/accession/notifications", h.Accession.Notifications)
	api.POST("/batches/retry", h.Batches.RetryBatch)

	// History
	api.GET("/submissions", h.Submissions.ListSubmissions)
	api.GET("/submissions/:submission_id", h.Submissions.GetSubmission)
	api.GET("/submissions/:submission_id/manifest", h.Submissions.GetManifest)

	api.GET("/workflow/steps", WorkflowStepsHandler)
}
