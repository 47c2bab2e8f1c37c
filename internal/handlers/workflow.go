package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"lab-accession-backend/internal/models"
)

// WorkflowStepsHandler godoc
// @Summary     Sample workflow statuses
// @Description The ordered processing steps shown by the dashboard's progress stepper.
// @Tags        workflow
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.WorkflowStepsResponse
// @Router      /workflow/steps [get]
func WorkflowStepsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, models.NewWorkflowStepsResponse())
}
