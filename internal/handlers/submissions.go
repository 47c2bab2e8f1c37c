package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"lab-accession-backend/internal/models"
	"lab-accession-backend/internal/services"
)

const (
	defaultSubmissionLimit = 50
	maxSubmissionLimit     = 200
)

type SubmissionsHandler struct {
	service *services.AccessionService
}

func NewSubmissionsHandler(service *services.AccessionService) *SubmissionsHandler {
	return &SubmissionsHandler{service: service}
}

// ListSubmissions godoc
// @Summary     Submission history
// @Tags        submissions
// @Produce     json
// @Security    Bearer
// @Param       limit query int false "Maximum number of records (default 50, max 200)"
// @Success     200 {object} models.SubmissionListResponse
// @Failure     503 {object} models.ErrorResponse
// @Router      /submissions [get]
func (h *SubmissionsHandler) ListSubmissions(c *gin.Context) {
	if h.service == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "accession service not available"})
		return
	}
	operatorID, _, ok := operator(c)
	if !ok {
		return
	}

	limit := defaultSubmissionLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = min(n, maxSubmissionLimit)
	}

	submissions, err := h.service.ListSubmissions(operatorID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response := models.SubmissionListResponse{Submissions: make([]models.SubmissionResponse, 0, len(submissions))}
	for i := range submissions {
		response.Submissions = append(response.Submissions, models.NewSubmissionResponse(&submissions[i]))
	}
	c.JSON(http.StatusOK, response)
}

// GetSubmission godoc
// @Summary     One submission record
// @Tags        submissions
// @Produce     json
// @Security    Bearer
// @Param       submission_id path string true "Submission ID"
// @Success     200 {object} models.SubmissionResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /submissions/{submission_id} [get]
func (h *SubmissionsHandler) GetSubmission(c *gin.Context) {
	if h.service == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "accession service not available"})
		return
	}
	operatorID, _, ok := operator(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("submission_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid submission id"})
		return
	}

	submission, err := h.service.GetSubmission(id, operatorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewSubmissionResponse(submission))
}

// GetManifest godoc
// @Summary     Archived manifest of a submission
// @Tags        submissions
// @Produce     json
// @Security    Bearer
// @Param       submission_id path string true "Submission ID"
// @Success     200 {object} services.Manifest
// @Failure     404 {object} models.ErrorResponse
// @Router      /submissions/{submission_id}/manifest [get]
func (h *SubmissionsHandler) GetManifest(c *gin.Context) {
	if h.service == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "accession service not available"})
		return
	}
	operatorID, _, ok := operator(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("submission_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid submission id"})
		return
	}

	data, err := h.service.GetManifest(id, operatorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}
