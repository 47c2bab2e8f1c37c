package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"lab-accession-backend/internal/models"
	"lab-accession-backend/internal/services"
)

type BatchesHandler struct {
	service *services.AccessionService
}

func NewBatchesHandler(service *services.AccessionService) *BatchesHandler {
	return &BatchesHandler{service: service}
}

// RetryBatch godoc
// @Summary     Retry batch creation only
// @Description Creates the batch for samples that already exist on the lab API. With no sample_ids, the partial ids of the operator's last recoverable failure are used.
// @Tags        batches
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.RetryBatchRequest false "Sample ids"
// @Success     200 {object} models.SubmitResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /batches/retry [post]
func (h *BatchesHandler) RetryBatch(c *gin.Context) {
	if h.service == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "accession service not available"})
		return
	}
	operatorID, token, ok := operator(c)
	if !ok {
		return
	}

	var req models.RetryBatchRequest
	// Without a body the last recoverable failure's sample ids are used.
	if !bindOptionalJSON(c, &req) {
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	id, out, err := h.service.RetryBatch(ctx, operatorID, token, req.SampleIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SubmitResponse{SubmissionID: id.String(), Outcome: out})
}
