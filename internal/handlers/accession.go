package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"lab-accession-backend/internal/accession"
	"lab-accession-backend/internal/models"
	"lab-accession-backend/internal/services"
)

type AccessionHandler struct {
	service *services.AccessionService
}

func NewAccessionHandler(service *services.AccessionService) *AccessionHandler {
	return &AccessionHandler{service: service}
}

// workflow resolves the caller's workflow, writing the error response when it
// cannot.
func (h *AccessionHandler) workflow(c *gin.Context) (*accession.Workflow, bool) {
	if h.service == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "accession service not available"})
		return nil, false
	}
	operatorID, token, ok := operator(c)
	if !ok {
		return nil, false
	}
	return h.service.Workflow(operatorID, token), true
}

// GetState godoc
// @Summary     Current accession workflow
// @Description Returns the operator's draft, step, progress and last result.
// @Tags        accession
// @Produce     json
// @Security    Bearer
// @Success     200 {object} accession.State
// @Failure     401 {object} models.ErrorResponse
// @Router      /accession [get]
func (h *AccessionHandler) GetState(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, wf.State())
}

// SetDetails godoc
// @Summary     Set accession details
// @Tags        accession
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.DetailsRequest true "Customer, order id, received date and notes"
// @Success     200 {object} accession.State
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /accession/details [put]
func (h *AccessionHandler) SetDetails(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}

	var req models.DetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	err := wf.Form().SetDetails(accession.Details{
		Customer:   req.Customer,
		OrderID:    req.OrderID,
		ReceivedOn: req.ReceivedOn,
		Notes:      req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wf.State())
}

// AddSample godoc
// @Summary     Add a sample to the draft
// @Tags        accession
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.SampleRequest false "Sample barcode, may be empty"
// @Success     201 {object} models.KeyResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /accession/samples [post]
func (h *AccessionHandler) AddSample(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}

	var req models.SampleRequest
	// Body is optional; the dashboard adds empty rows.
	if !bindOptionalJSON(c, &req) {
		return
	}

	key, err := wf.Form().AddSample(req.Barcode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.KeyResponse{Key: key})
}

func (h *AccessionHandler) UpdateSample(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}

	var req models.SampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	if err := wf.Form().UpdateSample(c.Param("sample_key"), req.Barcode); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wf.State())
}

func (h *AccessionHandler) RemoveSample(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}

	if err := wf.Form().RemoveSample(c.Param("sample_key")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AccessionHandler) AddSlide(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}

	var req models.SlideRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	key, err := wf.Form().AddSlide(c.Param("sample_key"), accession.DraftSlide{
		Barcode:     req.Barcode,
		Annotations: req.Annotations,
		ScanTime:    req.ScanTime,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.KeyResponse{Key: key})
}

func (h *AccessionHandler) UpdateSlide(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}

	var req models.SlideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	err := wf.Form().UpdateSlide(c.Param("sample_key"), c.Param("slide_key"), accession.DraftSlide{
		Barcode:     req.Barcode,
		Annotations: req.Annotations,
		ScanTime:    req.ScanTime,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wf.State())
}

func (h *AccessionHandler) RemoveSlide(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}

	if err := wf.Form().RemoveSlide(c.Param("sample_key"), c.Param("slide_key")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Next godoc
// @Summary     Validate the draft and move to review
// @Tags        accession
// @Produce     json
// @Security    Bearer
// @Success     200 {object} accession.State
// @Failure     422 {object} models.ErrorResponse
// @Router      /accession/next [post]
func (h *AccessionHandler) Next(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}

	if err := wf.Next(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wf.State())
}

func (h *AccessionHandler) Back(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}

	wf.Back()
	c.JSON(http.StatusOK, wf.State())
}

// Submit godoc
// @Summary     Submit the reviewed accession
// @Description Creates every sample, its slides and one batch on the lab API. The attempt runs to completion even if the client disconnects. A failed attempt still returns 200 with the failure in the outcome.
// @Tags        accession
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.SubmitResponse
// @Failure     409 {object} models.ErrorResponse
// @Failure     422 {object} models.ErrorResponse
// @Router      /accession/submit [post]
func (h *AccessionHandler) Submit(c *gin.Context) {
	if h.service == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "accession service not available"})
		return
	}
	operatorID, token, ok := operator(c)
	if !ok {
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	id, out, err := h.service.Submit(ctx, operatorID, token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SubmitResponse{SubmissionID: id.String(), Outcome: out})
}

// Close godoc
// @Summary     Close the workflow
// @Description Discards the draft. Refused with 409 while a submission runs.
// @Tags        accession
// @Security    Bearer
// @Success     204
// @Failure     409 {object} models.ErrorResponse
// @Router      /accession/close [post]
func (h *AccessionHandler) Close(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}

	if err := wf.Close(); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Notifications godoc
// @Summary     Notifications of the current attempt
// @Description For dashboards that poll instead of subscribing to realtime events.
// @Tags        accession
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.NotificationsResponse
// @Router      /accession/notifications [get]
func (h *AccessionHandler) Notifications(c *gin.Context) {
	if h.service == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "accession service not available"})
		return
	}
	operatorID, token, ok := operator(c)
	if !ok {
		return
	}
	notifications := h.service.Notifications(operatorID, token)
	if notifications == nil {
		notifications = []accession.Notification{}
	}
	c.JSON(http.StatusOK, models.NotificationsResponse{Notifications: notifications})
}

func (h *AccessionHandler) Progress(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}
	p := wf.Progress()
	c.JSON(http.StatusOK, models.ProgressResponse{
		Loading:  wf.IsLoading(),
		Progress: p,
		Percent:  p.Percent(),
	})
}
