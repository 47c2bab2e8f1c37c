package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"lab-accession-backend/internal/accession"
	"lab-accession-backend/internal/middleware"
	"lab-accession-backend/internal/models"
	"lab-accession-backend/internal/services"
	"lab-accession-backend/internal/supabase"
)

// respondError maps domain errors to status codes.
func respondError(c *gin.Context, err error) {
	var verr *accession.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Error: "validation failed", Message: verr.Message})
	case errors.Is(err, accession.ErrSubmissionInProgress),
		errors.Is(err, accession.ErrBusy),
		errors.Is(err, accession.ErrFormLocked),
		errors.Is(err, accession.ErrNotReviewed):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "conflict", Message: err.Error()})
	case errors.Is(err, accession.ErrNotFound),
		errors.Is(err, supabase.ErrSubmissionNotFound),
		errors.Is(err, services.ErrManifestUnavailable):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not found", Message: err.Error()})
	case errors.Is(err, accession.ErrNoSampleIDs):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
	case errors.Is(err, services.ErrPersistenceDisabled):
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "database not available", Message: err.Error()})
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal error", Message: err.Error()})
	}
}

// bindOptionalJSON binds a request body that may be absent. A malformed body
// gets a 400 and false.
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return false
	}
	return true
}

// operator returns the authenticated operator id and bearer token.
func operator(c *gin.Context) (string, string, bool) {
	operatorID := c.GetString(middleware.OperatorIDKey)
	if operatorID == "" {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "operator id not found"})
		return "", "", false
	}
	return operatorID, c.GetString(middleware.TokenKey), true
}
