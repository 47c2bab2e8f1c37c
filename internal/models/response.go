package models

import (
	"time"

	"lab-accession-backend/internal/accession"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment,omitempty"`
	Database    string `json:"database,omitempty"`
	Realtime    string `json:"realtime,omitempty"`
	Sessions    int    `json:"active_sessions"`
}

// NotificationsResponse lists what the operator was told during the current
// or last attempt.
type NotificationsResponse struct {
	Notifications []accession.Notification `json:"notifications"`
}

type KeyResponse struct {
	Key string `json:"key"`
}

// SubmitResponse is returned by submit and retry-batch.
type SubmitResponse struct {
	SubmissionID string            `json:"submission_id,omitempty"`
	Outcome      accession.Outcome `json:"outcome"`
}

type ProgressResponse struct {
	Loading  bool               `json:"loading"`
	Progress accession.Progress `json:"progress"`
	Percent  float64            `json:"percent"`
}

type SubmissionResponse struct {
	ID               string    `json:"submission_id"`
	Kind             string    `json:"kind"`
	Customer         string    `json:"customer"`
	OrderID          string    `json:"order_id"`
	ReceivedOn       string    `json:"received_on"`
	Status           string    `json:"status"`
	Stage            string    `json:"stage"`
	Current          int       `json:"current"`
	Total            int       `json:"total"`
	CreatedSampleIDs []string  `json:"created_sample_ids"`
	BatchID          string    `json:"batch_id,omitempty"`
	SlideCount       int       `json:"slide_count,omitempty"`
	FailureKind      string    `json:"failure_kind,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	Recoverable      bool      `json:"recoverable"`
	ManifestPath     string    `json:"manifest_path,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type SubmissionListResponse struct {
	Submissions []SubmissionResponse `json:"submissions"`
}

func NewSubmissionResponse(s *Submission) SubmissionResponse {
	ids := s.CreatedSampleIDs
	if ids == nil {
		ids = []string{}
	}
	return SubmissionResponse{
		ID:               s.ID.String(),
		Kind:             s.Kind,
		Customer:         s.Customer,
		OrderID:          s.OrderID,
		ReceivedOn:       s.ReceivedOn,
		Status:           s.Status,
		Stage:            s.Stage,
		Current:          s.Current,
		Total:            s.Total,
		CreatedSampleIDs: ids,
		BatchID:          s.BatchID.String,
		SlideCount:       int(s.SlideCount.Int64),
		FailureKind:      s.FailureKind.String,
		ErrorMessage:     s.ErrorMessage.String,
		Recoverable:      s.Recoverable,
		ManifestPath:     s.ManifestPath.String,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}
