package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Submission statuses.
const (
	SubmissionSubmitting = "submitting"
	SubmissionSucceeded  = "succeeded"
	SubmissionFailed     = "failed"
)

// Submission is one persisted submission attempt.
type Submission struct {
	ID               uuid.UUID
	OperatorID       string
	Kind             string // "submit" or "retry_batch"
	Customer         string
	OrderID          string
	ReceivedOn       string
	Status           string
	Stage            string
	Current          int
	Total            int
	CreatedSampleIDs []string
	BatchID          sql.NullString
	SlideCount       sql.NullInt64
	FailureKind      sql.NullString
	ErrorMessage     sql.NullString
	Recoverable      bool
	ManifestPath     sql.NullString
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

const (
	SubmissionKindSubmit     = "submit"
	SubmissionKindRetryBatch = "retry_batch"
)
