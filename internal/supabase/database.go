package supabase

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"lab-accession-backend/internal/accession"
	"lab-accession-backend/internal/models"
)

var ErrSubmissionNotFound = errors.New("submission not found")

const submissionColumns = `id, operator_id, kind, customer, order_id, received_on, status, stage,
	current_item, total_items, created_sample_ids, batch_id, slide_count, failure_kind,
	error_message, recoverable, manifest_path, created_at, updated_at`

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// CreateSubmission inserts a new record in the submitting state.
func (d *DatabaseClient) CreateSubmission(s *models.Submission) error {
	err := d.db.QueryRow(`
		INSERT INTO accession_submissions (id, operator_id, kind, customer, order_id, received_on, status, stage, current_item, total_items, created_sample_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, s.ID, s.OperatorID, s.Kind, s.Customer, s.OrderID, s.ReceivedOn, s.Status, s.Stage,
		s.Current, s.Total, pq.Array(nonNil(s.CreatedSampleIDs))).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (d *DatabaseClient) UpdateSubmissionProgress(id uuid.UUID, p accession.Progress, createdSampleIDs []string) error {
	_, err := d.db.Exec(`
		UPDATE accession_submissions
		SET stage = $1, current_item = $2, total_items = $3, created_sample_ids = $4, updated_at = NOW()
		WHERE id = $5
	`, string(p.Stage), p.Current, p.Total, pq.Array(nonNil(createdSampleIDs)), id)
	if err != nil {
		return fmt.Errorf("failed to update submission progress: %w", err)
	}
	return nil
}

// CompleteSubmission stores the outcome of an attempt.
func (d *DatabaseClient) CompleteSubmission(id uuid.UUID, out accession.Outcome) error {
	var err error
	if out.Success != nil {
		_, err = d.db.Exec(`
			UPDATE accession_submissions
			SET status = $1, stage = $2, batch_id = $3, slide_count = $4, updated_at = NOW()
			WHERE id = $5
		`, models.SubmissionSucceeded, string(accession.StageIdle), out.Success.BatchID, out.Success.SlideCount, id)
	} else if out.Failure != nil {
		_, err = d.db.Exec(`
			UPDATE accession_submissions
			SET status = $1, stage = $2, failure_kind = $3, error_message = $4, recoverable = $5,
				created_sample_ids = $6, updated_at = NOW()
			WHERE id = $7
		`, models.SubmissionFailed, string(accession.StageIdle), string(out.Failure.Kind), out.Failure.Message,
			out.Failure.Recoverable, pq.Array(nonNil(out.Failure.PartialSampleIDs)), id)
	} else {
		return fmt.Errorf("failed to complete submission: empty outcome")
	}
	if err != nil {
		return fmt.Errorf("failed to complete submission: %w", err)
	}
	return nil
}

func (d *DatabaseClient) SetManifestPath(id uuid.UUID, path string) error {
	_, err := d.db.Exec(`
		UPDATE accession_submissions
		SET manifest_path = $1, updated_at = NOW()
		WHERE id = $2
	`, path, id)
	return err
}

func (d *DatabaseClient) GetSubmission(id uuid.UUID, operatorID string) (*models.Submission, error) {
	row := d.db.QueryRow(`
		SELECT `+submissionColumns+`
		FROM accession_submissions
		WHERE id = $1 AND operator_id = $2
	`, id, operatorID)

	s, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return s, nil
}

// ListSubmissions returns the operator's most recent submissions first.
func (d *DatabaseClient) ListSubmissions(operatorID string, limit int) ([]models.Submission, error) {
	rows, err := d.db.Query(`
		SELECT `+submissionColumns+`
		FROM accession_submissions
		WHERE operator_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, operatorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []models.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	return submissions, nil
}

func (d *DatabaseClient) Ping() error {
	return d.db.Ping()
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	var s models.Submission
	var ids pq.StringArray
	err := row.Scan(
		&s.ID, &s.OperatorID, &s.Kind, &s.Customer, &s.OrderID, &s.ReceivedOn, &s.Status, &s.Stage,
		&s.Current, &s.Total, &ids, &s.BatchID, &s.SlideCount, &s.FailureKind,
		&s.ErrorMessage, &s.Recoverable, &s.ManifestPath, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.CreatedSampleIDs = []string(ids)
	return &s, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
