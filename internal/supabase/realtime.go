package supabase

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
	"lab-accession-backend/internal/accession"
)

// EventsTable is replicated by Supabase Realtime; the dashboard subscribes to
// inserts filtered by channel.
const EventsTable = "accession_events"

// Event names.
const (
	EventSubmissionStarted   = "submission_started"
	EventProgress            = "progress"
	EventNotification        = "notification"
	EventSubmissionSucceeded = "submission_succeeded"
	EventSubmissionFailed    = "submission_failed"
)

type RealtimeClient struct {
	client *supabase.Client
	table  string
}

func NewRealtimeClient(client *supabase.Client) *RealtimeClient {
	return &RealtimeClient{
		client: client,
		table:  EventsTable,
	}
}

// PublishEvent inserts an event row; Realtime broadcasts the insert to
// subscribers of the channel.
func (r *RealtimeClient) PublishEvent(channel string, event string, payload map[string]interface{}) error {
	row := map[string]interface{}{
		"channel": channel,
		"event":   event,
		"payload": payload,
	}
	if _, _, err := r.client.From(r.table).Insert(row, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event, err)
	}
	return nil
}

func (r *RealtimeClient) PublishOperatorEvent(operatorID string, event string, payload map[string]interface{}) error {
	return r.PublishEvent(OperatorChannel(operatorID), event, payload)
}

func OperatorChannel(operatorID string) string {
	return fmt.Sprintf("operator:%s", operatorID)
}

// Event payloads
func SubmissionStartedPayload(submissionID uuid.UUID, kind string, sampleCount, slideCount int) map[string]interface{} {
	return map[string]interface{}{
		"submission_id": submissionID.String(),
		"kind":          kind,
		"status":        "submitting",
		"sample_count":  sampleCount,
		"slide_count":   slideCount,
	}
}

func ProgressPayload(submissionID uuid.UUID, p accession.Progress, createdSampleIDs []string) map[string]interface{} {
	return map[string]interface{}{
		"submission_id":      submissionID.String(),
		"stage":              string(p.Stage),
		"current":            p.Current,
		"total":              p.Total,
		"created_sample_ids": createdSampleIDs,
	}
}

func NotificationPayload(submissionID uuid.UUID, n accession.Notification) map[string]interface{} {
	return map[string]interface{}{
		"submission_id": submissionID.String(),
		"message":       n.Message,
		"severity":      string(n.Severity),
		"duration_ms":   n.DurationMs,
	}
}

func SubmissionSucceededPayload(submissionID uuid.UUID, s accession.Success) map[string]interface{} {
	return map[string]interface{}{
		"submission_id": submissionID.String(),
		"status":        "succeeded",
		"batch_id":      s.BatchID,
		"slide_count":   s.SlideCount,
	}
}

func SubmissionFailedPayload(submissionID uuid.UUID, f accession.Failure) map[string]interface{} {
	return map[string]interface{}{
		"submission_id":      submissionID.String(),
		"status":             "failed",
		"kind":               string(f.Kind),
		"error":              f.Message,
		"partial_sample_ids": f.PartialSampleIDs,
		"recoverable":        f.Recoverable,
	}
}
