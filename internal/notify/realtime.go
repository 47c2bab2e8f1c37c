package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"lab-accession-backend/internal/accession"
	"lab-accession-backend/internal/supabase"
)

const realtimeQueueSize = 256

// Publisher sends an event on an operator's channel. *supabase.RealtimeClient
// implements it.
type Publisher interface {
	PublishOperatorEvent(operatorID string, event string, payload map[string]interface{}) error
}

// Realtime forwards notifications and progress of one operator's
// submissions to the dashboard. Events are published in order from a
// bounded queue; publish failures are logged and dropped. A nil *Realtime,
// or one without a publisher, does nothing.
type Realtime struct {
	publisher  Publisher
	operatorID string
	queue      *Queue

	mu           sync.RWMutex
	submissionID uuid.UUID
}

func NewRealtime(publisher Publisher, operatorID string) *Realtime {
	r := &Realtime{publisher: publisher, operatorID: operatorID}
	if publisher != nil {
		r.queue = NewQueue("realtime:"+operatorID, realtimeQueueSize)
	}
	return r
}

func (r *Realtime) enabled() bool {
	return r != nil && r.publisher != nil
}

// SetSubmission tags the following events with a submission id.
func (r *Realtime) SetSubmission(id uuid.UUID) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.submissionID = id
	r.mu.Unlock()
}

func (r *Realtime) Submission() uuid.UUID {
	if r == nil {
		return uuid.Nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.submissionID
}

func (r *Realtime) Notify(n accession.Notification) {
	if !r.enabled() {
		return
	}
	r.publish(supabase.EventNotification, supabase.NotificationPayload(r.Submission(), n))
}

func (r *Realtime) ProgressChanged(p accession.Progress, createdSampleIDs []string) {
	if !r.enabled() {
		return
	}
	r.publish(supabase.EventProgress, supabase.ProgressPayload(r.Submission(), p, createdSampleIDs))
}

func (r *Realtime) Started(kind string, sampleCount, slideCount int) {
	if !r.enabled() {
		return
	}
	r.publish(supabase.EventSubmissionStarted, supabase.SubmissionStartedPayload(r.Submission(), kind, sampleCount, slideCount))
}

func (r *Realtime) Finished(out accession.Outcome) {
	if !r.enabled() {
		return
	}
	switch {
	case out.Success != nil:
		r.publish(supabase.EventSubmissionSucceeded, supabase.SubmissionSucceededPayload(r.Submission(), *out.Success))
	case out.Failure != nil:
		r.publish(supabase.EventSubmissionFailed, supabase.SubmissionFailedPayload(r.Submission(), *out.Failure))
	}
}

// Wait blocks until the events published so far have been sent.
func (r *Realtime) Wait(ctx context.Context) error {
	if !r.enabled() {
		return nil
	}
	return r.queue.Wait(ctx)
}

// Close stops publishing. Pending events are discarded.
func (r *Realtime) Close() {
	if !r.enabled() {
		return
	}
	r.queue.Close()
}

func (r *Realtime) publish(event string, payload map[string]interface{}) {
	r.queue.Enqueue(func() {
		if err := r.publisher.PublishOperatorEvent(r.operatorID, event, payload); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"operator_id": r.operatorID,
				"event":       event,
			}).Warn("failed to publish realtime event")
		}
	})
}
