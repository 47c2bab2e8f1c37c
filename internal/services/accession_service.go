package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"lab-accession-backend/internal/accession"
	"lab-accession-backend/internal/labapi"
	"lab-accession-backend/internal/models"
	"lab-accession-backend/internal/notify"
	"lab-accession-backend/internal/retry"
)

// ErrPersistenceDisabled is returned by history lookups when no database is
// configured.
var ErrPersistenceDisabled = errors.New("submission history is not available")

// ErrManifestUnavailable is returned when a submission has no archived
// manifest, or no archive is configured.
var ErrManifestUnavailable = errors.New("no manifest archived for this submission")

// SubmissionStore persists submission records. *supabase.DatabaseClient
// implements it.
type SubmissionStore interface {
	CreateSubmission(s *models.Submission) error
	UpdateSubmissionProgress(id uuid.UUID, p accession.Progress, createdSampleIDs []string) error
	CompleteSubmission(id uuid.UUID, out accession.Outcome) error
	SetManifestPath(id uuid.UUID, path string) error
	GetSubmission(id uuid.UUID, operatorID string) (*models.Submission, error)
	ListSubmissions(operatorID string, limit int) ([]models.Submission, error)
}

// ManifestArchive stores submission manifests. *supabase.StorageClient
// implements it.
type ManifestArchive interface {
	UploadManifest(operatorID string, submissionID uuid.UUID, data []byte) (string, error)
	DownloadManifest(storagePath string) ([]byte, error)
}

// Manifest is the archived record of what was submitted and what came of it.
type Manifest struct {
	SubmissionID string            `json:"submission_id"`
	OperatorID   string            `json:"operator_id"`
	Kind         string            `json:"kind"`
	Draft        accession.Draft   `json:"draft"`
	SampleIDs    []string          `json:"sample_ids,omitempty"`
	Outcome      accession.Outcome `json:"outcome"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
}

// Options wires an AccessionService. Store, Publisher and Archive are
// optional; leave them nil to run without them.
type Options struct {
	API          *labapi.Client
	Store        SubmissionStore
	Publisher    notify.Publisher
	Archive      ManifestArchive
	Metrics      *accession.Metrics
	SamplePolicy retry.Policy
	BatchPolicy  retry.Policy
	SessionTTL   time.Duration
	// ForwardOperatorToken sends each operator's bearer token to the lab API
	// instead of the client's configured token.
	ForwardOperatorToken bool
}

type AccessionService struct {
	opts     Options
	sessions *sessions
}

func NewAccessionService(opts Options) *AccessionService {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}
	s := &AccessionService{opts: opts}
	s.sessions = newSessions(opts.SessionTTL, s.newSession)
	return s
}

func (s *AccessionService) newSession(operatorID string) *session {
	sess := &session{
		operatorID: operatorID,
		api:        &operatorAPI{base: s.opts.API},
		realtime:   notify.NewRealtime(s.opts.Publisher, operatorID),
		recorder:   &notify.Recorder{},
	}
	if s.opts.Store != nil || s.opts.Archive != nil {
		sess.persist = notify.NewQueue("persist:"+operatorID, persistQueueSize)
	}
	sess.tracker = &tracker{store: s.opts.Store, enqueue: sess.enqueue}

	notifier := notify.Fanout{notify.NewLog(logrus.Fields{"operator_id": operatorID}), sess.recorder, sess.realtime}
	submitter := accession.NewSubmitter(sess.api, accession.Options{
		SamplePolicy: s.opts.SamplePolicy,
		BatchPolicy:  s.opts.BatchPolicy,
		Notifier:     notifier,
		Listener:     notify.Listeners{sess.tracker, sess.realtime},
		Metrics:      s.opts.Metrics,
	})
	sess.workflow = accession.NewWorkflow(submitter, notifier)

	logrus.WithField("operator_id", operatorID).Info("accession session started")
	return sess
}

func (s *AccessionService) session(operatorID, token string) *session {
	sess := s.sessions.get(operatorID)
	if s.opts.ForwardOperatorToken && token != "" {
		sess.api.setToken(token)
	}
	return sess
}

// Workflow returns the operator's workflow, creating it on first use.
func (s *AccessionService) Workflow(operatorID, token string) *accession.Workflow {
	return s.session(operatorID, token).workflow
}

// Notifications returns what the operator was told since their last attempt
// started.
func (s *AccessionService) Notifications(operatorID, token string) []accession.Notification {
	return s.session(operatorID, token).recorder.Notifications()
}

// Flush waits until every database write and realtime event scheduled so far
// has been handled.
func (s *AccessionService) Flush(ctx context.Context) error {
	var errs []error
	for _, sess := range s.sessions.all() {
		errs = append(errs, sess.flush(ctx))
	}
	return errors.Join(errs...)
}

// Shutdown flushes every session and stops their queues.
func (s *AccessionService) Shutdown(ctx context.Context) error {
	err := s.Flush(ctx)
	for _, sess := range s.sessions.all() {
		sess.close()
	}
	return err
}

// ActiveSessions is the number of operators with a live workflow.
func (s *AccessionService) ActiveSessions() int {
	return s.sessions.count()
}

func (s *AccessionService) PersistenceEnabled() bool {
	return s.opts.Store != nil
}

func (s *AccessionService) RealtimeEnabled() bool {
	return s.opts.Publisher != nil
}

// Submit submits the operator's reviewed draft. The returned id names the
// submission record; it is set whenever the attempt actually ran.
func (s *AccessionService) Submit(ctx context.Context, operatorID, token string) (uuid.UUID, accession.Outcome, error) {
	sess := s.session(operatorID, token)
	id := uuid.New()

	var manifest Manifest
	out, err := sess.workflow.Submit(ctx, func(ctx context.Context, d accession.Draft) {
		manifest = s.start(sess, id, models.SubmissionKindSubmit, d, nil)
	})
	if err != nil {
		return uuid.Nil, accession.Outcome{}, err
	}

	s.finish(sess, id, manifest, out)
	return id, out, nil
}

// RetryBatch retries batch creation for samples that already exist.
func (s *AccessionService) RetryBatch(ctx context.Context, operatorID, token string, sampleIDs []string) (uuid.UUID, accession.Outcome, error) {
	sess := s.session(operatorID, token)
	id := uuid.New()

	var manifest Manifest
	out, err := sess.workflow.RetryBatch(ctx, sampleIDs, func(ctx context.Context, d accession.Draft) {
		manifest = s.start(sess, id, models.SubmissionKindRetryBatch, d, sampleIDs)
	})
	if err != nil {
		return uuid.Nil, accession.Outcome{}, err
	}

	s.finish(sess, id, manifest, out)
	return id, out, nil
}

func (s *AccessionService) ListSubmissions(operatorID string, limit int) ([]models.Submission, error) {
	if s.opts.Store == nil {
		return nil, ErrPersistenceDisabled
	}
	return s.opts.Store.ListSubmissions(operatorID, limit)
}

func (s *AccessionService) GetSubmission(id uuid.UUID, operatorID string) (*models.Submission, error) {
	if s.opts.Store == nil {
		return nil, ErrPersistenceDisabled
	}
	return s.opts.Store.GetSubmission(id, operatorID)
}

// GetManifest returns the archived JSON manifest of one of the operator's
// submissions.
func (s *AccessionService) GetManifest(id uuid.UUID, operatorID string) ([]byte, error) {
	if s.opts.Archive == nil {
		return nil, ErrManifestUnavailable
	}
	submission, err := s.GetSubmission(id, operatorID)
	if err != nil {
		return nil, err
	}
	if !submission.ManifestPath.Valid {
		return nil, ErrManifestUnavailable
	}
	return s.opts.Archive.DownloadManifest(submission.ManifestPath.String)
}

func (s *AccessionService) start(sess *session, id uuid.UUID, kind string, d accession.Draft, sampleIDs []string) Manifest {
	sess.begin(id)
	log := logrus.WithFields(logrus.Fields{"operator_id": sess.operatorID, "submission_id": id})

	total := len(d.Samples)
	if kind == models.SubmissionKindRetryBatch {
		total = 1
	}
	if store := s.opts.Store; store != nil {
		record := &models.Submission{
			ID:               id,
			OperatorID:       sess.operatorID,
			Kind:             kind,
			Customer:         d.Customer,
			OrderID:          d.OrderID,
			ReceivedOn:       d.ReceivedOn,
			Status:           models.SubmissionSubmitting,
			Stage:            string(accession.StageIdle),
			Total:            total,
			CreatedSampleIDs: sampleIDs,
		}
		sess.enqueue(func() {
			if err := store.CreateSubmission(record); err != nil {
				log.WithError(err).Warn("failed to record submission")
			}
		})
	}
	sess.realtime.Started(kind, len(d.Samples), d.SlideCount())
	log.Infof("%s started", kind)

	return Manifest{
		SubmissionID: id.String(),
		OperatorID:   sess.operatorID,
		Kind:         kind,
		Draft:        d,
		SampleIDs:    sampleIDs,
		StartedAt:    time.Now().UTC(),
	}
}

// finish schedules the outcome's record and archive. Failures there are
// logged and never change the outcome the operator sees.
func (s *AccessionService) finish(sess *session, id uuid.UUID, manifest Manifest, out accession.Outcome) {
	log := logrus.WithFields(logrus.Fields{"operator_id": sess.operatorID, "submission_id": id})

	if store := s.opts.Store; store != nil {
		sess.enqueue(func() {
			if err := store.CompleteSubmission(id, out); err != nil {
				log.WithError(err).Warn("failed to record submission outcome")
			}
		})
	}
	sess.realtime.Finished(out)

	if s.opts.Archive != nil {
		manifest.Outcome = out
		manifest.FinishedAt = time.Now().UTC()
		sess.enqueue(func() {
			if err := s.archive(sess.operatorID, id, manifest); err != nil {
				log.WithError(err).Warn("failed to archive manifest")
			}
		})
	}
	sess.begin(uuid.Nil)
}

func (s *AccessionService) archive(operatorID string, id uuid.UUID, manifest Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	path, err := s.opts.Archive.UploadManifest(operatorID, id, data)
	if err != nil {
		return err
	}
	if s.opts.Store != nil {
		if err := s.opts.Store.SetManifestPath(id, path); err != nil {
			return fmt.Errorf("failed to record manifest path: %w", err)
		}
	}
	return nil
}
