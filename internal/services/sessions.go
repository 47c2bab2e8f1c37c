package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"lab-accession-backend/internal/accession"
	"lab-accession-backend/internal/labapi"
	"lab-accession-backend/internal/notify"
)

const (
	sessionCleanupInterval = time.Hour
	persistQueueSize       = 256
)

// session is one operator's workflow plus what it needs to report on it.
// Database writes and realtime events leave the submission path through
// bounded queues.
type session struct {
	operatorID string
	api        *operatorAPI
	realtime   *notify.Realtime
	recorder   *notify.Recorder
	persist    *notify.Queue // nil without a store or archive
	tracker    *tracker
	workflow   *accession.Workflow
}

// begin tags the following progress and events with a submission id. A
// non-nil id starts a new attempt and clears the recorded notifications.
func (s *session) begin(id uuid.UUID) {
	if id != uuid.Nil {
		s.recorder.Reset()
	}
	s.tracker.set(id)
	s.realtime.SetSubmission(id)
}

// enqueue schedules a database or archive write.
func (s *session) enqueue(job func()) {
	if s.persist != nil {
		s.persist.Enqueue(job)
	}
}

// flush waits for the writes and events scheduled so far.
func (s *session) flush(ctx context.Context) error {
	var errs []error
	if s.persist != nil {
		errs = append(errs, s.persist.Wait(ctx))
	}
	errs = append(errs, s.realtime.Wait(ctx))
	return errors.Join(errs...)
}

func (s *session) close() {
	if s.persist != nil {
		s.persist.Close()
	}
	s.realtime.Close()
}

// sessions keeps one session per operator in a cache with sliding expiry.
type sessions struct {
	mu    sync.Mutex
	cache *cache.Cache
	build func(operatorID string) *session
}

func newSessions(ttl time.Duration, build func(operatorID string) *session) *sessions {
	c := cache.New(ttl, sessionCleanupInterval)
	c.OnEvicted(func(operatorID string, v interface{}) {
		logrus.WithField("operator_id", operatorID).Debug("accession session expired")
		v.(*session).close()
	})
	return &sessions{cache: c, build: build}
}

func (s *sessions) get(operatorID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.cache.Get(operatorID); ok {
		sess := v.(*session)
		s.cache.SetDefault(operatorID, sess)
		return sess
	}
	sess := s.build(operatorID)
	s.cache.SetDefault(operatorID, sess)
	return sess
}

func (s *sessions) count() int {
	return s.cache.ItemCount()
}

func (s *sessions) all() []*session {
	items := s.cache.Items()
	out := make([]*session, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(*session))
	}
	return out
}

// operatorAPI calls the lab API with the operator's bearer token when one is
// set, otherwise with the client's own token.
type operatorAPI struct {
	base *labapi.Client

	mu    sync.RWMutex
	token string
}

func (a *operatorAPI) setToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

func (a *operatorAPI) client() *labapi.Client {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.token == "" {
		return a.base
	}
	return a.base.WithToken(a.token)
}

func (a *operatorAPI) CreateSample(ctx context.Context, barcode string) (*labapi.CreateSampleResponse, error) {
	return a.client().CreateSample(ctx, barcode)
}

func (a *operatorAPI) CreateSlide(ctx context.Context, sampleID, barcode string) (*labapi.CreateSlideResponse, error) {
	return a.client().CreateSlide(ctx, sampleID, barcode)
}

func (a *operatorAPI) CreateBatch(ctx context.Context, sampleIDs []string) (*labapi.CreateBatchResponse, error) {
	return a.client().CreateBatch(ctx, sampleIDs)
}

// tracker persists the progress of the session's current submission.
type tracker struct {
	store   SubmissionStore
	enqueue func(job func())

	mu sync.RWMutex
	id uuid.UUID
}

func (t *tracker) set(id uuid.UUID) {
	t.mu.Lock()
	t.id = id
	t.mu.Unlock()
}

func (t *tracker) current() uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.id
}

func (t *tracker) ProgressChanged(p accession.Progress, createdSampleIDs []string) {
	id := t.current()
	if t.store == nil || id == uuid.Nil {
		return
	}
	t.enqueue(func() {
		if err := t.store.UpdateSubmissionProgress(id, p, createdSampleIDs); err != nil {
			logrus.WithError(err).WithField("submission_id", id).Warn("failed to persist progress")
		}
	})
}
