package services_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-accession-backend/internal/accession"
	"lab-accession-backend/internal/labapi"
	"lab-accession-backend/internal/models"
	"lab-accession-backend/internal/retry"
	"lab-accession-backend/internal/services"
)

type fakeStore struct {
	mu        sync.Mutex
	created   []models.Submission
	progress  []accession.Progress
	completed map[uuid.UUID]accession.Outcome
	manifests map[uuid.UUID]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{completed: map[uuid.UUID]accession.Outcome{}, manifests: map[uuid.UUID]string{}}
}

func (f *fakeStore) CreateSubmission(s *models.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *s)
	return nil
}

func (f *fakeStore) UpdateSubmissionProgress(id uuid.UUID, p accession.Progress, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, p)
	return nil
}

func (f *fakeStore) CompleteSubmission(id uuid.UUID, out accession.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[id] = out
	return nil
}

func (f *fakeStore) SetManifestPath(id uuid.UUID, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manifests[id] = path
	return nil
}

func (f *fakeStore) GetSubmission(id uuid.UUID, operatorID string) (*models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.created {
		if s.ID == id && s.OperatorID == operatorID {
			s := s
			if path, ok := f.manifests[id]; ok {
				s.ManifestPath = sql.NullString{String: path, Valid: true}
			}
			return &s, nil
		}
	}
	return nil, assert.AnError
}

func (f *fakeStore) ListSubmissions(operatorID string, limit int) ([]models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Submission
	for _, s := range f.created {
		if s.OperatorID == operatorID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeArchive struct {
	data map[string][]byte
}

func (f *fakeArchive) UploadManifest(operatorID string, id uuid.UUID, data []byte) (string, error) {
	path := "operators/" + operatorID + "/submissions/" + id.String() + ".json"
	f.data[path] = data
	return path, nil
}

func (f *fakeArchive) DownloadManifest(path string) ([]byte, error) {
	data, ok := f.data[path]
	if !ok {
		return nil, assert.AnError
	}
	return data, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePublisher) PublishOperatorEvent(operatorID, event string, payload map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

// labServer answers like the lab API and records the Authorization headers.
func labServer(t *testing.T, batchError string) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var auth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = append(auth, r.Header.Get("Authorization"))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/samples":
			var req labapi.CreateSampleRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			_ = json.NewEncoder(w).Encode(labapi.CreateSampleResponse{SampleID: "S-" + req.SampleID})
		case strings.HasSuffix(r.URL.Path, "/slides"):
			var req labapi.CreateSlideRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			_ = json.NewEncoder(w).Encode(labapi.CreateSlideResponse{SlideID: req.SlideID})
		case r.URL.Path == "/batches":
			if batchError != "" {
				_ = json.NewEncoder(w).Encode(labapi.CreateBatchResponse{Error: batchError})
				return
			}
			_ = json.NewEncoder(w).Encode(labapi.CreateBatchResponse{BatchID: "B-1", SlideCount: 1})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &auth
}

func newService(srv *httptest.Server, store services.SubmissionStore, archive services.ManifestArchive, pub *fakePublisher, forward bool) *services.AccessionService {
	policy := retry.Policy{MaxAttempts: 1, InitialDelay: time.Millisecond, Multiplier: 2}
	opts := services.Options{
		API:                  labapi.NewClient(srv.URL, "service-token", 5*time.Second),
		Store:                store,
		Archive:              archive,
		SamplePolicy:         policy,
		BatchPolicy:          policy,
		SessionTTL:           time.Hour,
		ForwardOperatorToken: forward,
	}
	if pub != nil {
		opts.Publisher = pub
	}
	return services.NewAccessionService(opts)
}

func flush(t *testing.T, svc *services.AccessionService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Flush(ctx))
}

func prepare(t *testing.T, svc *services.AccessionService, operatorID string) {
	t.Helper()
	wf := svc.Workflow(operatorID, "")
	require.NoError(t, wf.Form().Replace(accession.Draft{
		Customer:   "Acme Labs",
		OrderID:    "ORD-1",
		ReceivedOn: "2024-03-01",
		Samples: []accession.DraftSample{
			{Barcode: "A", Slides: []accession.DraftSlide{{Barcode: "A1"}}},
		},
	}))
	require.NoError(t, wf.Next())
}

func TestSubmit_RecordsArchivesAndPublishes(t *testing.T) {
	srv, auth := labServer(t, "")
	store := newFakeStore()
	archive := &fakeArchive{data: map[string][]byte{}}
	pub := &fakePublisher{}
	svc := newService(srv, store, archive, pub, false)
	prepare(t, svc, "op-1")

	id, out, err := svc.Submit(context.Background(), "op-1", "operator-token")
	require.NoError(t, err)
	require.True(t, out.Succeeded())
	assert.Equal(t, "B-1", out.Success.BatchID)
	flush(t, svc)

	require.Len(t, store.created, 1)
	assert.Equal(t, id, store.created[0].ID)
	assert.Equal(t, "Acme Labs", store.created[0].Customer)
	assert.Equal(t, models.SubmissionKindSubmit, store.created[0].Kind)
	assert.Equal(t, out, store.completed[id])
	assert.NotEmpty(t, store.progress)
	assert.Equal(t, accession.StageIdle, store.progress[len(store.progress)-1].Stage)

	path := store.manifests[id]
	require.Contains(t, archive.data, path)
	var manifest services.Manifest
	require.NoError(t, json.Unmarshal(archive.data[path], &manifest))
	assert.Equal(t, "ORD-1", manifest.Draft.OrderID)
	assert.Equal(t, "B-1", manifest.Outcome.Success.BatchID)

	assert.Equal(t, "submission_started", pub.events[0])
	assert.Equal(t, "submission_succeeded", pub.events[len(pub.events)-1])

	for _, header := range *auth {
		assert.Equal(t, "Bearer service-token", header)
	}
	assert.Equal(t, 1, svc.ActiveSessions())

	data, err := svc.GetManifest(id, "op-1")
	require.NoError(t, err)
	assert.Equal(t, archive.data[path], data)

	_, err = svc.GetManifest(id, "op-2")
	assert.Error(t, err)
}

func TestSubmit_ForwardsOperatorToken(t *testing.T) {
	srv, auth := labServer(t, "")
	svc := newService(srv, nil, nil, nil, true)
	prepare(t, svc, "op-1")

	_, out, err := svc.Submit(context.Background(), "op-1", "operator-token")
	require.NoError(t, err)
	require.True(t, out.Succeeded())

	require.NotEmpty(t, *auth)
	for _, header := range *auth {
		assert.Equal(t, "Bearer operator-token", header)
	}
}

func TestSubmit_NotReviewed(t *testing.T) {
	srv, _ := labServer(t, "")
	store := newFakeStore()
	svc := newService(srv, store, nil, nil, false)

	_, _, err := svc.Submit(context.Background(), "op-1", "")
	assert.ErrorIs(t, err, accession.ErrNotReviewed)
	assert.Empty(t, store.created)
}

func TestRetryBatch_AfterRejectedBatch(t *testing.T) {
	srv, _ := labServer(t, "duplicate batch")
	store := newFakeStore()
	svc := newService(srv, store, nil, nil, false)
	prepare(t, svc, "op-1")

	_, out, err := svc.Submit(context.Background(), "op-1", "")
	require.NoError(t, err)
	require.NotNil(t, out.Failure)
	assert.True(t, out.Failure.Recoverable)

	notes := svc.Notifications("op-1", "")
	require.NotEmpty(t, notes)
	assert.Equal(t, "Note: 1 samples were already created. You can retry batch creation to complete the accession.", notes[len(notes)-1].Message)

	id, out, err := svc.RetryBatch(context.Background(), "op-1", "", nil)
	require.NoError(t, err)
	require.NotNil(t, out.Failure)
	assert.Equal(t, []string{"S-A"}, out.Failure.PartialSampleIDs)
	flush(t, svc)

	require.Len(t, store.created, 2)
	assert.Equal(t, id, store.created[1].ID)
	assert.Equal(t, models.SubmissionKindRetryBatch, store.created[1].Kind)
}

func TestHistory_WithoutStore(t *testing.T) {
	srv, _ := labServer(t, "")
	svc := newService(srv, nil, nil, nil, false)

	_, err := svc.ListSubmissions("op-1", 10)
	assert.ErrorIs(t, err, services.ErrPersistenceDisabled)
	_, err = svc.GetSubmission(uuid.New(), "op-1")
	assert.ErrorIs(t, err, services.ErrPersistenceDisabled)
	assert.False(t, svc.PersistenceEnabled())
	assert.False(t, svc.RealtimeEnabled())
}

func TestWorkflow_IsPerOperator(t *testing.T) {
	srv, _ := labServer(t, "")
	svc := newService(srv, nil, nil, nil, false)

	a := svc.Workflow("op-1", "")
	b := svc.Workflow("op-2", "")

	assert.Same(t, a, svc.Workflow("op-1", ""))
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, svc.ActiveSessions())
}

// hangingStore never answers a write until released.
type hangingStore struct {
	*fakeStore
	release chan struct{}
}

func (h *hangingStore) CreateSubmission(s *models.Submission) error {
	<-h.release
	return h.fakeStore.CreateSubmission(s)
}

func (h *hangingStore) UpdateSubmissionProgress(id uuid.UUID, p accession.Progress, ids []string) error {
	<-h.release
	return h.fakeStore.UpdateSubmissionProgress(id, p, ids)
}

func TestSubmit_HungStoreDoesNotBlockSubmission(t *testing.T) {
	srv, _ := labServer(t, "")
	store := &hangingStore{fakeStore: newFakeStore(), release: make(chan struct{})}
	svc := newService(srv, store, nil, &fakePublisher{}, false)
	prepare(t, svc, "op-1")

	done := make(chan accession.Outcome, 1)
	go func() {
		_, out, err := svc.Submit(context.Background(), "op-1", "")
		assert.NoError(t, err)
		done <- out
	}()

	select {
	case out := <-done:
		assert.True(t, out.Succeeded())
		wf := svc.Workflow("op-1", "")
		assert.False(t, wf.IsLoading())
		assert.NoError(t, wf.Close())
	case <-time.After(5 * time.Second):
		t.Fatal("submission blocked on the submission store")
	}

	close(store.release)
	flush(t, svc)
	assert.Len(t, store.created, 1)
}

func TestShutdown_StopsSessions(t *testing.T) {
	srv, _ := labServer(t, "")
	store := newFakeStore()
	svc := newService(srv, store, nil, &fakePublisher{}, false)
	prepare(t, svc, "op-1")

	_, _, err := svc.Submit(context.Background(), "op-1", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))
	assert.Len(t, store.created, 1)
	assert.Equal(t, 1, svc.ActiveSessions())
}
