package accession

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"lab-accession-backend/internal/labapi"
	"lab-accession-backend/internal/retry"
)

// DefaultBatchAttempts is lower than the sample/slide ceiling: a duplicated
// batch call costs more than a duplicated sample call.
const DefaultBatchAttempts = 2

const (
	opCreateSample = "create_sample"
	opCreateSlide  = "create_slide"
	opCreateBatch  = "create_batch"
)

var (
	ErrSubmissionInProgress = errors.New("a submission is already in progress")
	ErrNoSampleIDs          = errors.New("at least one sample id is required")
)

// RemoteAPI is the lab API as the submitter sees it. *labapi.Client
// implements it.
type RemoteAPI interface {
	CreateSample(ctx context.Context, barcode string) (*labapi.CreateSampleResponse, error)
	CreateSlide(ctx context.Context, sampleID, barcode string) (*labapi.CreateSlideResponse, error)
	CreateBatch(ctx context.Context, sampleIDs []string) (*labapi.CreateBatchResponse, error)
}

type Options struct {
	SamplePolicy retry.Policy // sample and slide calls
	BatchPolicy  retry.Policy
	Notifier     Notifier
	Listener     ProgressListener
	Metrics      *Metrics
}

// Submitter materializes drafts on the lab API, one attempt at a time.
type Submitter struct {
	api          RemoteAPI
	samplePolicy retry.Policy
	batchPolicy  retry.Policy
	notifier     Notifier
	listener     ProgressListener
	metrics      *Metrics
	tracer       trace.Tracer

	mu         sync.Mutex
	loading    bool
	progress   Progress
	createdIDs []string
}

func NewSubmitter(api RemoteAPI, opts Options) *Submitter {
	if opts.SamplePolicy.MaxAttempts == 0 {
		opts.SamplePolicy = retry.DefaultPolicy()
	}
	if opts.BatchPolicy.MaxAttempts == 0 {
		opts.BatchPolicy = retry.DefaultPolicy().WithMaxAttempts(DefaultBatchAttempts)
	}
	if opts.Notifier == nil {
		opts.Notifier = discardNotifier{}
	}
	return &Submitter{
		api:          api,
		samplePolicy: opts.SamplePolicy,
		batchPolicy:  opts.BatchPolicy,
		notifier:     opts.Notifier,
		listener:     opts.Listener,
		metrics:      opts.Metrics,
		tracer:       otel.Tracer("lab-accession-backend/accession"),
		progress:     IdleProgress(),
	}
}

// Submit creates every sample, then its slides, then one batch over all
// created samples. Calls are strictly sequential and the first failure ends
// the attempt. The only error returned is ErrSubmissionInProgress; every
// remote failure is reported through the Outcome.
//
// The draft is assumed to have passed Validate.
func (s *Submitter) Submit(ctx context.Context, d Draft) (Outcome, error) {
	if !s.begin(nil) {
		return Outcome{}, ErrSubmissionInProgress
	}
	defer s.finish()

	ctx, span := s.tracer.Start(ctx, "accession.submit", trace.WithAttributes(
		attribute.Int("accession.samples", len(d.Samples)),
		attribute.Int("accession.slides", d.SlideCount()),
	))
	defer span.End()

	start := time.Now()
	out := s.run(ctx, d)
	s.observe(span, out, time.Since(start))
	return out, nil
}

// RetryBatch runs only the batch step for samples that already exist, the
// recovery path after a batch-phase failure.
func (s *Submitter) RetryBatch(ctx context.Context, sampleIDs []string) (Outcome, error) {
	if len(sampleIDs) == 0 {
		return Outcome{}, ErrNoSampleIDs
	}
	if !s.begin(sampleIDs) {
		return Outcome{}, ErrSubmissionInProgress
	}
	defer s.finish()

	ctx, span := s.tracer.Start(ctx, "accession.retry_batch", trace.WithAttributes(
		attribute.StringSlice("accession.sample_ids", sampleIDs),
	))
	defer span.End()

	start := time.Now()
	out := s.createBatch(ctx, s.CreatedSampleIDs())
	s.observe(span, out, time.Since(start))
	return out, nil
}

// Progress returns a snapshot of the current attempt's progress.
func (s *Submitter) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// CreatedSampleIDs returns the ids created by the current or last attempt.
func (s *Submitter) CreatedSampleIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.createdIDs...)
}

func (s *Submitter) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Submitter) run(ctx context.Context, d Draft) Outcome {
	total := len(d.Samples)
	log := logrus.WithFields(logrus.Fields{"customer": d.Customer, "order_id": d.OrderID})
	log.Infof("submitting accession with %d samples and %d slides", total, d.SlideCount())
	s.setProgress(Progress{Stage: StageCreatingSamples, Current: 0, Total: total})

	for i, sample := range d.Samples {
		s.setProgress(Progress{Stage: StageCreatingSamples, Current: i + 1, Total: total})

		res := invoke(ctx, s, s.samplePolicy, opCreateSample, func(ctx context.Context) (*labapi.CreateSampleResponse, error) {
			return s.api.CreateSample(ctx, sample.Barcode)
		}, sampleApplicationError)

		var sampleID string
		switch res.Kind {
		case CallOK:
			sampleID = res.Value.SampleID
		default:
			return s.fail(FailureSample, fmt.Sprintf("Error creating sample %s: %s", sample.Barcode, res.Cause()), false)
		}

		s.addCreated(sampleID)
		s.notify(fmt.Sprintf("Sample created: %s", sampleID), SeveritySuccess, SampleCreatedDuration)
		s.setProgress(Progress{Stage: StageCreatingSlides, Current: i + 1, Total: total})

		for _, slide := range sample.Slides {
			res := invoke(ctx, s, s.samplePolicy, opCreateSlide, func(ctx context.Context) (*labapi.CreateSlideResponse, error) {
				return s.api.CreateSlide(ctx, sampleID, slide.Barcode)
			}, slideApplicationError)

			switch res.Kind {
			case CallOK:
				s.notify(fmt.Sprintf("Slide created: %s", slide.Barcode), SeveritySuccess, SlideCreatedDuration)
			default:
				return s.fail(FailureSlide, fmt.Sprintf("Error creating slide %s: %s", slide.Barcode, res.Cause()), false)
			}
		}
	}

	return s.createBatch(ctx, s.CreatedSampleIDs())
}

func (s *Submitter) createBatch(ctx context.Context, sampleIDs []string) Outcome {
	s.setProgress(Progress{Stage: StageCreatingBatch, Current: 0, Total: 1})

	res := invoke(ctx, s, s.batchPolicy, opCreateBatch, func(ctx context.Context) (*labapi.CreateBatchResponse, error) {
		return s.api.CreateBatch(ctx, sampleIDs)
	}, batchApplicationError)

	created := strings.Join(sampleIDs, ", ")
	switch res.Kind {
	case CallOK:
		logrus.WithField("batch_id", res.Value.BatchID).Infof("batch created with %d slides", res.Value.SlideCount)
		s.notify(fmt.Sprintf("Accession created successfully! Batch ID: %s", res.Value.BatchID), SeveritySuccess, AccessionCreatedDuration)
		return Outcome{Success: &Success{BatchID: res.Value.BatchID, SlideCount: res.Value.SlideCount}}
	case CallApplicationError:
		s.notify(fmt.Sprintf("Batch creation was rejected: %s", res.Message), SeverityWarning, BatchRejectedDuration)
		return s.fail(FailureBatchRejected, fmt.Sprintf("Batch Error: %s. Created samples: %s", res.Message, created), true)
	default:
		return s.fail(FailureBatch, fmt.Sprintf(
			"Batch creation failed: %s. Created samples: %s. Retry batch creation only; the samples and slides already exist.",
			res.Cause(), created), true)
	}
}

func (s *Submitter) fail(kind FailureKind, message string, recoverable bool) Outcome {
	ids := s.CreatedSampleIDs()
	logrus.WithFields(logrus.Fields{
		"kind":               kind,
		"partial_sample_ids": ids,
	}).Error(message)

	s.notify(message, SeverityError, ErrorDuration)
	if len(ids) > 0 {
		note := fmt.Sprintf("Note: %d samples were already created and were not rolled back.", len(ids))
		if recoverable {
			note = fmt.Sprintf("Note: %d samples were already created. You can retry batch creation to complete the accession.", len(ids))
		}
		s.notify(note, SeverityWarning, PartialNoteDuration)
	}

	return Outcome{Failure: &Failure{
		Kind:             kind,
		Message:          message,
		PartialSampleIDs: ids,
		Recoverable:      recoverable,
	}}
}

func (s *Submitter) observe(span trace.Span, out Outcome, elapsed time.Duration) {
	s.metrics.observeSubmission(out, elapsed)
	if out.Failure != nil {
		span.SetStatus(codes.Error, out.Failure.Message)
		span.SetAttributes(attribute.String("accession.failure_kind", string(out.Failure.Kind)))
		return
	}
	span.SetAttributes(attribute.String("accession.batch_id", out.Success.BatchID))
}

func (s *Submitter) begin(initialIDs []string) bool {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return false
	}
	s.loading = true
	s.createdIDs = append([]string{}, initialIDs...)
	s.progress = IdleProgress()
	s.mu.Unlock()
	return true
}

// finish ends the attempt. Progress is only meaningful while loading, so it
// always drops back to idle here.
func (s *Submitter) finish() {
	s.mu.Lock()
	s.loading = false
	s.progress = IdleProgress()
	ids := append([]string{}, s.createdIDs...)
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.ProgressChanged(IdleProgress(), ids)
	}
}

func (s *Submitter) setProgress(p Progress) {
	s.mu.Lock()
	s.progress = p
	ids := append([]string{}, s.createdIDs...)
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.ProgressChanged(p, ids)
	}
}

func (s *Submitter) addCreated(id string) {
	s.mu.Lock()
	s.createdIDs = append(s.createdIDs, id)
	s.mu.Unlock()
}

func (s *Submitter) notify(message string, severity Severity, d time.Duration) {
	s.notifier.Notify(NewNotification(message, severity, d))
}

// invoke runs one remote call through the retry policy and classifies the
// answer. Returned errors are transport faults; payload-level errors are
// found by classify and never retried.
func invoke[T any](ctx context.Context, s *Submitter, p retry.Policy, op string,
	call func(ctx context.Context) (T, error), classify func(T) (string, bool)) CallResult[T] {
	ctx, span := s.tracer.Start(ctx, "labapi."+op)
	defer span.End()

	attempts := 0
	value, err := retry.Do(ctx, p, op, func(ctx context.Context) (T, error) {
		attempts++
		v, err := call(ctx)
		if err != nil {
			s.metrics.remoteCall(op, CallTransportFault)
		}
		return v, err
	})
	span.SetAttributes(attribute.Int("attempts", attempts))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return transportFaultResult[T](err)
	}
	if msg, failed := classify(value); failed {
		s.metrics.remoteCall(op, CallApplicationError)
		span.SetStatus(codes.Error, msg)
		return applicationErrorResult[T](msg)
	}
	s.metrics.remoteCall(op, CallOK)
	return okResult(value)
}

func sampleApplicationError(r *labapi.CreateSampleResponse) (string, bool) {
	if r == nil {
		return "empty response", true
	}
	if msg, ok := r.ApplicationError(); ok {
		return msg, true
	}
	if r.SampleID == "" {
		return "no sample id returned", true
	}
	return "", false
}

func slideApplicationError(r *labapi.CreateSlideResponse) (string, bool) {
	if r == nil {
		return "empty response", true
	}
	return "", false
}

func batchApplicationError(r *labapi.CreateBatchResponse) (string, bool) {
	if r == nil {
		return "empty response", true
	}
	if msg, ok := r.ApplicationError(); ok {
		return msg, true
	}
	if r.BatchID == "" {
		return "no batch id returned", true
	}
	return "", false
}
