package accession

import (
	"context"
	"errors"
	"sync"
)

// Step is the page of the new-accession workflow.
type Step int

const (
	StepDetails Step = 1
	StepReview  Step = 2
)

var (
	ErrBusy        = errors.New("cannot close the workflow while a submission is in progress")
	ErrNotReviewed = errors.New("the draft must be reviewed before it is submitted")
)

// SubmitHook runs with the locked draft right before the submitter starts.
type SubmitHook func(ctx context.Context, d Draft)

// Workflow holds one operator's new-accession state: the form, the
// submitter, the current step and the last result.
type Workflow struct {
	form      *Form
	submitter *Submitter
	notifier  Notifier

	mu          sync.Mutex
	step        Step
	lastError   string
	success     bool
	lastOutcome *Outcome
}

// State is a snapshot of a Workflow.
type State struct {
	Step             Step     `json:"step"`
	Loading          bool     `json:"loading"`
	Error            string   `json:"error,omitempty"`
	Success          bool     `json:"success"`
	Progress         Progress `json:"progress"`
	CreatedSampleIDs []string `json:"created_sample_ids"`
	LastOutcome      *Outcome `json:"last_outcome,omitempty"`
	Draft            Draft    `json:"draft"`
	TotalSlides      int      `json:"total_slides"`
}

func NewWorkflow(submitter *Submitter, notifier Notifier) *Workflow {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	return &Workflow{
		form:      NewForm(),
		submitter: submitter,
		notifier:  notifier,
		step:      StepDetails,
	}
}

func (w *Workflow) Form() *Form {
	return w.form
}

// Next validates the draft and moves to the review step.
func (w *Workflow) Next() error {
	if err := Validate(w.form.Snapshot()); err != nil {
		w.reject(err)
		return err
	}
	w.mu.Lock()
	w.step = StepReview
	w.lastError = ""
	w.mu.Unlock()
	return nil
}

func (w *Workflow) Back() {
	w.mu.Lock()
	w.step = StepDetails
	w.lastError = ""
	w.mu.Unlock()
}

// Submit runs the reviewed draft through the submitter. The form stays locked
// for the whole attempt and is reset after a success.
func (w *Workflow) Submit(ctx context.Context, hook SubmitHook) (Outcome, error) {
	w.mu.Lock()
	step := w.step
	w.mu.Unlock()
	if step != StepReview {
		return Outcome{}, ErrNotReviewed
	}

	draft, err := w.form.Lock()
	if err != nil {
		return Outcome{}, ErrSubmissionInProgress
	}
	defer w.form.Unlock()

	if err := Validate(draft); err != nil {
		w.reject(err)
		return Outcome{}, err
	}

	w.mu.Lock()
	w.lastError = ""
	w.success = false
	w.mu.Unlock()

	if hook != nil {
		hook(ctx, draft)
	}
	out, err := w.submitter.Submit(ctx, draft)
	if err != nil {
		return Outcome{}, err
	}
	w.record(out)
	return out, nil
}

// RetryBatch retries only the batch step. With no ids it uses the partial
// ids of the last recoverable failure.
func (w *Workflow) RetryBatch(ctx context.Context, sampleIDs []string, hook SubmitHook) (Outcome, error) {
	if len(sampleIDs) == 0 {
		w.mu.Lock()
		if last := w.lastOutcome; last != nil && last.Failure != nil && last.Failure.Recoverable {
			sampleIDs = append([]string{}, last.Failure.PartialSampleIDs...)
		}
		w.mu.Unlock()
	}
	if len(sampleIDs) == 0 {
		return Outcome{}, ErrNoSampleIDs
	}

	// The form lock also serializes retries against submissions.
	draft, err := w.form.Lock()
	if err != nil {
		return Outcome{}, ErrSubmissionInProgress
	}
	defer w.form.Unlock()

	if hook != nil {
		hook(ctx, draft)
	}
	out, err := w.submitter.RetryBatch(ctx, sampleIDs)
	if err != nil {
		return Outcome{}, err
	}
	w.record(out)
	return out, nil
}

// Close abandons the workflow. It is refused while a submission runs.
func (w *Workflow) Close() error {
	if w.submitter.IsLoading() {
		return ErrBusy
	}
	if err := w.form.ResetUnlessLocked(); err != nil {
		return ErrBusy
	}
	w.mu.Lock()
	w.step = StepDetails
	w.lastError = ""
	w.success = false
	w.lastOutcome = nil
	w.mu.Unlock()
	return nil
}

func (w *Workflow) Progress() Progress {
	return w.submitter.Progress()
}

func (w *Workflow) IsLoading() bool {
	return w.submitter.IsLoading()
}

func (w *Workflow) State() State {
	draft := w.form.Snapshot()
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Step:             w.step,
		Loading:          w.submitter.IsLoading(),
		Error:            w.lastError,
		Success:          w.success,
		Progress:         w.submitter.Progress(),
		CreatedSampleIDs: w.submitter.CreatedSampleIDs(),
		LastOutcome:      w.lastOutcome,
		Draft:            draft,
		TotalSlides:      draft.SlideCount(),
	}
}

func (w *Workflow) record(out Outcome) {
	if out.Succeeded() {
		w.form.Reset()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastOutcome = &out
	w.success = out.Succeeded()
	w.lastError = out.Message()
	if w.success {
		w.step = StepDetails
	}
}

func (w *Workflow) reject(err error) {
	w.notifier.Notify(NewNotification(err.Error(), SeverityWarning, ValidationWarningDuration))
	w.mu.Lock()
	w.lastError = err.Error()
	w.mu.Unlock()
}
