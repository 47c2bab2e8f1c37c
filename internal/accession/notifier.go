package accession

import "time"

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// How long the dashboard keeps each kind of toast on screen.
const (
	SampleCreatedDuration     = 3 * time.Second
	SlideCreatedDuration      = 2 * time.Second
	AccessionCreatedDuration  = 5 * time.Second
	ValidationWarningDuration = 4 * time.Second
	BatchRejectedDuration     = 7 * time.Second
	ErrorDuration             = 7 * time.Second
	PartialNoteDuration       = 8 * time.Second
)

// Notification is a toast-style message for the operator.
type Notification struct {
	Message    string   `json:"message"`
	Severity   Severity `json:"severity"`
	DurationMs int64    `json:"duration_ms"`
}

func NewNotification(message string, severity Severity, d time.Duration) Notification {
	return Notification{Message: message, Severity: severity, DurationMs: d.Milliseconds()}
}

// Notifier receives notifications. Implementations must not block for long
// and their failures never affect a submission.
type Notifier interface {
	Notify(n Notification)
}

type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// ProgressListener observes stage transitions and the growing list of
// created sample ids.
type ProgressListener interface {
	ProgressChanged(p Progress, createdSampleIDs []string)
}

type ProgressListenerFunc func(p Progress, createdSampleIDs []string)

func (f ProgressListenerFunc) ProgressChanged(p Progress, createdSampleIDs []string) {
	f(p, createdSampleIDs)
}

type discardNotifier struct{}

func (discardNotifier) Notify(Notification) {}
