// Package notify provides accession.Notifier and accession.ProgressListener
// implementations: structured logging, realtime events, fan-out and an
// in-memory recorder.
package notify

import (
	"sync"

	"github.com/sirupsen/logrus"
	"lab-accession-backend/internal/accession"
)

// Log writes every notification to logrus at a level matching its severity.
type Log struct {
	entry *logrus.Entry
}

func NewLog(fields logrus.Fields) *Log {
	return &Log{entry: logrus.WithFields(fields)}
}

func (l *Log) Notify(n accession.Notification) {
	entry := l.entry.WithFields(logrus.Fields{
		"severity":    n.Severity,
		"duration_ms": n.DurationMs,
	})
	switch n.Severity {
	case accession.SeverityError:
		entry.Error(n.Message)
	case accession.SeverityWarning:
		entry.Warn(n.Message)
	default:
		entry.Info(n.Message)
	}
}

// Fanout delivers each notification to every notifier in order.
type Fanout []accession.Notifier

func (f Fanout) Notify(n accession.Notification) {
	for _, notifier := range f {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}

// Listeners delivers each progress change to every listener in order.
type Listeners []accession.ProgressListener

func (l Listeners) ProgressChanged(p accession.Progress, createdSampleIDs []string) {
	for _, listener := range l {
		if listener != nil {
			listener.ProgressChanged(p, createdSampleIDs)
		}
	}
}

// Recorder keeps the notifications of the current attempt in memory, for
// clients that poll instead of subscribing to realtime events.
type Recorder struct {
	mu            sync.Mutex
	notifications []accession.Notification
}

func (r *Recorder) Notify(n accession.Notification) {
	r.mu.Lock()
	r.notifications = append(r.notifications, n)
	r.mu.Unlock()
}

func (r *Recorder) Notifications() []accession.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]accession.Notification{}, r.notifications...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.notifications = nil
	r.mu.Unlock()
}
