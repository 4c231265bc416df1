package sync

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// DatasetResult is the recorded outcome of one dataset within a batch
type DatasetResult struct {
	Success bool   `json:"success"`
	Rows    int64  `json:"rows"`
	Message string `json:"message"`
}

// BatchResult aggregates the dataset outcomes of one batch
type BatchResult struct {
	Total     int                      `json:"total"`
	Completed int                      `json:"completed"`
	Failed    int                      `json:"failed"`
	Rows      int64                    `json:"rows"`
	Datasets  map[string]DatasetResult `json:"datasets"`
}

// Reporter receives progress and outcome notifications from the engine.
// Implementations must not call back into the engine; communication is
// strictly one-directional.
type Reporter interface {
	// Progress reports completion percent (0-100, or -1 for indeterminate)
	Progress(percent int, message string)
	// BatchDone reports one finished batch
	BatchDone(batch string, success bool, message string)
	// Finished reports the end of the whole run
	Finished(success bool, message string, results map[string]*BatchResult)
}

// LogReporter writes every notification to the process log
type LogReporter struct{}

// Progress implements Reporter
func (LogReporter) Progress(percent int, message string) {
	if percent < 0 {
		log.Printf("... %s", message)
		return
	}
	log.Printf("[%3d%%] %s", percent, message)
}

// BatchDone implements Reporter
func (LogReporter) BatchDone(batch string, success bool, message string) {
	if success {
		log.Printf("Batch %s completed: %s", batch, message)
	} else {
		log.Printf("Batch %s FAILED: %s", batch, message)
	}
}

// Finished implements Reporter
func (LogReporter) Finished(success bool, message string, results map[string]*BatchResult) {
	if success {
		log.Printf("Run finished: %s", message)
	} else {
		log.Printf("Run FAILED: %s", message)
	}
}

// EventKind tags messages on the event channel
type EventKind string

// Event kinds
const (
	EventProgress EventKind = "progress"
	EventBatch    EventKind = "batch"
	EventFinished EventKind = "finished"
)

// Event is one notification delivered to a background-run consumer
type Event struct {
	Kind    EventKind
	Percent int
	Message string
	Batch   string
	Success bool
	Results map[string]*BatchResult
}

// EventReporter forwards notifications over a channel so a caller can consume
// them while the engine runs on a background worker. Progress events are
// dropped when the consumer lags; batch and finished events always get
// through. The channel closes after Finished.
type EventReporter struct {
	events chan Event
	once   sync.Once
}

// NewEventReporter creates a reporter with the given channel buffer
func NewEventReporter(buffer int) *EventReporter {
	return &EventReporter{events: make(chan Event, buffer)}
}

// Events returns the receive side of the notification channel
func (r *EventReporter) Events() <-chan Event {
	return r.events
}

// Progress implements Reporter
func (r *EventReporter) Progress(percent int, message string) {
	select {
	case r.events <- Event{Kind: EventProgress, Percent: percent, Message: message}:
	default:
		// Consumer is behind; progress is advisory, skip it
	}
}

// BatchDone implements Reporter
func (r *EventReporter) BatchDone(batch string, success bool, message string) {
	r.events <- Event{Kind: EventBatch, Batch: batch, Success: success, Message: message}
}

// Finished implements Reporter
func (r *EventReporter) Finished(success bool, message string, results map[string]*BatchResult) {
	r.events <- Event{Kind: EventFinished, Success: success, Message: message, Results: results}
	r.once.Do(func() { close(r.events) })
}
