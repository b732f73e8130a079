package core

import "time"

// Progress event types, in the order a batch emits them.
const (
	EventBatchStarted   = "batch_started"
	EventItemStarted    = "item_started"
	EventItemLog        = "item_log"
	EventItemCompleted  = "item_completed"
	EventItemFailed     = "item_failed"
	EventBatchCompleted = "batch_completed"
)

// Event is one progress notification from a running batch.
type Event struct {
	Type    string    `json:"type"`
	BatchID string    `json:"batch_id,omitempty"`
	Article string    `json:"article,omitempty"`
	Message string    `json:"message,omitempty"`
	Done    int       `json:"done,omitempty"`
	Total   int       `json:"total,omitempty"`
	Time    time.Time `json:"time"`
}

// ProgressSink receives progress events. Implementations must be safe
// for concurrent use; workers emit from their own goroutines.
type ProgressSink interface {
	Emit(Event)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(Event)

func (f ProgressFunc) Emit(e Event) { f(e) }

// emit sends an event to a possibly-nil sink, stamping the time.
func emit(sink ProgressSink, e Event) {
	if sink == nil {
		return
	}
	e.Time = time.Now()
	sink.Emit(e)
}
