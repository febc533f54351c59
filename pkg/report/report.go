// Package report delivers upload progress events to observers such as the
// log, the terminal and metrics.
package report

import "time"

// Kind identifies a progress event.
type Kind string

// Event kinds emitted during an upload run.
const (
	KindStarted      Kind = "started"
	KindItemUploaded Kind = "itemUploaded"
	KindItemFailed   Kind = "itemFailed"
	KindBatchFlushed Kind = "batchFlushed"
	KindCompleted    Kind = "completed"
)

// Event is the payload of a progress event. Only the fields relevant to
// the event kind are populated.
type Event struct {
	Bucket string

	// Item events.
	Key      string
	URL      string
	Err      error
	Bytes    int64
	Duration time.Duration

	// Batch events. Batch is the 1-based flush sequence number.
	Batch int
	Keys  []string

	// Run events.
	Total      int
	Uploaded   int
	Failed     int
	TotalBytes int64
	Elapsed    time.Duration
}

// Reporter receives progress events. Notify is called synchronously from
// the upload loop and must not block for long.
type Reporter interface {
	Notify(kind Kind, ev Event)
}

// Func adapts a function to the Reporter interface.
type Func func(kind Kind, ev Event)

// Notify calls f(kind, ev).
func (f Func) Notify(kind Kind, ev Event) {
	f(kind, ev)
}

// Nop is a Reporter that discards every event.
var Nop Reporter = Func(func(Kind, Event) {})

type multi []Reporter

// Multi fans events out to every non-nil reporter in order.
func Multi(reporters ...Reporter) Reporter {
	out := make(multi, 0, len(reporters))

	for _, r := range reporters {
		if r != nil {
			out = append(out, r)
		}
	}

	return out
}

func (m multi) Notify(kind Kind, ev Event) {
	for _, r := range m {
		r.Notify(kind, ev)
	}
}
