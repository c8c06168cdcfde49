package engine

import "github.com/driftwatch/audiosync/internal/avsync"

// EventType names match the wire protocol consumed by the HTTP stream
// and the CLI progress printer.
type EventType string

const (
	EventLog       EventType = "log"
	EventFileStart EventType = "file_start"
	EventFileEnd   EventType = "file_end"
	EventProgress  EventType = "progress"
	EventResult    EventType = "result"
	EventDone      EventType = "done"
	EventCanceled  EventType = "canceled"
	EventFailed    EventType = "failed"
)

// Progress is the payload of a progress event. EtaMs is advisory: mean
// elapsed per processed item projected over the remainder.
type Progress struct {
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Current   string `json:"current,omitempty"`
	EtaMs     *int64 `json:"eta_ms,omitempty"`
}

// Event is one entry of a run's ordered event stream. Exactly one
// terminal event (done, canceled or failed) closes the stream.
type Event struct {
	Type      EventType       `json:"type"`
	Message   string          `json:"message,omitempty"`
	File      string          `json:"file,omitempty"`
	ElapsedMs int64           `json:"elapsed_ms,omitempty"`
	Progress  *Progress       `json:"progress,omitempty"`
	Result    *avsync.Result  `json:"result,omitempty"`
	Results   []avsync.Result `json:"results,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Terminal reports whether the event closes the stream.
func (e Event) Terminal() bool {
	switch e.Type {
	case EventDone, EventCanceled, EventFailed:
		return true
	default:
		return false
	}
}
