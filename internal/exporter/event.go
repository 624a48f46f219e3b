package exporter

import "github.com/fabdesk/backup-exporter/internal/model"

const (
	EventProgress = "progress"
	EventError    = "error"
	EventComplete = "complete"
)

// Event is one frame of the outbound stream. Exactly one JSON object per
// line; optional fields are omitted depending on Type. Current and Total are
// pointers so a zero current ("0 of N") still reaches the wire.
type Event struct {
	Type    string          `json:"type"`
	Phase   string          `json:"phase,omitempty"`
	Item    string          `json:"item,omitempty"`
	Current *int            `json:"current,omitempty"`
	Total   *int            `json:"total,omitempty"`
	Message string          `json:"message,omitempty"`
	Stats   *model.RunStats `json:"stats,omitempty"`
}

func progressEvent(phase, item string, current, total int) Event {
	return Event{
		Type:    EventProgress,
		Phase:   phase,
		Item:    item,
		Current: &current,
		Total:   &total,
	}
}

func errorEvent(phase, item, message string) Event {
	return Event{
		Type:    EventError,
		Phase:   phase,
		Item:    item,
		Message: message,
	}
}

func completeEvent(stats model.RunStats, message string) Event {
	return Event{
		Type:    EventComplete,
		Message: message,
		Stats:   &stats,
	}
}
