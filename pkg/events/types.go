package events

import "encoding/json"

// Event names, used as the SSE event field.
const (
	TaskState    = "task.state"
	TaskProgress = "task.progress"
	ModelUpdate  = "model.update"
	DriftCheck   = "schedule.driftCheck"
)

// Event is a named JSON payload as carried on the daemon's event stream.
type Event struct {
	Name string
	Data json.RawMessage
}

// TaskStateEvent is the typed payload for task.state.
type TaskStateEvent struct {
	Task    string `json:"task"`
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message,omitempty"`
	Ts      int64  `json:"ts"`
}

// TaskProgressEvent is the typed payload for task.progress.
type TaskProgressEvent struct {
	Task    string `json:"task"`
	Percent int    `json:"percent"`
	Ts      int64  `json:"ts"`
}

// ModelUpdateEvent is published when a new display model is published.
type ModelUpdateEvent struct {
	Source string `json:"source"`
	Ts     int64  `json:"ts"`
}

// DriftCheckEvent is published when a scheduled evaluation starts or is
// skipped.
type DriftCheckEvent struct {
	Started bool   `json:"started"`
	Message string `json:"message,omitempty"`
	Ts      int64  `json:"ts"`
}

// DecodeAs unmarshals the payload of e into T without looking at its name.
// An empty payload decodes to the zero value.
func DecodeAs[T any](e Event) (T, error) {
	var v T
	if len(e.Data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(e.Data, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
