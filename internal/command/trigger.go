package command

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrEmptyTrigger is returned by DecodeTrigger for an empty payload.
var ErrEmptyTrigger = errors.New("command: empty trigger payload")

// Trigger is an externally originated request before parsing. Source names
// the intake path it arrived on (spool, websocket, nats, cli) and is used
// only for logging.
type Trigger struct {
	ID     string            `json:"id,omitempty"`
	Action string            `json:"action"`
	Params map[string]string `json:"params,omitempty"`
	Source string            `json:"-"`
}

// NewTrigger builds a trigger with a fresh ID.
func NewTrigger(action string, params map[string]string) Trigger {
	return Trigger{
		ID:     uuid.NewString(),
		Action: action,
		Params: params,
	}
}

// EnsureID assigns a fresh ID if the sender did not provide one.
func (t *Trigger) EnsureID() {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
}

// DecodeTrigger parses the JSON wire form of a trigger. A well-formed
// payload with an unknown action decodes fine; rejecting it is the parser's
// job, not the codec's.
func DecodeTrigger(data []byte) (Trigger, error) {
	if len(data) == 0 {
		return Trigger{}, ErrEmptyTrigger
	}

	var t Trigger
	if err := json.Unmarshal(data, &t); err != nil {
		return Trigger{}, fmt.Errorf("command: decoding trigger: %w", err)
	}

	t.EnsureID()

	return t, nil
}

// EncodeTrigger returns the JSON wire form of a trigger.
func EncodeTrigger(t Trigger) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("command: encoding trigger: %w", err)
	}

	return data, nil
}
