package eventing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is the serialized form of an event.
type Envelope struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	At            time.Time       `json:"at"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope serializes event under a fresh id.
func NewEnvelope(event any, correlationID string, at time.Time) (Envelope, error) {
	if event == nil {
		return Envelope{}, ErrNilEvent
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("eventing: encode %s: %w", TypeName(event), err)
	}
	return Envelope{
		ID:            uuid.NewString(),
		Type:          TypeName(event),
		CorrelationID: correlationID,
		At:            at.UTC(),
		Payload:       payload,
	}, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("eventing: decode %s: %w", e.Type, err)
	}
	return nil
}
