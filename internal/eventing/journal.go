package eventing

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Correlated is implemented by events that belong to a run or request.
type Correlated interface {
	CorrelationID() string
}

// JournalHandler logs every event as a serialized envelope.
func JournalHandler(logger *log.Logger) Handler {
	return func(ctx context.Context, event any) error {
		if logger == nil {
			return nil
		}
		var correlation string
		if c, ok := event.(Correlated); ok {
			correlation = c.CorrelationID()
		}
		envelope, err := NewEnvelope(event, correlation, time.Now())
		if err != nil {
			return err
		}
		line, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		logger.Printf("event=domain_event type=%s id=%s envelope=%s", envelope.Type, envelope.ID, line)
		return nil
	}
}
