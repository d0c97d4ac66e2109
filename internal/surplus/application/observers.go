package application

import (
	"context"

	"energy-surplus/internal/eventing"
	"energy-surplus/internal/observability/metrics"
)

// SubscribeObservers attaches the handlers that react to run events.
func SubscribeObservers(bus *eventing.Bus) {
	eventing.Subscribe(bus, recordCorpusSize)
}

func recordCorpusSize(ctx context.Context, event CorpusComputed) error {
	metrics.SetCorpusSize(len(event.Countries), event.Rows)
	return nil
}
