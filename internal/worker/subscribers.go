package worker

import (
	"fmt"

	"go.uber.org/zap"
)

// Subscriber attaches its handlers to the event dispatcher.
type Subscriber interface {
	RegisterHandlers()
}

// StartSubscribers registers every non-nil subscriber and returns how many
// were started.
func StartSubscribers(logger *zap.Logger, subscribers ...Subscriber) int {
	if logger == nil {
		logger = zap.NewNop()
	}
	started := 0
	for _, sub := range subscribers {
		if sub == nil {
			continue
		}
		sub.RegisterHandlers()
		started++
		logger.Debug("event subscriber started", zap.String("subscriber", fmt.Sprintf("%T", sub)))
	}
	return started
}
