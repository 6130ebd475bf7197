package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/venohr/stepflow/pkg/channels/gochannel"
	"github.com/venohr/stepflow/pkg/channels/kafka"
	"github.com/venohr/stepflow/pkg/eventbus"
)

// NewEventBus creates the event bus for a service. An empty broker list falls
// back to an in-process channel, which only works for a single combined
// api+worker process.
func NewEventBus(kafkaBrokers, serviceName string, logger *slog.Logger) eventbus.EventBus {
	wmLogger := watermill.NewSlogLogger(logger)

	if kafkaBrokers == "" {
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create in-process pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	}

	pub, sub, err := kafka.CreateChannel(wmLogger, kafkaBrokers, serviceName)
	if err != nil {
		panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
	}

	return eventbus.NewWatermillEventBus(pub, sub)
}
