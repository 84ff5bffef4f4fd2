package inference

import (
	"context"

	"github.com/go-go-golems/akinator/pkg/events"
	"github.com/rs/zerolog/log"
)

// Option is a functional option for configuring engines.
type Option func(*Config) error

// Config holds the event sinks an engine publishes to.
type Config struct {
	EventSinks []events.EventSink
}

func NewConfig() *Config {
	return &Config{
		EventSinks: make([]events.EventSink, 0),
	}
}

// WithSink adds an EventSink. Events are published to all sinks in the order
// they were added.
func WithSink(sink events.EventSink) Option {
	return func(c *Config) error {
		c.EventSinks = append(c.EventSinks, sink)
		return nil
	}
}

func ApplyOptions(config *Config, options ...Option) error {
	for _, option := range options {
		if err := option(config); err != nil {
			return err
		}
	}
	return nil
}

// PublishEvent publishes event to the configured sinks and to the sinks
// carried in ctx.
func (c *Config) PublishEvent(ctx context.Context, event events.Event) {
	log.Trace().Str("event_type", string(event.Type())).Int("sink_count", len(c.EventSinks)).Msg("publishing inference event")
	events.PublishToSinks(c.EventSinks, event)
	events.PublishEventToContext(ctx, event)
}
