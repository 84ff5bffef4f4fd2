package events

import (
	"context"

	"github.com/rs/zerolog/log"
)

type ctxKey int

const (
	ctxKeyEventSinks ctxKey = iota
	ctxKeyEventMetadata
)

// WithEventSinks attaches sinks to the context, appending to the ones already present.
func WithEventSinks(ctx context.Context, sinks ...EventSink) context.Context {
	if len(sinks) == 0 {
		return ctx
	}
	existing := GetEventSinks(ctx)
	combined := append([]EventSink{}, existing...)
	combined = append(combined, sinks...)
	return context.WithValue(ctx, ctxKeyEventSinks, combined)
}

func GetEventSinks(ctx context.Context) []EventSink {
	if v := ctx.Value(ctxKeyEventSinks); v != nil {
		if sinks, ok := v.([]EventSink); ok {
			return sinks
		}
	}
	return nil
}

// PublishEventToContext publishes event to all sinks stored in the context.
func PublishEventToContext(ctx context.Context, event Event) {
	sinks := GetEventSinks(ctx)
	if len(sinks) == 0 {
		log.Trace().Str("event_type", string(event.Type())).Msg("PublishEventToContext: no sinks in context")
		return
	}
	PublishToSinks(sinks, event)
}

// WithEventMetadata stores correlation metadata (session, turn, role) that
// engines copy into the events they publish.
func WithEventMetadata(ctx context.Context, md EventMetadata) context.Context {
	return context.WithValue(ctx, ctxKeyEventMetadata, md)
}

// MetadataFromContext returns the metadata stored with WithEventMetadata, or
// the zero value.
func MetadataFromContext(ctx context.Context) EventMetadata {
	if v := ctx.Value(ctxKeyEventMetadata); v != nil {
		if md, ok := v.(EventMetadata); ok {
			return md
		}
	}
	return EventMetadata{}
}
