package inference

import (
	"context"
	"time"

	"github.com/go-go-golems/akinator/pkg/helpers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Middleware wraps an Engine. Chained middlewares run outermost first:
// NewEngineWithMiddleware(e, m1, m2) calls m1, then m2, then e.
type Middleware func(next Engine) Engine

func NewEngineWithMiddleware(engine Engine, middlewares ...Middleware) Engine {
	for i := len(middlewares) - 1; i >= 0; i-- {
		engine = middlewares[i](engine)
	}
	return engine
}

// forwardStream relays in to a new channel and calls onDone with the full
// text once in is closed.
func forwardStream(in <-chan helpers.Result[string], onDone func(text string, err error)) <-chan helpers.Result[string] {
	out := make(chan helpers.Result[string])
	go func() {
		defer close(out)
		var text string
		var firstErr error
		for r := range in {
			if v, err := r.Value(); err != nil {
				if firstErr == nil {
					firstErr = err
				}
			} else {
				text += v
			}
			out <- r
		}
		onDone(text, firstErr)
	}()
	return out
}

// NewLoggingMiddleware logs every inference call with its duration.
func NewLoggingMiddleware(logger zerolog.Logger) Middleware {
	return func(next Engine) Engine {
		lgFor := func(req Request, stream bool) zerolog.Logger {
			lg := logger
			if lg.GetLevel() == zerolog.NoLevel {
				lg = log.Logger
			}
			return lg.With().
				Int("message_count", len(req.Messages)).
				Float64("temperature", req.Temperature).
				Bool("stream", stream).
				Logger()
		}

		return &EngineFuncs{
			GenerateFunc: func(ctx context.Context, req Request) (string, error) {
				lg := lgFor(req, false)
				lg.Debug().Msg("inference: starting")
				start := time.Now()
				text, err := next.Generate(ctx, req)
				if err != nil {
					lg.Error().Err(err).Dur("duration", time.Since(start)).Msg("inference: failed")
					return text, err
				}
				lg.Debug().Int("length", len(text)).Dur("duration", time.Since(start)).Msg("inference: completed")
				return text, nil
			},
			StreamFunc: func(ctx context.Context, req Request) (<-chan helpers.Result[string], error) {
				lg := lgFor(req, true)
				lg.Debug().Msg("inference: starting")
				start := time.Now()
				c, err := next.Stream(ctx, req)
				if err != nil {
					lg.Error().Err(err).Msg("inference: failed to start stream")
					return nil, err
				}
				return forwardStream(c, func(text string, err error) {
					if err != nil {
						lg.Error().Err(err).Dur("duration", time.Since(start)).Msg("inference: stream failed")
						return
					}
					lg.Debug().Int("length", len(text)).Dur("duration", time.Since(start)).Msg("inference: stream completed")
				}), nil
			},
		}
	}
}

// NewTimeoutMiddleware bounds every inference call, including the time to
// drain a stream. A non-positive timeout disables the middleware.
func NewTimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next Engine) Engine {
		if timeout <= 0 {
			return next
		}
		return &EngineFuncs{
			GenerateFunc: func(ctx context.Context, req Request) (string, error) {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				return next.Generate(ctx, req)
			},
			StreamFunc: func(ctx context.Context, req Request) (<-chan helpers.Result[string], error) {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				c, err := next.Stream(ctx, req)
				if err != nil {
					cancel()
					return nil, err
				}
				return forwardStream(c, func(string, error) { cancel() }), nil
			},
		}
	}
}
