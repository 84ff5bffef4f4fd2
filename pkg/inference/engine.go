package inference

import (
	"context"

	"github.com/go-go-golems/akinator/pkg/conversation"
	"github.com/go-go-golems/akinator/pkg/helpers"
)

// Request is a single inference call: a role tagged message sequence and a
// sampling temperature.
type Request struct {
	Messages    conversation.Conversation
	Temperature float64
}

// Engine generates text for a Request.
//
// Stream emits fragments in order; their concatenation is the full response.
// The channel is closed once the response is complete. A failure is delivered
// as an error result, after which the channel is closed.
type Engine interface {
	Generate(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request) (<-chan helpers.Result[string], error)
}

// EngineFuncs adapts a pair of functions to the Engine interface.
type EngineFuncs struct {
	GenerateFunc func(ctx context.Context, req Request) (string, error)
	StreamFunc   func(ctx context.Context, req Request) (<-chan helpers.Result[string], error)
}

func (e *EngineFuncs) Generate(ctx context.Context, req Request) (string, error) {
	return e.GenerateFunc(ctx, req)
}

func (e *EngineFuncs) Stream(ctx context.Context, req Request) (<-chan helpers.Result[string], error) {
	return e.StreamFunc(ctx, req)
}

var _ Engine = (*EngineFuncs)(nil)
