package mock

import (
	"context"
	"testing"

	"github.com/go-go-golems/akinator/pkg/conversation"
	"github.com/go-go-golems/akinator/pkg/events"
	"github.com/go-go-golems/akinator/pkg/helpers"
	"github.com/go-go-golems/akinator/pkg/inference"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []events.Event
}

func (r *recordingSink) PublishEvent(event events.Event) error {
	r.events = append(r.events, event)
	return nil
}

func req(text string) inference.Request {
	return inference.Request{
		Messages:    conversation.NewConversation(conversation.NewChatMessage(conversation.RoleUser, text)),
		Temperature: 0.3,
	}
}

func TestEngineRoundRobin(t *testing.T) {
	e := NewTextEngine("First", "Second")
	ctx := context.Background()

	for _, expected := range []string{"First", "Second", "First"} {
		text, err := e.Generate(ctx, req("q"))
		require.NoError(t, err)
		assert.Equal(t, expected, text)
	}
	assert.Equal(t, 3, e.Calls())
	assert.Equal(t, 0.3, e.Requests()[0].Temperature)
}

func TestEngineEmpty(t *testing.T) {
	e := NewTextEngine()
	_, err := e.Generate(context.Background(), req("q"))
	require.ErrorIs(t, err, ErrNoResponses)
	_, err = e.Stream(context.Background(), req("q"))
	require.ErrorIs(t, err, ErrNoResponses)
}

func TestEngineStreamEmitsChunksAndEvents(t *testing.T) {
	sink := &recordingSink{}
	e, err := NewEngine([]Response{Chunks("D", "ONE")}, inference.WithSink(sink))
	require.NoError(t, err)

	ctx := events.WithEventMetadata(context.Background(), events.EventMetadata{SessionID: "s", Turn: 4, Role: "answerer"})
	c, err := e.Stream(ctx, req("Is it Einstein?"))
	require.NoError(t, err)

	var fragments []string
	text, err := helpers.Drain(c, func(s string) { fragments = append(fragments, s) })
	require.NoError(t, err)
	assert.Equal(t, "DONE", text)
	assert.Equal(t, []string{"D", "ONE"}, fragments)

	var types []events.EventType
	for _, ev := range sink.events {
		types = append(types, ev.Type())
		assert.Equal(t, 4, ev.Metadata().Turn)
		assert.Equal(t, "answerer", ev.Metadata().Role)
	}
	assert.Equal(t, []events.EventType{
		events.EventTypeStart,
		events.EventTypePartialCompletion,
		events.EventTypePartialCompletion,
		events.EventTypeFinal,
	}, types)
}

func TestEngineScriptedFailure(t *testing.T) {
	boom := errors.New("service unavailable")
	e, err := NewEngine([]Response{Fail(boom), {Chunks: []string{"par"}, Err: boom}})
	require.NoError(t, err)

	_, err = e.Generate(context.Background(), req("q"))
	require.ErrorIs(t, err, boom)

	c, err := e.Stream(context.Background(), req("q"))
	require.NoError(t, err)
	text, err := helpers.Drain(c, nil)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "par", text)
}

func TestEngineHonoursCancelledContext(t *testing.T) {
	e := NewTextEngine("never")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Generate(ctx, req("q"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, e.Calls())
}

func TestDemoEngine(t *testing.T) {
	e, err := NewDemoEngine("Einstein")
	require.NoError(t, err)
	var got []string
	for i := 0; i < 6; i++ {
		text, err := e.Generate(context.Background(), req("q"))
		require.NoError(t, err)
		got = append(got, text)
	}
	assert.Equal(t, "Is it Einstein?", got[4])
	assert.Equal(t, "DONE", got[5])
}
