package game

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/go-go-golems/akinator/pkg/events"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingObserver keeps a flat log of every callback.
type recordingObserver struct {
	mu      sync.Mutex
	calls   []string
	outcome *Outcome
	err     error
}

func (r *recordingObserver) add(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recordingObserver) OnGameStart(concept string, maxTurns int) {
	r.add("start %s %d", concept, maxTurns)
}

func (r *recordingObserver) OnTurnStart(turn int) {
	r.add("turn %d", turn)
}

func (r *recordingObserver) OnQuestion(turn int, question string) {
	r.add("question %d %s", turn, question)
}

func (r *recordingObserver) OnAnswer(turn int, answer string) {
	r.add("answer %d %s", turn, answer)
}

func (r *recordingObserver) OnDelta(role Role, turn int, delta string) {
	r.add("delta %s %d %s", role, turn, delta)
}

func (r *recordingObserver) OnGameEnd(outcome *Outcome) {
	r.outcome = outcome
	r.add("end %v %d", outcome.Success, outcome.QuestionsAsked)
}

func (r *recordingObserver) OnGameError(err error) {
	r.err = err
	r.add("error")
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingSink) PublishEvent(event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := []events.EventType{}
	for _, e := range r.events {
		ret = append(ret, e.Type())
	}
	return ret
}

func TestEventObserverPublishesGameEvents(t *testing.T) {
	sink := &recordingSink{}
	o := NewEventObserver("session-1", sink)

	o.OnGameStart("Einstein", 3)
	o.OnTurnStart(1)
	o.OnQuestion(1, "Is it Einstein?")
	o.OnDelta(RoleAnswerer, 1, "D")
	o.OnAnswer(1, "DONE")
	o.OnGameEnd(&Outcome{Success: true, Concept: "Einstein", QuestionsAsked: 1, MaxTurns: 3})

	assert.Equal(t, []events.EventType{
		events.EventTypeGameStart,
		events.EventTypeTurnStart,
		events.EventTypeQuestion,
		events.EventTypeAnswer,
		events.EventTypeGameEnd,
	}, sink.types())

	q, ok := sink.events[2].(*events.EventText)
	require.True(t, ok)
	assert.Equal(t, "Is it Einstein?", q.Text)
	assert.Equal(t, "guesser", q.Metadata().Role)
	assert.Equal(t, "session-1", q.Metadata().SessionID)

	end, ok := sink.events[4].(*events.EventGameEnd)
	require.True(t, ok)
	assert.True(t, end.Success)
	assert.Equal(t, 3, end.MaxTurns)
}

func TestEventObserverGameError(t *testing.T) {
	sink := &recordingSink{}
	NewEventObserver("s", sink).OnGameError(errors.New("boom"))
	require.Len(t, sink.events, 1)
	e, ok := sink.events[0].(*events.EventError)
	require.True(t, ok)
	assert.Equal(t, events.EventTypeGameError, e.Type())
	assert.Equal(t, "boom", e.ErrorString)
}

func TestMultiObserverFansOutInOrder(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	m := MultiObserver{a, NopObserver{}, b}
	m.OnTurnStart(1)
	m.OnAnswer(1, "No")
	assert.Equal(t, []string{"turn 1", "answer 1 No"}, a.calls)
	assert.Equal(t, a.calls, b.calls)
}

func TestLogObserver(t *testing.T) {
	buf := &bytes.Buffer{}
	o := NewLogObserver(zerolog.New(buf).Level(zerolog.DebugLevel))
	o.OnQuestion(2, "Is it alive?")
	o.OnGameEnd(&Outcome{Success: false, QuestionsAsked: 2})
	assert.Contains(t, buf.String(), `"question":"Is it alive?"`)
	assert.Contains(t, buf.String(), `"questions_asked":2`)
}
