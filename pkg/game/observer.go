package game

import (
	"github.com/go-go-golems/akinator/pkg/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Observer receives the progress of a session. Callbacks run synchronously
// on the session goroutine, in game order.
type Observer interface {
	OnGameStart(concept string, maxTurns int)
	OnTurnStart(turn int)
	OnQuestion(turn int, question string)
	OnAnswer(turn int, answer string)
	// OnDelta is called for every streamed fragment, before the complete
	// text is known.
	OnDelta(role Role, turn int, delta string)
	OnGameEnd(outcome *Outcome)
	OnGameError(err error)
}

type NopObserver struct{}

var _ Observer = NopObserver{}

func (NopObserver) OnGameStart(string, int) {}
func (NopObserver) OnTurnStart(int) {}
func (NopObserver) OnQuestion(int, string) {}
func (NopObserver) OnAnswer(int, string) {}
func (NopObserver) OnDelta(Role, int, string) {}
func (NopObserver) OnGameEnd(*Outcome) {}
func (NopObserver) OnGameError(error) {}

// MultiObserver fans every callback out to all observers in order.
type MultiObserver []Observer

var _ Observer = MultiObserver{}

func (m MultiObserver) OnGameStart(concept string, maxTurns int) {
	for _, o := range m {
		o.OnGameStart(concept, maxTurns)
	}
}

func (m MultiObserver) OnTurnStart(turn int) {
	for _, o := range m {
		o.OnTurnStart(turn)
	}
}

func (m MultiObserver) OnQuestion(turn int, question string) {
	for _, o := range m {
		o.OnQuestion(turn, question)
	}
}

func (m MultiObserver) OnAnswer(turn int, answer string) {
	for _, o := range m {
		o.OnAnswer(turn, answer)
	}
}

func (m MultiObserver) OnDelta(role Role, turn int, delta string) {
	for _, o := range m {
		o.OnDelta(role, turn, delta)
	}
}

func (m MultiObserver) OnGameEnd(outcome *Outcome) {
	for _, o := range m {
		o.OnGameEnd(outcome)
	}
}

func (m MultiObserver) OnGameError(err error) {
	for _, o := range m {
		o.OnGameError(err)
	}
}

// EventObserver publishes game level events to sinks. Streamed fragments are
// not republished: the inference engines already emit partial completion
// events for them.
type EventObserver struct {
	SessionID string
	Sinks     []events.EventSink
}

var _ Observer = (*EventObserver)(nil)

func NewEventObserver(sessionID string, sinks ...events.EventSink) *EventObserver {
	return &EventObserver{SessionID: sessionID, Sinks: sinks}
}

func (e *EventObserver) metadata(turn int, role string) events.EventMetadata {
	return events.EventMetadata{
		ID:        uuid.New(),
		SessionID: e.SessionID,
		Turn:      turn,
		Role:      role,
	}
}

func (e *EventObserver) OnGameStart(concept string, maxTurns int) {
	events.PublishToSinks(e.Sinks, events.NewGameStartEvent(e.metadata(0, ""), concept, maxTurns))
}

func (e *EventObserver) OnTurnStart(turn int) {
	events.PublishToSinks(e.Sinks, events.NewTurnStartEvent(e.metadata(turn, "")))
}

func (e *EventObserver) OnQuestion(turn int, question string) {
	events.PublishToSinks(e.Sinks, events.NewQuestionEvent(e.metadata(turn, RoleGuesser.String()), question))
}

func (e *EventObserver) OnAnswer(turn int, answer string) {
	events.PublishToSinks(e.Sinks, events.NewAnswerEvent(e.metadata(turn, RoleAnswerer.String()), answer))
}

func (e *EventObserver) OnDelta(Role, int, string) {}

func (e *EventObserver) OnGameEnd(outcome *Outcome) {
	events.PublishToSinks(e.Sinks, events.NewGameEndEvent(
		e.metadata(outcome.QuestionsAsked, ""),
		outcome.Success, outcome.Concept, outcome.QuestionsAsked, outcome.MaxTurns,
	))
}

func (e *EventObserver) OnGameError(err error) {
	events.PublishToSinks(e.Sinks, events.NewGameErrorEvent(e.metadata(0, ""), err))
}

// LogObserver writes the game progress to a zerolog logger at debug level.
type LogObserver struct {
	logger zerolog.Logger
}

var _ Observer = (*LogObserver)(nil)

func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (l *LogObserver) OnGameStart(concept string, maxTurns int) {
	l.logger.Debug().Str("concept", concept).Int("max_turns", maxTurns).Msg("game started")
}

func (l *LogObserver) OnTurnStart(turn int) {
	l.logger.Debug().Int("turn", turn).Msg("turn started")
}

func (l *LogObserver) OnQuestion(turn int, question string) {
	l.logger.Debug().Int("turn", turn).Str("question", question).Msg("guesser asked")
}

func (l *LogObserver) OnAnswer(turn int, answer string) {
	l.logger.Debug().Int("turn", turn).Str("answer", answer).Msg("answerer replied")
}

func (l *LogObserver) OnDelta(role Role, turn int, delta string) {
	l.logger.Trace().Int("turn", turn).Str("role", role.String()).Str("delta", delta).Msg("fragment")
}

func (l *LogObserver) OnGameEnd(outcome *Outcome) {
	l.logger.Info().
		Bool("success", outcome.Success).
		Int("questions_asked", outcome.QuestionsAsked).
		Msg("game finished")
}

func (l *LogObserver) OnGameError(err error) {
	l.logger.Error().Err(err).Msg("game failed")
}
