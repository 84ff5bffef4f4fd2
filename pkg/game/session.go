package game

import (
	"context"

	"github.com/go-go-golems/akinator/pkg/events"
	"github.com/go-go-golems/akinator/pkg/inference"
	"github.com/go-go-golems/akinator/pkg/settings"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Session plays one game for a fixed concept. A session can be run more
// than once; every run starts from an empty history.
type Session struct {
	ID       string
	Concept  string
	MaxTurns int
	Turns    *TurnEngine
	Observer Observer

	sinks []events.EventSink
}

type SessionOption func(*Session)

func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		s.ID = id
	}
}

func WithMaxTurns(maxTurns int) SessionOption {
	return func(s *Session) {
		s.MaxTurns = maxTurns
	}
}

// WithObserver adds an observer. Observers are called in the order they were
// added.
func WithObserver(o Observer) SessionOption {
	return func(s *Session) {
		if s.Observer == nil {
			s.Observer = o
			return
		}
		s.Observer = MultiObserver{s.Observer, o}
	}
}

// WithEventSinks publishes game events for this session to sinks.
func WithEventSinks(sinks ...events.EventSink) SessionOption {
	return func(s *Session) {
		s.sinks = append(s.sinks, sinks...)
	}
}

func NewSession(concept string, turns *TurnEngine, options ...SessionOption) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		Concept:  concept,
		MaxTurns: settings.DefaultMaxTurns,
		Turns:    turns,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Session) observer() Observer {
	obs := s.Observer
	if obs == nil {
		obs = NopObserver{}
	}
	if len(s.sinks) > 0 {
		obs = MultiObserver{obs, NewEventObserver(s.ID, s.sinks...)}
	}
	return obs
}

func (s *Session) validate() error {
	if s.Concept == "" {
		return errors.Wrap(ErrInvalidInput, "concept must not be empty")
	}
	if s.MaxTurns < 1 {
		return errors.Wrapf(ErrInvalidInput, "max turns must be positive, got %d", s.MaxTurns)
	}
	if s.Turns == nil {
		return errors.Wrap(ErrInvalidInput, "no turn engine")
	}
	return nil
}

// Run plays turns until the answerer replies with the win sentinel or the
// turn limit is reached. Any failure aborts the game: the returned outcome is
// nil and the error is a *SessionError carrying the completed exchanges,
// except for invalid input which is reported before any turn is played.
func (s *Session) Run(ctx context.Context) (*Outcome, error) {
	obs := s.observer()
	if err := s.validate(); err != nil {
		obs.OnGameError(err)
		return nil, err
	}

	logger := log.With().Str("session_id", s.ID).Logger()
	ctx = events.WithEventMetadata(ctx, events.EventMetadata{SessionID: s.ID})

	obs.OnGameStart(s.Concept, s.MaxTurns)
	logger.Debug().Int("max_turns", s.MaxTurns).Bool("stream", s.Turns.Streaming()).Msg("session started")

	history := History{}
	for turn := 1; turn <= s.MaxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return nil, s.fail(obs, history, err)
		}

		obs.OnTurnStart(turn)
		result, next, err := s.Turns.RunTurn(ctx, TurnInput{
			Concept:  s.Concept,
			Turn:     turn,
			History:  history,
			Observer: obs,
		})
		if err != nil {
			return nil, s.fail(obs, history, err)
		}
		history = next

		logger.Debug().Int("turn", turn).Bool("won", result.Won).Msg("turn completed")
		if result.Won {
			return s.finish(obs, true, history), nil
		}
	}

	return s.finish(obs, false, history), nil
}

func (s *Session) finish(obs Observer, success bool, history History) *Outcome {
	outcome := newOutcome(s.ID, s.Concept, s.MaxTurns, success, history)
	obs.OnGameEnd(outcome)
	return outcome
}

func (s *Session) fail(obs Observer, history History, err error) error {
	serr := &SessionError{History: history, Err: err}
	log.Debug().Err(err).Str("session_id", s.ID).Int("completed_turns", history.Len()).Msg("session failed")
	obs.OnGameError(serr)
	return serr
}

// RunGame plays one game with the same engine for both roles.
func RunGame(
	ctx context.Context,
	engine inference.Engine,
	concept string,
	maxTurns int,
	stream bool,
	options ...SessionOption,
) (*Outcome, error) {
	turns := NewTurnEngine(engine, engine, WithStreaming(stream))
	options = append([]SessionOption{WithMaxTurns(maxTurns)}, options...)
	return NewSession(concept, turns, options...).Run(ctx)
}
