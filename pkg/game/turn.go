package game

import (
	"context"

	"github.com/go-go-golems/akinator/pkg/events"
	"github.com/go-go-golems/akinator/pkg/helpers"
	"github.com/go-go-golems/akinator/pkg/inference"
	"github.com/go-go-golems/akinator/pkg/settings"
	"github.com/rs/zerolog/log"
)

// WinSentinel is the answer that ends the game with a win. It is compared
// verbatim: "done", "DONE." or " DONE" are ordinary answers.
const WinSentinel = "DONE"

type TurnState int

const (
	TurnAwaitingQuestion TurnState = iota
	TurnAwaitingAnswer
	TurnCompleted
)

func (s TurnState) String() string {
	switch s {
	case TurnAwaitingQuestion:
		return "awaiting-question"
	case TurnAwaitingAnswer:
		return "awaiting-answer"
	case TurnCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

type TurnResult struct {
	Exchange Exchange
	Won      bool
}

// TurnInput is everything one turn depends on.
type TurnInput struct {
	Concept  string
	Turn     int
	History  History
	Observer Observer
}

// TurnEngine runs one question and answer exchange. It is not safe for
// concurrent use; every session owns its own TurnEngine.
type TurnEngine struct {
	guesser  inference.Engine
	answerer inference.Engine
	prompts  *PromptBuilder

	guesserTemperature  float64
	answererTemperature float64
	stream              bool

	state TurnState
}

type TurnOption func(*TurnEngine)

func WithPromptBuilder(pb *PromptBuilder) TurnOption {
	return func(t *TurnEngine) {
		t.prompts = pb
	}
}

func WithTemperatures(guesser float64, answerer float64) TurnOption {
	return func(t *TurnEngine) {
		t.guesserTemperature = guesser
		t.answererTemperature = answerer
	}
}

// WithStreaming makes the engine consume inference output as a stream of
// fragments, handing each one to the observer as it arrives.
func WithStreaming(stream bool) TurnOption {
	return func(t *TurnEngine) {
		t.stream = stream
	}
}

func NewTurnEngine(guesser inference.Engine, answerer inference.Engine, options ...TurnOption) *TurnEngine {
	t := &TurnEngine{
		guesser:             guesser,
		answerer:            answerer,
		guesserTemperature:  settings.DefaultGuesserTemperature,
		answererTemperature: settings.DefaultAnswererTemperature,
		state:               TurnAwaitingQuestion,
	}
	for _, option := range options {
		option(t)
	}
	if t.prompts == nil {
		t.prompts = NewDefaultPromptBuilder()
	}
	return t
}

// State is the state reached by the last call to RunTurn. A failed turn stays
// in the state it failed in.
func (t *TurnEngine) State() TurnState {
	return t.state
}

func (t *TurnEngine) Streaming() bool {
	return t.stream
}

// RunTurn asks the guesser for a question, asks the answerer about it and
// returns the new history with exactly one exchange appended. The input
// history is left unchanged.
func (t *TurnEngine) RunTurn(ctx context.Context, in TurnInput) (TurnResult, History, error) {
	obs := in.Observer
	if obs == nil {
		obs = NopObserver{}
	}

	t.state = TurnAwaitingQuestion
	messages, err := t.prompts.BuildGuesserPrompt(in.History)
	if err != nil {
		return TurnResult{}, in.History, err
	}
	question, err := t.infer(ctx, RoleGuesser, in.Turn, obs, inference.Request{
		Messages:    messages,
		Temperature: t.guesserTemperature,
	})
	if err != nil {
		return TurnResult{}, in.History, err
	}
	obs.OnQuestion(in.Turn, question)

	t.state = TurnAwaitingAnswer
	messages, err = t.prompts.BuildAnswererPrompt(in.Concept, question)
	if err != nil {
		return TurnResult{}, in.History, err
	}
	answer, err := t.infer(ctx, RoleAnswerer, in.Turn, obs, inference.Request{
		Messages:    messages,
		Temperature: t.answererTemperature,
	})
	if err != nil {
		return TurnResult{}, in.History, err
	}
	obs.OnAnswer(in.Turn, answer)

	t.state = TurnCompleted
	result := TurnResult{
		Exchange: Exchange{Question: question, Answer: answer},
		Won:      answer == WinSentinel,
	}
	return result, in.History.Append(result.Exchange), nil
}

func (t *TurnEngine) engineFor(role Role) inference.Engine {
	if role == RoleAnswerer {
		return t.answerer
	}
	return t.guesser
}

// infer returns the complete response text. A stream is always drained to
// the end before its text is returned.
func (t *TurnEngine) infer(ctx context.Context, role Role, turn int, obs Observer, req inference.Request) (string, error) {
	md := events.MetadataFromContext(ctx)
	md.Turn = turn
	md.Role = role.String()
	ctx = events.WithEventMetadata(ctx, md)

	log.Debug().
		Str("session_id", md.SessionID).
		Int("turn", turn).
		Str("role", md.Role).
		Float64("temperature", req.Temperature).
		Bool("stream", t.stream).
		Msg("running inference")

	engine := t.engineFor(role)
	if !t.stream {
		text, err := engine.Generate(ctx, req)
		if err != nil {
			return "", &InferenceError{Role: role, Turn: turn, Err: err}
		}
		return text, nil
	}

	c, err := engine.Stream(ctx, req)
	if err != nil {
		return "", &InferenceError{Role: role, Turn: turn, Err: err}
	}
	text, err := helpers.Drain(c, func(delta string) {
		obs.OnDelta(role, turn, delta)
	})
	if err != nil {
		return "", &InferenceError{Role: role, Turn: turn, Err: err}
	}
	return text, nil
}
