package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// EventTypeStart to EventTypeError are emitted by inference engines.
	EventTypeStart             EventType = "start"
	EventTypePartialCompletion EventType = "partial"
	EventTypeFinal             EventType = "final"
	EventTypeError             EventType = "error"

	// Game level events, emitted by the session observer.
	EventTypeGameStart EventType = "game-start"
	EventTypeTurnStart EventType = "turn-start"
	EventTypeQuestion  EventType = "question"
	EventTypeAnswer    EventType = "answer"
	EventTypeGameEnd   EventType = "game-end"
	EventTypeGameError EventType = "game-error"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

// LLMInferenceData is the inference specific part of the metadata.
type LLMInferenceData struct {
	Model       string   `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	DurationMs  *int64   `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
}

// EventMetadata is carried by every event. SessionID, Turn and Role correlate
// inference events with the game turn that triggered them.
type EventMetadata struct {
	LLMInferenceData
	ID        uuid.UUID `json:"message_id" yaml:"message_id"`
	SessionID string    `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Turn      int       `json:"turn,omitempty" yaml:"turn,omitempty"`
	Role      string    `json:"role,omitempty" yaml:"role,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.SessionID != "" {
		e.Str("session_id", em.SessionID)
	}
	if em.Turn != 0 {
		e.Int("turn", em.Turn)
	}
	if em.Role != "" {
		e.Str("role", em.Role)
	}
	if em.Model != "" {
		e.Str("model", em.Model)
	}
	if em.Temperature != nil {
		e.Float64("temperature", *em.Temperature)
	}
	if em.DurationMs != nil {
		e.Int64("duration_ms", *em.DurationMs)
	}
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta"`

	// payload is only set when the event was decoded with NewEventFromJson
	payload []byte
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

var _ Event = &EventImpl{}

type EventPartialCompletionStart struct {
	EventImpl
}

func NewStartEvent(metadata EventMetadata) *EventPartialCompletionStart {
	return &EventPartialCompletionStart{
		EventImpl: EventImpl{Type_: EventTypeStart, Metadata_: metadata},
	}
}

// EventPartialCompletion is one streamed fragment. Completion is the text
// accumulated so far, including Delta.
type EventPartialCompletion struct {
	EventImpl
	Delta      string `json:"delta"`
	Completion string `json:"completion"`
}

func NewPartialCompletionEvent(metadata EventMetadata, delta string, completion string) *EventPartialCompletion {
	return &EventPartialCompletion{
		EventImpl:  EventImpl{Type_: EventTypePartialCompletion, Metadata_: metadata},
		Delta:      delta,
		Completion: completion,
	}
}

type EventFinal struct {
	EventImpl
	Text string `json:"text"`
}

func NewFinalEvent(metadata EventMetadata, text string) *EventFinal {
	return &EventFinal{
		EventImpl: EventImpl{Type_: EventTypeFinal, Metadata_: metadata},
		Text:      text,
	}
}

type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	return &EventError{
		EventImpl:   EventImpl{Type_: EventTypeError, Metadata_: metadata},
		ErrorString: err.Error(),
	}
}

func NewGameErrorEvent(metadata EventMetadata, err error) *EventError {
	return &EventError{
		EventImpl:   EventImpl{Type_: EventTypeGameError, Metadata_: metadata},
		ErrorString: err.Error(),
	}
}

type EventGameStart struct {
	EventImpl
	Concept  string `json:"concept"`
	MaxTurns int    `json:"max_turns"`
}

func NewGameStartEvent(metadata EventMetadata, concept string, maxTurns int) *EventGameStart {
	return &EventGameStart{
		EventImpl: EventImpl{Type_: EventTypeGameStart, Metadata_: metadata},
		Concept:   concept,
		MaxTurns:  maxTurns,
	}
}

type EventTurnStart struct {
	EventImpl
}

func NewTurnStartEvent(metadata EventMetadata) *EventTurnStart {
	return &EventTurnStart{
		EventImpl: EventImpl{Type_: EventTypeTurnStart, Metadata_: metadata},
	}
}

// EventText carries a complete question or answer.
type EventText struct {
	EventImpl
	Text string `json:"text"`
}

func NewQuestionEvent(metadata EventMetadata, text string) *EventText {
	return &EventText{
		EventImpl: EventImpl{Type_: EventTypeQuestion, Metadata_: metadata},
		Text:      text,
	}
}

func NewAnswerEvent(metadata EventMetadata, text string) *EventText {
	return &EventText{
		EventImpl: EventImpl{Type_: EventTypeAnswer, Metadata_: metadata},
		Text:      text,
	}
}

type EventGameEnd struct {
	EventImpl
	Success        bool   `json:"success"`
	Concept        string `json:"concept"`
	QuestionsAsked int    `json:"questions_asked"`
	MaxTurns       int    `json:"max_turns"`
}

func NewGameEndEvent(metadata EventMetadata, success bool, concept string, questionsAsked int, maxTurns int) *EventGameEnd {
	return &EventGameEnd{
		EventImpl:      EventImpl{Type_: EventTypeGameEnd, Metadata_: metadata},
		Success:        success,
		Concept:        concept,
		QuestionsAsked: questionsAsked,
		MaxTurns:       maxTurns,
	}
}

var (
	_ Event = &EventPartialCompletionStart{}
	_ Event = &EventPartialCompletion{}
	_ Event = &EventFinal{}
	_ Event = &EventError{}
	_ Event = &EventGameStart{}
	_ Event = &EventTurnStart{}
	_ Event = &EventText{}
	_ Event = &EventGameEnd{}
)

// NewEventFromJson decodes a JSON payload produced by one of the sinks back
// into its typed event.
func NewEventFromJson(b []byte) (Event, error) {
	var e *EventImpl
	err := json.Unmarshal(b, &e)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("empty event payload")
	}
	e.payload = b

	switch e.Type_ {
	case EventTypeStart:
		return decodeTyped[EventPartialCompletionStart](b)
	case EventTypePartialCompletion:
		return decodeTyped[EventPartialCompletion](b)
	case EventTypeFinal:
		return decodeTyped[EventFinal](b)
	case EventTypeError, EventTypeGameError:
		return decodeTyped[EventError](b)
	case EventTypeGameStart:
		return decodeTyped[EventGameStart](b)
	case EventTypeTurnStart:
		return decodeTyped[EventTurnStart](b)
	case EventTypeQuestion, EventTypeAnswer:
		return decodeTyped[EventText](b)
	case EventTypeGameEnd:
		return decodeTyped[EventGameEnd](b)
	}

	return e, nil
}

type payloadSetter interface {
	Event
	setPayload([]byte)
}

func (e *EventImpl) setPayload(b []byte) {
	e.payload = b
}

func decodeTyped[T any, PT interface {
	*T
	payloadSetter
}](b []byte) (Event, error) {
	var ret T
	if err := json.Unmarshal(b, &ret); err != nil {
		return nil, err
	}
	p := PT(&ret)
	p.setPayload(b)
	return p, nil
}
