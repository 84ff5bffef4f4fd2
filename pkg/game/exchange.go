package game

// Exchange is one completed question and answer pair.
type Exchange struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// History is the ordered, append-only transcript of a game. The zero value is
// an empty history. A History is never mutated in place: Append returns a new
// value and leaves the receiver unchanged.
type History struct {
	exchanges []Exchange
}

func NewHistory(exchanges ...Exchange) History {
	return History{exchanges: append([]Exchange{}, exchanges...)}
}

func (h History) Append(e Exchange) History {
	// the full slice expression forces a copy so earlier values stay intact
	return History{exchanges: append(h.exchanges[:len(h.exchanges):len(h.exchanges)], e)}
}

func (h History) Len() int {
	return len(h.exchanges)
}

// Exchanges returns a copy of the recorded exchanges in turn order.
func (h History) Exchanges() []Exchange {
	return append([]Exchange{}, h.exchanges...)
}

// Last returns the most recent exchange.
func (h History) Last() (Exchange, bool) {
	if len(h.exchanges) == 0 {
		return Exchange{}, false
	}
	return h.exchanges[len(h.exchanges)-1], true
}

// Outcome is the result of a session that ran to completion, either because
// the guesser won or because the turn limit was reached.
type Outcome struct {
	Success        bool       `json:"success" yaml:"success"`
	Concept        string     `json:"concept" yaml:"concept"`
	QuestionsAsked int        `json:"questions_asked" yaml:"questions_asked"`
	Conversation   []Exchange `json:"conversation" yaml:"conversation"`
	SessionID      string     `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	MaxTurns       int        `json:"max_turns,omitempty" yaml:"max_turns,omitempty"`
}

func newOutcome(sessionID string, concept string, maxTurns int, success bool, history History) *Outcome {
	return &Outcome{
		Success:        success,
		Concept:        concept,
		QuestionsAsked: history.Len(),
		Conversation:   history.Exchanges(),
		SessionID:      sessionID,
		MaxTurns:       maxTurns,
	}
}
