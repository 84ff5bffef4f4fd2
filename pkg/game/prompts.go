package game

import (
	"io"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/go-go-golems/akinator/pkg/conversation"
	"github.com/go-go-golems/akinator/pkg/settings"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Role int

const (
	RoleGuesser Role = iota
	RoleAnswerer
)

func (r Role) String() string {
	switch r {
	case RoleGuesser:
		return settings.RoleGuesser
	case RoleAnswerer:
		return settings.RoleAnswerer
	default:
		return "unknown"
	}
}

const (
	defaultAnswererSystem = `You are playing Akinator. You know the secret concept: "{{ .Concept }}".

Your job is to answer yes/no questions about this concept. Answer only with:
- "Yes" if the question is true about the concept
- "No" if the question is false about the concept
- "Sometimes" or "Partially" if it's not clearly yes or no
- "I don't know" only if you genuinely cannot determine the answer
- "DONE" if the guesser has guessed the concept

Be accurate and helpful in your responses. The other AI is trying to guess your concept.`

	defaultGuesserSystem = `You are playing Akinator as the guesser. Your goal is to figure out what concept the other person is thinking of by asking strategic yes/no questions.

Guidelines:
- Ask clear, specific yes/no questions
- Start broad and narrow down based on answers
- Use the conversation history to inform your next question
- When you're confident about the answer, make a guess by saying "Is it [your guess]?"
- Be strategic and efficient with your questions

Don't repeat questions you've already asked.`

	defaultGuesserUser = `Based on this conversation history, what is your next question?

{{ if .History -}}
{{ range $i, $e := .History }}{{ if $i }}
{{ end }}Q{{ add1 $i }}: {{ $e.Question }}
A{{ add1 $i }}: {{ $e.Answer }}{{ end }}
{{- else -}}
This is the first question.
{{- end }}

Ask your next question:`
)

// PromptTemplates are the text/template sources of the role prompts. They
// are rendered with the sprig function map.
type PromptTemplates struct {
	AnswererSystem string `yaml:"answerer_system"`
	GuesserSystem  string `yaml:"guesser_system"`
	GuesserUser    string `yaml:"guesser_user"`
}

func DefaultPromptTemplates() PromptTemplates {
	return PromptTemplates{
		AnswererSystem: defaultAnswererSystem,
		GuesserSystem:  defaultGuesserSystem,
		GuesserUser:    defaultGuesserUser,
	}
}

// LoadPromptTemplates reads YAML overrides. Missing or empty keys keep the
// default template.
func LoadPromptTemplates(r io.Reader) (PromptTemplates, error) {
	var overrides PromptTemplates
	if err := yaml.NewDecoder(r).Decode(&overrides); err != nil && !errors.Is(err, io.EOF) {
		return PromptTemplates{}, errors.Wrap(err, "could not decode prompt templates")
	}

	ret := DefaultPromptTemplates()
	if strings.TrimSpace(overrides.AnswererSystem) != "" {
		ret.AnswererSystem = overrides.AnswererSystem
	}
	if strings.TrimSpace(overrides.GuesserSystem) != "" {
		ret.GuesserSystem = overrides.GuesserSystem
	}
	if strings.TrimSpace(overrides.GuesserUser) != "" {
		ret.GuesserUser = overrides.GuesserUser
	}
	return ret, nil
}

type promptData struct {
	Concept  string
	Question string
	History  []Exchange
}

// PromptBuilder renders the messages sent to each role. It has no side
// effects and is safe for concurrent use.
type PromptBuilder struct {
	templates      PromptTemplates
	answererSystem *template.Template
	guesserSystem  *template.Template
	guesserUser    *template.Template
}

func NewPromptBuilder(t PromptTemplates) (*PromptBuilder, error) {
	parse := func(name, text string) (*template.Template, error) {
		tmpl, err := template.New(name).
			Funcs(sprig.TxtFuncMap()).
			Option("missingkey=error").
			Parse(text)
		if err != nil {
			return nil, errors.Wrapf(err, "could not parse %s template", name)
		}
		return tmpl, nil
	}

	pb := &PromptBuilder{templates: t}
	var err error
	if pb.answererSystem, err = parse("answerer_system", t.AnswererSystem); err != nil {
		return nil, err
	}
	if pb.guesserSystem, err = parse("guesser_system", t.GuesserSystem); err != nil {
		return nil, err
	}
	if pb.guesserUser, err = parse("guesser_user", t.GuesserUser); err != nil {
		return nil, err
	}
	return pb, nil
}

// NewDefaultPromptBuilder panics if the built-in templates do not parse.
func NewDefaultPromptBuilder() *PromptBuilder {
	pb, err := NewPromptBuilder(DefaultPromptTemplates())
	if err != nil {
		panic(err)
	}
	return pb
}

func (pb *PromptBuilder) Templates() PromptTemplates {
	return pb.templates
}

func render(t *template.Template, data promptData) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", errors.Wrapf(err, "could not render %s template", t.Name())
	}
	return sb.String(), nil
}

// BuildAnswererPrompt returns the system instruction fixing concept followed
// by the question. The answerer never sees the history.
func (pb *PromptBuilder) BuildAnswererPrompt(concept string, question string) (conversation.Conversation, error) {
	if concept == "" {
		return nil, errors.Wrap(ErrInvalidInput, "concept must not be empty")
	}
	if question == "" {
		return nil, errors.Wrap(ErrInvalidInput, "question must not be empty")
	}

	system, err := render(pb.answererSystem, promptData{Concept: concept, Question: question})
	if err != nil {
		return nil, err
	}
	return conversation.NewConversation(
		conversation.NewChatMessage(conversation.RoleSystem, system),
		conversation.NewChatMessage(conversation.RoleUser, "Question: "+question),
	), nil
}

// BuildGuesserPrompt returns the guessing strategy followed by the rendered
// transcript.
func (pb *PromptBuilder) BuildGuesserPrompt(history History) (conversation.Conversation, error) {
	data := promptData{History: history.Exchanges()}
	system, err := render(pb.guesserSystem, data)
	if err != nil {
		return nil, err
	}
	user, err := render(pb.guesserUser, data)
	if err != nil {
		return nil, err
	}
	return conversation.NewConversation(
		conversation.NewChatMessage(conversation.RoleSystem, system),
		conversation.NewChatMessage(conversation.RoleUser, user),
	), nil
}

func (pb *PromptBuilder) Build(role Role, concept string, history History, question string) (conversation.Conversation, error) {
	switch role {
	case RoleAnswerer:
		return pb.BuildAnswererPrompt(concept, question)
	case RoleGuesser:
		return pb.BuildGuesserPrompt(history)
	default:
		return nil, errors.Wrapf(ErrInvalidInput, "unknown role %d", int(role))
	}
}
