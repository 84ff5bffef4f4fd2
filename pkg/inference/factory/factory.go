package factory

import (
	"strings"

	"github.com/go-go-golems/akinator/pkg/inference"
	"github.com/go-go-golems/akinator/pkg/inference/mock"
	"github.com/go-go-golems/akinator/pkg/inference/ollama"
	"github.com/go-go-golems/akinator/pkg/inference/openai"
	"github.com/go-go-golems/akinator/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EngineFactory creates the inference engine used by one game role.
type EngineFactory interface {
	CreateEngine(s *settings.InferenceSettings, role string, options ...inference.Option) (inference.Engine, error)
	SupportedProviders() []string
	DefaultProvider() string
}

// StandardEngineFactory builds openai, ollama and mock engines, wrapped in
// logging and timeout middleware.
type StandardEngineFactory struct {
	// DemoConcept is the concept the mock guesser ends up guessing.
	DemoConcept string
}

var _ EngineFactory = (*StandardEngineFactory)(nil)

func NewStandardEngineFactory(demoConcept string) *StandardEngineFactory {
	return &StandardEngineFactory{DemoConcept: demoConcept}
}

func (f *StandardEngineFactory) CreateEngine(s *settings.InferenceSettings, role string, options ...inference.Option) (inference.Engine, error) {
	if s == nil {
		return nil, errors.New("settings cannot be nil")
	}
	if role != settings.RoleGuesser && role != settings.RoleAnswerer {
		return nil, errors.Errorf("unknown role %q", role)
	}

	provider := f.DefaultProvider()
	if s.ApiType != "" {
		provider = strings.ToLower(string(s.ApiType))
	}

	// every role gets its own copy so per-role models do not leak
	roleSettings := *s
	roleSettings.Model = s.ModelFor(role)

	var (
		engine inference.Engine
		err    error
	)
	switch settings.ApiType(provider) {
	case settings.ApiTypeOpenAI:
		engine, err = openai.NewEngine(&roleSettings, options...)
	case settings.ApiTypeOllama:
		engine, err = ollama.NewEngine(&roleSettings, options...)
	case settings.ApiTypeMock:
		if role == settings.RoleGuesser {
			engine, err = mock.NewDemoGuesser(f.DemoConcept, options...)
		} else {
			engine, err = mock.NewDemoAnswerer(options...)
		}
	default:
		return nil, errors.Errorf("unsupported provider %s. Supported providers: %s",
			provider, strings.Join(f.SupportedProviders(), ", "))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not create %s engine for %s", provider, role)
	}

	logger := log.Logger.With().
		Str("provider", provider).
		Str("role", role).
		Str("model", roleSettings.Model).
		Logger()
	logger.Debug().Msg("created inference engine")

	return inference.NewEngineWithMiddleware(engine,
		inference.NewLoggingMiddleware(logger),
		inference.NewTimeoutMiddleware(s.Timeout),
	), nil
}

func (f *StandardEngineFactory) SupportedProviders() []string {
	return []string{
		string(settings.ApiTypeOpenAI),
		string(settings.ApiTypeOllama),
		string(settings.ApiTypeMock),
	}
}

func (f *StandardEngineFactory) DefaultProvider() string {
	return string(settings.ApiTypeOpenAI)
}
