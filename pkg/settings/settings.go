package settings

import (
	"io"
	"os"
	"time"

	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type ApiType string

const (
	ApiTypeOpenAI ApiType = "openai"
	ApiTypeOllama ApiType = "ollama"
	// ApiTypeMock plays a canned game without any network access.
	ApiTypeMock ApiType = "mock"
)

// Names of the two players, shared by engines, events and logs.
const (
	RoleGuesser  = "guesser"
	RoleAnswerer = "answerer"
)

const (
	DefaultModel               = "gpt-4o-mini"
	DefaultOpenAIBaseURL       = "https://api.openai.com/v1"
	DefaultMaxTurns            = 100
	DefaultGuesserTemperature  = 0.8
	DefaultAnswererTemperature = 0.3
)

var ErrMissingAPIKey = errors.New("please set your OPENAI_API_KEY environment variable")

type InferenceSettings struct {
	ApiType           ApiType       `yaml:"api_type"`
	Model             string        `yaml:"model"`
	GuesserModel      string        `yaml:"guesser_model,omitempty"`
	AnswererModel     string        `yaml:"answerer_model,omitempty"`
	BaseURL           string        `yaml:"base_url,omitempty"`
	APIKey            string        `yaml:"api_key,omitempty"`
	MaxResponseTokens int           `yaml:"max_response_tokens,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
}

type GameSettings struct {
	MaxTurns            int     `yaml:"max_turns"`
	Stream              bool    `yaml:"stream"`
	GuesserTemperature  float64 `yaml:"guesser_temperature"`
	AnswererTemperature float64 `yaml:"answerer_temperature"`
	PromptsFile         string  `yaml:"prompts_file,omitempty"`
}

type Settings struct {
	Inference *InferenceSettings `yaml:"inference"`
	Game      *GameSettings      `yaml:"game"`
}

func NewSettings() *Settings {
	return &Settings{
		Inference: &InferenceSettings{
			ApiType: ApiTypeOpenAI,
			Model:   DefaultModel,
			BaseURL: DefaultOpenAIBaseURL,
		},
		Game: &GameSettings{
			MaxTurns:            DefaultMaxTurns,
			GuesserTemperature:  DefaultGuesserTemperature,
			AnswererTemperature: DefaultAnswererTemperature,
		},
	}
}

// NewSettingsFromYAML starts from the defaults and overrides them with the
// values present in the YAML document.
func NewSettingsFromYAML(r io.Reader) (*Settings, error) {
	s := NewSettings()
	if err := yaml.NewDecoder(r).Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "could not decode settings")
	}
	if s.Inference == nil {
		s.Inference = NewSettings().Inference
	}
	if s.Game == nil {
		s.Game = NewSettings().Game
	}
	return s, nil
}

// NewSettingsFromViper reads the flag-named keys bound by the CLI. Keys that
// were never set keep their defaults.
func NewSettingsFromViper(v *viper.Viper) *Settings {
	s := NewSettings()

	if v.IsSet("api-type") {
		s.Inference.ApiType = ApiType(v.GetString("api-type"))
	}
	if v.IsSet("model") {
		s.Inference.Model = v.GetString("model")
	}
	s.Inference.GuesserModel = v.GetString("guesser-model")
	s.Inference.AnswererModel = v.GetString("answerer-model")
	if v.IsSet("base-url") {
		s.Inference.BaseURL = v.GetString("base-url")
	}
	s.Inference.APIKey = v.GetString("api-key")
	if s.Inference.APIKey == "" {
		s.Inference.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	s.Inference.MaxResponseTokens = v.GetInt("max-response-tokens")
	s.Inference.Timeout = v.GetDuration("inference-timeout")

	if v.IsSet("max-turns") {
		s.Game.MaxTurns = v.GetInt("max-turns")
	}
	s.Game.Stream = v.GetBool("stream")
	if v.IsSet("guesser-temperature") {
		s.Game.GuesserTemperature = v.GetFloat64("guesser-temperature")
	}
	if v.IsSet("answerer-temperature") {
		s.Game.AnswererTemperature = v.GetFloat64("answerer-temperature")
	}
	s.Game.PromptsFile = v.GetString("prompts")

	return s
}

func (s *Settings) Validate() error {
	if s.Inference == nil || s.Game == nil {
		return errors.New("incomplete settings")
	}
	switch s.Inference.ApiType {
	case ApiTypeOpenAI:
		if s.Inference.APIKey == "" {
			return ErrMissingAPIKey
		}
	case ApiTypeOllama, ApiTypeMock:
	default:
		return errors.Errorf("unknown api type %q", s.Inference.ApiType)
	}
	if s.Inference.Timeout < 0 {
		return errors.Errorf("invalid inference timeout %s", s.Inference.Timeout)
	}
	if s.Game.MaxTurns < 1 {
		return errors.Errorf("max turns must be positive, got %d", s.Game.MaxTurns)
	}
	for name, t := range map[string]float64{
		RoleGuesser:  s.Game.GuesserTemperature,
		RoleAnswerer: s.Game.AnswererTemperature,
	} {
		if t < 0 || t > 2 {
			return errors.Errorf("%s temperature must be between 0 and 2, got %v", name, t)
		}
	}
	return nil
}

// ModelFor returns the per-role model override, or the shared model.
func (s *InferenceSettings) ModelFor(role string) string {
	switch role {
	case RoleGuesser:
		if s.GuesserModel != "" {
			return s.GuesserModel
		}
	case RoleAnswerer:
		if s.AnswererModel != "" {
			return s.AnswererModel
		}
	}
	return s.Model
}

// GetMetadata returns the settings that are useful in logs, without secrets.
func (s *Settings) GetMetadata() map[string]interface{} {
	metadata := map[string]interface{}{}
	if s.Inference != nil {
		metadata["api-type"] = string(s.Inference.ApiType)
		metadata["model"] = s.Inference.Model
		if s.Inference.BaseURL != "" {
			metadata["base-url"] = s.Inference.BaseURL
		}
		if s.Inference.Timeout > 0 {
			metadata["inference-timeout"] = s.Inference.Timeout.String()
		}
	}
	if s.Game != nil {
		metadata["max-turns"] = s.Game.MaxTurns
		metadata["stream"] = s.Game.Stream
		metadata["guesser-temperature"] = s.Game.GuesserTemperature
		metadata["answerer-temperature"] = s.Game.AnswererTemperature
	}
	return metadata
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}
