package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-go-golems/akinator/pkg/events"
	"github.com/go-go-golems/akinator/pkg/game"
	"github.com/go-go-golems/akinator/pkg/inference"
	"github.com/go-go-golems/akinator/pkg/inference/factory"
	"github.com/go-go-golems/akinator/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcept = "Einstein"
	eventTopic     = "akinator"
)

func addInferenceFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(normalizeFlagName)
	fs.String("api-type", string(settings.ApiTypeOpenAI), "Inference backend (openai, ollama, mock)")
	fs.String("model", settings.DefaultModel, "Model used by both roles")
	fs.String("guesser-model", "", "Model override for the guesser")
	fs.String("answerer-model", "", "Model override for the answerer")
	fs.String("base-url", settings.DefaultOpenAIBaseURL, "OpenAI compatible API base URL")
	fs.String("api-key", "", "API key (default: $OPENAI_API_KEY)")
	fs.Int("max-response-tokens", 0, "Maximum tokens per response (0: server default)")
	fs.Duration("inference-timeout", 0, "Timeout of a single inference call (0: none)")
	fs.Int("max-turns", settings.DefaultMaxTurns, "Maximum number of questions")
	fs.Float64("guesser-temperature", settings.DefaultGuesserTemperature, "Sampling temperature of the guesser")
	fs.Float64("answerer-temperature", settings.DefaultAnswererTemperature, "Sampling temperature of the answerer")
	fs.String("prompts", "", "YAML file overriding the prompt templates")
}

func loadSettings(v *viper.Viper, fs *pflag.FlagSet) (*settings.Settings, error) {
	bindFlags(v, fs)
	s := settings.NewSettingsFromViper(v)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	log.Debug().Fields(s.GetMetadata()).Msg("Loaded settings")
	return s, nil
}

func loadPromptBuilder(path string) (*game.PromptBuilder, error) {
	if path == "" {
		return game.NewDefaultPromptBuilder(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open prompts file")
	}
	defer f.Close()

	templates, err := game.LoadPromptTemplates(f)
	if err != nil {
		return nil, err
	}
	return game.NewPromptBuilder(templates)
}

// newTurnEngine creates one engine per role, each publishing its inference
// events to options' sinks.
func newTurnEngine(s *settings.Settings, concept string, pb *game.PromptBuilder, options ...inference.Option) (*game.TurnEngine, error) {
	f := factory.NewStandardEngineFactory(concept)
	guesser, err := f.CreateEngine(s.Inference, settings.RoleGuesser, options...)
	if err != nil {
		return nil, err
	}
	answerer, err := f.CreateEngine(s.Inference, settings.RoleAnswerer, options...)
	if err != nil {
		return nil, err
	}
	return game.NewTurnEngine(guesser, answerer,
		game.WithPromptBuilder(pb),
		game.WithTemperatures(s.Game.GuesserTemperature, s.Game.AnswererTemperature),
		game.WithStreaming(s.Game.Stream),
	), nil
}

func newPlayCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play [concept]",
		Short: "Play one game, narrating every question and answer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			concept := defaultConcept
			if len(args) > 0 {
				concept = args[0]
			}
			output, _ := cmd.Flags().GetString("output")
			transcript, _ := cmd.Flags().GetString("transcript")
			if err := checkOutputFormat(output); err != nil {
				return err
			}

			s, err := loadSettings(v, cmd.Flags())
			if err != nil {
				return err
			}
			pb, err := loadPromptBuilder(s.Game.PromptsFile)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			w := cmd.OutOrStdout()
			var outcome *game.Outcome
			if output == "text" {
				outcome, err = playNarrated(ctx, w, s, concept, pb)
			} else {
				outcome, err = playQuiet(ctx, s, concept, pb)
			}
			if err != nil {
				return err
			}

			if transcript != "" {
				if err := writeTranscript(ctx, transcript, outcome); err != nil {
					return err
				}
			}
			return printOutcome(ctx, w, output, outcome)
		},
	}

	addInferenceFlags(cmd.Flags())
	cmd.Flags().Bool("stream", false, "Stream questions and answers as they are generated")
	cmd.Flags().String("output", "text", "Output format (text, yaml, json)")
	cmd.Flags().String("transcript", "", "Write the game outcome as YAML to this file")

	return cmd
}

func playQuiet(ctx context.Context, s *settings.Settings, concept string, pb *game.PromptBuilder) (*game.Outcome, error) {
	turns, err := newTurnEngine(s, concept, pb)
	if err != nil {
		return nil, err
	}
	session := game.NewSession(concept, turns,
		game.WithMaxTurns(s.Game.MaxTurns),
		game.WithObserver(game.NewLogObserver(log.Logger)),
	)
	return session.Run(ctx)
}

// playNarrated runs the game next to an event router whose printer handler
// renders the narration on w.
func playNarrated(ctx context.Context, w io.Writer, s *settings.Settings, concept string, pb *game.PromptBuilder) (*game.Outcome, error) {
	fmt.Fprintf(w, "Using concept: %s\n", concept)
	fmt.Fprintf(w, "Streaming enabled: %v\n", s.Game.Stream)

	router, err := events.NewEventRouter(events.WithVerbose(zerolog.GlobalLevel() <= zerolog.TraceLevel))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create event router")
	}
	defer func() {
		_ = router.Close()
	}()

	sink := events.NewWatermillSink(router.Publisher, eventTopic)
	router.AddHandler("narration", eventTopic, events.NarrationPrinterFunc(w))

	turns, err := newTurnEngine(s, concept, pb, inference.WithSink(sink))
	if err != nil {
		return nil, err
	}
	session := game.NewSession(concept, turns,
		game.WithMaxTurns(s.Game.MaxTurns),
		game.WithEventSinks(sink),
		game.WithObserver(game.NewLogObserver(log.Logger)),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var outcome *game.Outcome
	eg := errgroup.Group{}
	eg.Go(func() error {
		defer cancel()
		return router.Run(ctx)
	})
	eg.Go(func() error {
		defer cancel()
		<-router.Running()
		var err error
		outcome, err = session.Run(ctx)
		return err
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return outcome, nil
}

func printSummary(w io.Writer, outcome *game.Outcome) {
	rule := strings.Repeat("=", 50)
	success := "❌ No"
	if outcome.Success {
		success = "✅ Yes"
	}
	fmt.Fprintf(w, "\n%s\n📊 GAME SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(w, "Concept: %s\n", outcome.Concept)
	fmt.Fprintf(w, "Success: %s\n", success)
	fmt.Fprintf(w, "Questions asked: %d\n", outcome.QuestionsAsked)
}
