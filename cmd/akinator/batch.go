package main

import (
	"context"
	"io"
	"os"

	"github.com/go-go-golems/akinator/pkg/game"
	"github.com/go-go-golems/akinator/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	glazed_settings "github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// readConcepts accepts either a plain YAML list or a document with a
// "concepts" list.
func readConcepts(r io.Reader) ([]string, error) {
	var node yaml.Node
	if err := yaml.NewDecoder(r).Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("concepts file is empty")
		}
		return nil, errors.Wrap(err, "could not parse concepts file")
	}

	var concepts []string
	doc := &node
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&concepts); err != nil {
			return nil, errors.Wrap(err, "could not decode concepts")
		}
	default:
		var f struct {
			Concepts []string `yaml:"concepts"`
		}
		if err := doc.Decode(&f); err != nil {
			return nil, errors.Wrap(err, "could not decode concepts")
		}
		concepts = f.Concepts
	}

	if len(concepts) == 0 {
		return nil, errors.New("no concepts in concepts file")
	}
	return concepts, nil
}

// gameLoader returns the validated settings and prompt builder shared by all
// games of a batch.
type gameLoader func() (*settings.Settings, *game.PromptBuilder, error)

type BatchCommand struct {
	*cmds.CommandDescription
	load gameLoader
}

var _ cmds.GlazeCommand = (*BatchCommand)(nil)

type BatchSettings struct {
	ConceptsFile string `glazed.parameter:"concepts-file"`
	Concurrency  int    `glazed.parameter:"concurrency"`
}

func NewBatchCommand(load gameLoader) (*BatchCommand, error) {
	glazedParameterLayer, err := glazed_settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, err
	}

	return &BatchCommand{
		CommandDescription: cmds.NewCommandDescription(
			"batch",
			cmds.WithShort("Play one quiet game per concept and print one row per game"),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"concurrency",
					parameters.ParameterTypeInteger,
					parameters.WithHelp("Number of games played in parallel"),
					parameters.WithDefault(2),
				),
			),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"concepts-file",
					parameters.ParameterTypeString,
					parameters.WithHelp("YAML file listing the concepts"),
					parameters.WithRequired(true),
				),
			),
			cmds.WithLayersList(glazedParameterLayer),
		),
		load: load,
	}, nil
}

// batchResult is the outcome of one game of a batch. Exactly one of Outcome
// and Err is set.
type batchResult struct {
	Concept string
	Outcome *game.Outcome
	Err     error
}

func (r batchResult) row() types.Row {
	success := false
	questions := 0
	errorString := ""
	if r.Outcome != nil {
		success = r.Outcome.Success
		questions = r.Outcome.QuestionsAsked
	}
	if r.Err != nil {
		errorString = r.Err.Error()
		var sessionErr *game.SessionError
		if errors.As(r.Err, &sessionErr) {
			questions = sessionErr.History.Len()
		}
	}
	return types.NewRow(
		types.MRP("concept", r.Concept),
		types.MRP("success", success),
		types.MRP("questions_asked", questions),
		types.MRP("error", errorString),
	)
}

func (c *BatchCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	bs := &BatchSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, bs); err != nil {
		return err
	}
	if bs.Concurrency < 1 {
		return errors.Errorf("concurrency must be positive, got %d", bs.Concurrency)
	}

	f, err := os.Open(bs.ConceptsFile)
	if err != nil {
		return errors.Wrap(err, "could not open concepts file")
	}
	concepts, err := readConcepts(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	s, pb, err := c.load()
	if err != nil {
		return err
	}

	results := make([]batchResult, len(concepts))
	eg := errgroup.Group{}
	eg.SetLimit(bs.Concurrency)
	for i, concept := range concepts {
		i, concept := i, concept
		eg.Go(func() error {
			// failures are reported per concept, not to the group
			results[i] = batchResult{Concept: concept}
			outcome, err := playQuiet(ctx, s.Clone(), concept, pb)
			if err != nil {
				log.Warn().Err(err).Str("concept", concept).Msg("batch game failed")
				results[i].Err = err
				return nil
			}
			results[i].Outcome = outcome
			return nil
		})
	}
	_ = eg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
		if err := gp.AddRow(ctx, r.row()); err != nil {
			return err
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d games failed", failed, len(results))
	}
	return nil
}

func newBatchCommand(v *viper.Viper) (*cobra.Command, error) {
	// the glazed output layer owns --stream, so batch games never stream
	inferenceFlags := pflag.NewFlagSet("inference", pflag.ContinueOnError)
	addInferenceFlags(inferenceFlags)

	batchCmd, err := NewBatchCommand(func() (*settings.Settings, *game.PromptBuilder, error) {
		s, err := loadSettings(v, inferenceFlags)
		if err != nil {
			return nil, nil, err
		}
		pb, err := loadPromptBuilder(s.Game.PromptsFile)
		if err != nil {
			return nil, nil, err
		}
		return s, pb, nil
	})
	if err != nil {
		return nil, err
	}

	cmd, err := newGlazeCobraCommand(batchCmd)
	if err != nil {
		return nil, err
	}
	cmd.Flags().SetNormalizeFunc(normalizeFlagName)
	cmd.Flags().AddFlagSet(inferenceFlags)
	return cmd, nil
}
