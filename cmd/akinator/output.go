package main

import (
	"context"
	"io"
	"os"

	"github.com/go-go-golems/akinator/pkg/game"
	"github.com/go-go-golems/glazed/pkg/formatters"
	json_formatter "github.com/go-go-golems/glazed/pkg/formatters/json"
	yaml_formatter "github.com/go-go-golems/glazed/pkg/formatters/yaml"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/middlewares/table"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// outcomeFormatters render one outcome row as a single document.
var outcomeFormatters = map[string]func() formatters.TableOutputFormatter{
	"yaml": func() formatters.TableOutputFormatter {
		return yaml_formatter.NewOutputFormatter(yaml_formatter.WithOutputIndividualRows(true))
	},
	"json": func() formatters.TableOutputFormatter {
		return json_formatter.NewOutputFormatter(json_formatter.WithOutputIndividualRows(true))
	},
}

func checkOutputFormat(format string) error {
	if format == "text" {
		return nil
	}
	if _, ok := outcomeFormatters[format]; !ok {
		return errors.Errorf("unknown output format %q (text, yaml, json)", format)
	}
	return nil
}

func outcomeRow(outcome *game.Outcome) types.Row {
	return types.NewRow(
		types.MRP("success", outcome.Success),
		types.MRP("concept", outcome.Concept),
		types.MRP("questions_asked", outcome.QuestionsAsked),
		types.MRP("conversation", outcome.Conversation),
		types.MRP("session_id", outcome.SessionID),
		types.MRP("max_turns", outcome.MaxTurns),
	)
}

// writeOutcome renders outcome through a glazed processor with the yaml or
// json formatter.
func writeOutcome(ctx context.Context, w io.Writer, format string, outcome *game.Outcome) error {
	newFormatter, ok := outcomeFormatters[format]
	if !ok {
		return errors.Errorf("unknown output format %q (yaml, json)", format)
	}
	gp := middlewares.NewTableProcessor(
		middlewares.WithTableMiddleware(table.NewOutputMiddleware(newFormatter(), w)),
	)
	if err := gp.AddRow(ctx, outcomeRow(outcome)); err != nil {
		return err
	}
	return gp.Close(ctx)
}

func printOutcome(ctx context.Context, w io.Writer, format string, outcome *game.Outcome) error {
	if format == "text" {
		printSummary(w, outcome)
		return nil
	}
	return writeOutcome(ctx, w, format, outcome)
}

func writeTranscript(ctx context.Context, path string, outcome *game.Outcome) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "could not create transcript")
	}
	defer f.Close()
	return errors.Wrap(writeOutcome(ctx, f, "yaml", outcome), "could not write transcript")
}

// writeYAML writes v as a plain YAML document, used for files meant to be
// read back as configuration.
func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
