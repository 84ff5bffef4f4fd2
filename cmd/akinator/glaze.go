package main

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	glazed_settings "github.com/go-go-golems/glazed/pkg/settings"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// newGlazeCobraCommand turns c into a cobra command whose rows are rendered
// on the command's output writer with the glazed output flags. Rows emitted
// before a failure are still rendered, and the failure is returned to cobra.
func newGlazeCobraCommand(c cmds.GlazeCommand) (*cobra.Command, error) {
	description := c.Description()
	cmd := cli.NewCobraCommandFromCommandDescription(description)

	parser, err := cli.NewCobraParserFromLayers(description.Layers)
	if err != nil {
		return nil, err
	}
	if err := parser.AddToCobraCommand(cmd); err != nil {
		return nil, err
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		parsedLayers, err := parser.Parse(cmd, args)
		if err != nil {
			return err
		}

		glazedLayer, ok := parsedLayers.Get(glazed_settings.GlazedSlug)
		if !ok {
			return errors.New("glazed layer not found")
		}
		gp, err := glazed_settings.SetupTableProcessor(glazedLayer)
		if err != nil {
			return err
		}
		if _, err := glazed_settings.SetupProcessorOutput(gp, glazedLayer, cmd.OutOrStdout()); err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		runErr := c.RunIntoGlazeProcessor(ctx, parsedLayers, gp)

		// Close runs the table middlewares, which write the output
		if err := gp.Close(ctx); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	}

	return cmd, nil
}
