package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newPromptsCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Print the effective prompt templates as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(v, cmd.Flags())
			pb, err := loadPromptBuilder(v.GetString("prompts"))
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), pb.Templates())
		},
	}
	cmd.Flags().SetNormalizeFunc(normalizeFlagName)
	cmd.Flags().String("prompts", "", "YAML file overriding the prompt templates")
	return cmd
}
