package main

import (
	"github.com/spf13/cobra"
)

// options holds flags shared by every command.
type options struct {
	envFile string
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "pipa",
		Short:         "Run multi-stage pipelines declared in TOML topologies",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file with PIPA_* settings (default .env when present)")

	rootCmd.AddCommand(newRunCommand(opts))
	rootCmd.AddCommand(newValidateCommand(opts))
	rootCmd.AddCommand(newStagesCommand())
	rootCmd.AddCommand(newHistoryCommand(opts))
	rootCmd.AddCommand(newAbortCommand(opts))

	return rootCmd
}
