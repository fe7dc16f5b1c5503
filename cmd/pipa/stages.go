package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pboueke/pipa/pkg/stages"
)

func newStagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List the built-in stage types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			headers := []string{"Type", "Multi", "Aware", "Description"}
			rows := make([][]string, 0, len(stages.Builtins))
			for _, b := range stages.Builtins {
				caps := b.Factory().Capabilities()
				rows = append(rows, []string{
					b.Type,
					yesNo(caps.AllowsMultipleInstances),
					yesNo(caps.RequiresCancellationAwareness),
					b.Description,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, nil))
			return nil
		},
	}
}
