package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pboueke/pipa/internal/config"
	gferrors "github.com/pboueke/pipa/pkg/common/errors"
	"github.com/pboueke/pipa/pkg/stage"
	"github.com/pboueke/pipa/pkg/scheduling/scheduler"
)

const previewRuns = 3

func newValidateCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <topology.toml>",
		Short: "Check a topology and initialize its stages without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadTopology(cmd, opts, args[0])
			if err != nil {
				return err
			}

			headers := []string{"Stage", "Type", "Instances", "Input", "Outputs", "Aware"}
			rows := make([][]string, 0, len(l.topo.Stages))
			required := 0
			for _, s := range l.topo.Stages {
				impl, err := l.registry.New(s.Type)
				if err != nil {
					return fmt.Errorf("stage %q: %w", s.Name, err)
				}
				if err := impl.Initialize(stage.Settings(s.Settings)); err != nil {
					return &gferrors.StageInitError{Stage: s.Name, Type: s.Type, Cause: err}
				}

				caps := impl.Capabilities()
				instances := s.Instances
				count := strconv.Itoa(instances)
				if !caps.AllowsMultipleInstances && instances > 1 {
					instances = 1
					count = fmt.Sprintf("1 (of %d)", s.Instances)
				}
				if caps.RequiresCancellationAwareness {
					required += instances
				}

				input := s.Input
				if input == "" {
					input = "-"
				}
				outputs := strings.Join(s.Outputs, ", ")
				if outputs == "" {
					outputs = "-"
				}
				rows = append(rows, []string{s.Name, s.Type, count, input, outputs, yesNo(caps.RequiresCancellationAwareness)})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "topology %s is valid\n", l.topo.Name)
			fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
			fmt.Fprintf(out, "required stops: %d\n", required)
			if required == 0 {
				if l.cfg.IdleTimeout > 0 {
					fmt.Fprintf(out, "no cancellation-aware stage, the run ends after %s idle\n", l.cfg.IdleTimeout)
				} else {
					fmt.Fprintln(out, "warning: nothing can end this run on its own")
				}
			}

			if l.cfg.Schedule != "" {
				next, err := scheduler.NextRuns(l.cfg.Schedule, time.Now(), previewRuns)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "schedule %q, next runs:\n", l.cfg.Schedule)
				for _, t := range next {
					fmt.Fprintf(out, "  %s\n", t.Format(time.RFC3339))
				}
			}
			return nil
		},
	}
	config.RegisterFlags(cmd.Flags(), "default_capacity", "idle_timeout", "schedule", "log.level", "log.format", "log.no_color")
	return cmd
}
