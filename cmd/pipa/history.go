package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pboueke/pipa/internal/config"
	gferrors "github.com/pboueke/pipa/pkg/common/errors"
	"github.com/pboueke/pipa/pkg/history"
)

const defaultHistoryLimit = 20

func newHistoryCommand(opts *options) *cobra.Command {
	var (
		limit    int
		topology string
		prune    int
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `History lists the runs recorded in the SQLite database set with --history
or PIPA_HISTORY_PATH, newest first. Given a run ID it prints that run's
buffers and faulted instances.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cfg.HistoryPath == "" {
				return gferrors.NewValidationError("history", "history_path", "", "not set").
					WithHint("pass --history or set PIPA_HISTORY_PATH")
			}

			store, err := history.Open(cfg.HistoryPath, &logger)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if prune > 0 {
				n, err := store.Prune(ctx, prune)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "pruned %d runs\n", n)
				return nil
			}

			if len(args) == 1 {
				run, err := store.Get(ctx, args[0])
				if errors.Is(err, history.ErrNotFound) {
					return fmt.Errorf("run %s: %w", args[0], err)
				}
				if err != nil {
					return err
				}
				printRun(out, run)
				return nil
			}

			runs, err := store.List(ctx, topology, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs recorded")
				return nil
			}
			headers := []string{"Run", "Topology", "Started", "Duration", "Cause", "Stops", "Faulted"}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.RunID,
					r.Topology,
					r.Started.Local().Format(time.DateTime),
					r.Duration.Round(time.Millisecond).String(),
					string(r.Cause),
					fmt.Sprintf("%d/%d", r.Received, r.Required),
					strconv.Itoa(r.Faulted),
				})
			}
			fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{
				alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight,
			}))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "maximum number of runs to list")
	cmd.Flags().StringVar(&topology, "topology", "", "only list runs of this topology")
	cmd.Flags().IntVar(&prune, "prune", 0, "delete all but the newest N runs")
	config.RegisterFlags(cmd.Flags(), "history_path", "log.level", "log.format", "log.no_color")
	return cmd
}

func printRun(out io.Writer, r *history.Run) {
	fmt.Fprintf(out, "run:      %s\n", r.RunID)
	fmt.Fprintf(out, "topology: %s\n", r.Topology)
	fmt.Fprintf(out, "started:  %s\n", r.Started.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "duration: %s\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "cause:    %s (%d/%d stops)\n", r.Cause, r.Received, r.Required)
	fmt.Fprintf(out, "instances: %d, faulted: %d\n", r.Instances, r.Faulted)

	if len(r.Buffers) > 0 {
		rows := make([][]string, 0, len(r.Buffers))
		for _, b := range r.Buffers {
			rows = append(rows, []string{
				b.Name,
				strconv.Itoa(b.Capacity),
				fmt.Sprintf("%.1f%%", b.AverageUtilization*100),
				strconv.FormatInt(b.Puts, 10),
				strconv.FormatInt(b.Takes, 10),
				strconv.Itoa(b.Remaining),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Buffer", "Capacity", "Avg Usage", "Puts", "Takes", "Remaining"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
		))
	}

	for _, f := range r.Faults {
		fmt.Fprintf(out, "fault %s#%d: %s\n", f.Stage, f.Instance, f.Error)
	}
}
