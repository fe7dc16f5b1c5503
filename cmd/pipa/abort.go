package main

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/pboueke/pipa/internal/config"
	gferrors "github.com/pboueke/pipa/pkg/common/errors"
	"github.com/pboueke/pipa/pkg/abort"
)

const defaultAbortTTL = 10 * time.Minute

func newAbortCommand(opts *options) *cobra.Command {
	var (
		ttl   time.Duration
		clearKey bool
	)

	cmd := &cobra.Command{
		Use:   "abort",
		Short: "Abort runs watching the Redis abort key",
		Long: `Abort sets the Redis abort key so every run started with --redis-addr
stops safely at its next monitoring tick. The key expires after --ttl.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cfg.RedisAddr == "" {
				return gferrors.NewValidationError("abort", "redis_addr", "", "not set").
					WithHint("pass --redis-addr or set PIPA_REDIS_ADDR")
			}

			client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			defer client.Close()
			src := abort.NewRedis(client, cfg.AbortKey)

			out := cmd.OutOrStdout()
			if clearKey {
				if err := src.Clear(cmd.Context()); err != nil {
					return fmt.Errorf("clear %s: %w", src.Key(), err)
				}
				fmt.Fprintf(out, "cleared %s\n", src.Key())
				return nil
			}

			if err := src.Request(cmd.Context(), ttl); err != nil {
				return fmt.Errorf("set %s: %w", src.Key(), err)
			}
			fmt.Fprintf(out, "abort requested on %s\n", src.Key())
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", defaultAbortTTL, "expire the abort request after this long (0 keeps it)")
	cmd.Flags().BoolVar(&clearKey, "clear", false, "delete the abort key instead of setting it")
	config.RegisterFlags(cmd.Flags(), "redis_addr", "abort_key", "log.level", "log.format", "log.no_color")
	return cmd
}
