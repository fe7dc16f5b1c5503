package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/pboueke/pipa/internal/config"
	"github.com/pboueke/pipa/internal/logging"
	"github.com/pboueke/pipa/pkg/abort"
	"github.com/pboueke/pipa/pkg/history"
	"github.com/pboueke/pipa/pkg/metrics"
	"github.com/pboueke/pipa/pkg/monitor"
	"github.com/pboueke/pipa/pkg/scheduling/pipeline"
	"github.com/pboueke/pipa/pkg/scheduling/scheduler"
)

const shutdownTimeout = 5 * time.Second

func newRunCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <topology.toml>",
		Short: "Run a pipeline topology",
		Long: `Run builds the pipeline described by a TOML topology and runs it until
enough cancellation-aware stages request a stop, the buffers stay idle past
the idle timeout, or the run is aborted.

With --schedule the topology runs repeatedly on a cron expression until
the process is interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTopology(ctx, cmd, opts, args[0])
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runTopology(ctx context.Context, cmd *cobra.Command, opts *options, path string) error {
	l, err := loadTopology(cmd, opts, path)
	if err != nil {
		return err
	}

	lock := flock.New(lockPath(l.path))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("topology %s is already running (lock %s)", l.path, lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	r, err := newRunner(cmd, l)
	if err != nil {
		return err
	}
	defer r.close()

	if l.cfg.Schedule == "" {
		_, err := r.runOnce(ctx, true)
		return err
	}
	return r.schedule(ctx)
}

// lockPath derives a stable lock file for a topology path so two runs of
// the same file cannot overlap.
func lockPath(topologyPath string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+topologyPath))
	return filepath.Join(os.TempDir(), "pipa-"+id.String()+".lock")
}

// runner owns the resources shared by every run of one topology.
type runner struct {
	l   *loaded
	out io.Writer
	in  io.Reader

	sink    monitor.Sink
	metrics *metrics.Registry
	server  *http.Server
	store   *history.Store
	redis   *redis.Client
}

func newRunner(cmd *cobra.Command, l *loaded) (*runner, error) {
	r := &runner{l: l, out: cmd.OutOrStdout(), in: cmd.InOrStdin()}

	table := monitor.Sink(monitor.NewTableSink(r.out, monitor.TableConfig{
		Skip:      l.cfg.MonitorSkip,
		AbortHint: monitor.DefaultAbortHint,
		Color:     !l.cfg.Log.NoColor && logging.IsTerminal(r.out),
	}))
	if !l.cfg.EnableMonitoring {
		table = summaryOnly{table}
	}
	sinks := []monitor.Sink{table, monitor.NewLogSink(l.logger)}

	if l.cfg.MetricsAddr != "" {
		if err := r.serveMetrics(l.cfg.MetricsAddr); err != nil {
			r.close()
			return nil, err
		}
		sinks = append(sinks, metrics.NewSink(r.metrics))
	}

	if l.cfg.HistoryPath != "" {
		store, err := history.Open(l.cfg.HistoryPath, &l.logger)
		if err != nil {
			r.close()
			return nil, err
		}
		r.store = store
		sinks = append(sinks, store)
	}

	if l.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: l.cfg.RedisAddr})
	}

	r.sink = monitor.NewMulti(sinks...)
	return r, nil
}

func (r *runner) serveMetrics(addr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r.metrics = metrics.Config{Enabled: true, Registry: reg}.Build()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := r.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.l.logger.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	r.l.logger.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")
	return nil
}

func (r *runner) close() {
	if r.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		_ = r.server.Shutdown(ctx)
		cancel()
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.l.logger.Warn().Err(err).Msg("close history")
		}
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
}

// runOnce builds a fresh pipeline and runs it. interactive enables the
// keypress abort and the unbounded-run prompt.
func (r *runner) runOnce(ctx context.Context, interactive bool) (*pipeline.Result, error) {
	cfg := r.l.cfg

	var sources []abort.Source
	tty := interactive && isTerminalReader(r.in)
	if tty {
		sources = append(sources, lazyKeypress(r.in))
	}
	if r.redis != nil {
		src := abort.NewRedis(r.redis, cfg.AbortKey)
		if err := src.Clear(ctx); err != nil {
			r.l.logger.Warn().Err(err).Str("key", cfg.AbortKey).Msg("clear abort key")
		}
		sources = append(sources, src)
	}

	pcfg := pipeline.Config{
		Name:            r.l.topo.Name,
		DefaultCapacity: cfg.DefaultCapacity,
		RetryDelay:      cfg.RetryDelay,
		MonitorInterval: cfg.MonitorInterval,
		IdleTimeout:     cfg.IdleTimeout,
		Sink:            r.sink,
		Abort:           abort.Any(sources...),
		Logger:          &r.l.logger,
		Metrics:         r.metrics,
	}
	if cfg.ConfirmUnbounded {
		pcfg.ConfirmUnbounded = func() bool {
			if !tty {
				r.l.logger.Warn().Msg("no terminal to confirm an unbounded run, declining")
				return false
			}
			return confirm(r.in, r.out, "Nothing can stop this run on its own. Start anyway? [Y/n] ")
		}
	}

	p, err := pipeline.New(r.l.topo, r.l.registry, pcfg)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx)
}

func (r *runner) schedule(ctx context.Context) error {
	name := r.l.topo.Name
	s := scheduler.NewWithConfig(scheduler.Config{
		Name:    name,
		Logger:  &r.l.logger,
		Metrics: r.metrics,
	})

	err := s.Schedule(name, r.l.cfg.Schedule, func(ctx context.Context) error {
		_, err := r.runOnce(ctx, false)
		return err
	})
	if err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		return err
	}

	if next, err := scheduler.NextRuns(r.l.cfg.Schedule, time.Now(), 1); err == nil && len(next) > 0 {
		r.l.logger.Info().Str("schedule", r.l.cfg.Schedule).Time("next", next[0]).Msg("waiting for schedule")
	}

	<-ctx.Done()
	<-s.Stop()
	return nil
}

// summaryOnly forwards the final summary and drops periodic snapshots.
type summaryOnly struct {
	monitor.Sink
}

func (summaryOnly) Observe(monitor.Snapshot) {}

// lazyKeypress starts reading keys on the first poll, after any prompt
// has consumed its answer from the same reader.
func lazyKeypress(in io.Reader) abort.Source {
	var (
		once sync.Once
		keys *abort.Keypress
	)
	return abort.Func(func() bool {
		once.Do(func() { keys = abort.WatchKeys(in) })
		return keys.Requested()
	})
}

// confirm asks question and reads one line. An empty line accepts; closed
// input declines.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprint(out, question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "", "y", "yes":
		return true
	default:
		return false
	}
}

func isTerminalReader(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return logging.IsTerminal(f)
}
