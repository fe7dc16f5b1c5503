package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	gferrors "github.com/pboueke/pipa/pkg/common/errors"
	"github.com/pboueke/pipa/pkg/metrics"
)

// DefaultName labels scheduler metrics when Config.Name is empty.
const DefaultName = "pipa"

// parser accepts five or six fields plus descriptors such as @hourly and
// @every 5m.
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Job is one scheduled unit of work, typically a complete pipeline run.
// ctx is cancelled when the scheduler stops.
type Job func(ctx context.Context) error

// Entry describes a scheduled job.
type Entry struct {
	ID         string
	Expression string
	Next       time.Time
	Prev       time.Time
	Runs       int64
	Skipped    int64
	LastErr    error
}

// Scheduler triggers jobs on cron schedules. A job never overlaps itself:
// a trigger that fires while the previous run is active is skipped.
type Scheduler interface {
	// Schedule registers job under id on the cron expression expr.
	Schedule(id, expr string, job Job) error

	// Cancel removes a job. A run in progress is not interrupted.
	Cancel(id string) bool

	// List returns all scheduled jobs sorted by ID.
	List() []Entry

	// Start begins triggering jobs.
	Start() error

	// Stop cancels the context of running jobs and stops triggering new
	// ones. The returned channel closes once every running job returned.
	Stop() <-chan struct{}
}

// Config holds scheduler configuration.
type Config struct {
	// Name labels metrics. Defaults to DefaultName.
	Name string

	// Location evaluates expressions. Defaults to time.Local.
	Location *time.Location

	// MaxRuns removes a job after it ran this many times. Zero is unlimited.
	MaxRuns int

	// Logger receives trigger and skip logs. Nil disables logging.
	Logger *zerolog.Logger

	// Metrics counts runs by outcome and skipped triggers. Nil disables it.
	Metrics *metrics.Registry

	// OnRunComplete is called after every finished run.
	OnRunComplete func(id string, err error)
}

type entry struct {
	id      string
	expr    string
	cronID  cron.EntryID
	active  atomic.Bool
	runs    atomic.Int64
	skipped atomic.Int64
	lastErr atomic.Pointer[error]
}

type scheduler struct {
	cfg  Config
	name string
	log  zerolog.Logger
	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]*entry
	running bool
}

// New creates a scheduler with default configuration.
func New() Scheduler {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(cfg Config) Scheduler {
	name := cfg.Name
	if name == "" {
		name = DefaultName
	}
	location := cfg.Location
	if location == nil {
		location = time.Local
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("scheduler", name).Logger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &scheduler{
		cfg:     cfg,
		name:    name,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
	}
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(location),
		cron.WithLogger(cronLogger{log}),
		cron.WithChain(cron.Recover(cronLogger{log})),
	)
	return s
}

// ValidateExpression reports whether expr is a valid schedule.
func ValidateExpression(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return gferrors.NewValidationError("scheduler", "expression", expr, err.Error()).
			WithHint("use five or six cron fields, or a descriptor such as @hourly or @every 10m")
	}
	return nil
}

// NextRuns returns the next n trigger times of expr after from.
func NextRuns(expr string, from time.Time, n int) ([]time.Time, error) {
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, ValidateExpression(expr)
	}

	runs := make([]time.Time, 0, n)
	current := from
	for i := 0; i < n; i++ {
		current = schedule.Next(current)
		runs = append(runs, current)
	}
	return runs, nil
}

func (s *scheduler) Schedule(id, expr string, job Job) error {
	if id == "" {
		return gferrors.NewValidationError("scheduler", "id", id, "cannot be empty")
	}
	if job == nil {
		return gferrors.NewValidationError("scheduler", "job", nil, "cannot be nil")
	}
	schedule, err := parser.Parse(expr)
	if err != nil {
		return ValidateExpression(expr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; exists {
		return gferrors.NewValidationError("scheduler", "id", id, "already scheduled").
			WithHint("cancel the existing job first")
	}

	e := &entry{id: id, expr: expr}
	e.cronID = s.cron.Schedule(schedule, s.wrap(e, job))
	s.entries[id] = e

	s.log.Debug().Str("job", id).Str("expression", expr).Msg("job scheduled")
	return nil
}

// wrap adapts job to cron: it skips overlapping triggers and records the
// outcome of every run.
func (s *scheduler) wrap(e *entry, job Job) cron.Job {
	return cron.FuncJob(func() {
		if !e.active.CompareAndSwap(false, true) {
			e.skipped.Add(1)
			if s.cfg.Metrics != nil {
				s.cfg.Metrics.SkippedRuns.WithLabelValues(s.name).Inc()
			}
			s.log.Warn().Str("job", e.id).Msg("previous run still active, skipping trigger")
			return
		}
		defer e.active.Store(false)

		if s.ctx.Err() != nil {
			return
		}

		s.log.Info().Str("job", e.id).Msg("scheduled run starting")
		err := job(s.ctx)
		runs := e.runs.Add(1)

		outcome := "success"
		if err != nil {
			outcome = "failure"
			e.lastErr.Store(&err)
			s.log.Error().Err(err).Str("job", e.id).Msg("scheduled run failed")
		} else {
			e.lastErr.Store(nil)
		}
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.ScheduledRuns.WithLabelValues(s.name, outcome).Inc()
		}
		if hook := s.cfg.OnRunComplete; hook != nil {
			hook(e.id, err)
		}

		if s.cfg.MaxRuns > 0 && runs >= int64(s.cfg.MaxRuns) {
			s.log.Info().Str("job", e.id).Int64("runs", runs).Msg("maximum runs reached, removing job")
			s.Cancel(e.id)
		}
	})
}

func (s *scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[id]
	if !exists {
		return false
	}
	s.cron.Remove(e.cronID)
	delete(s.entries, id)
	return true
}

func (s *scheduler) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		ce := s.cron.Entry(e.cronID)
		out := Entry{
			ID:         e.id,
			Expression: e.expr,
			Next:       ce.Next,
			Prev:       ce.Prev,
			Runs:       e.runs.Load(),
			Skipped:    e.skipped.Load(),
		}
		if errp := e.lastErr.Load(); errp != nil {
			out.LastErr = *errp
		}
		entries = append(entries, out)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	})
	return entries
}

func (s *scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running, call Stop() first")
	}
	if s.ctx.Err() != nil {
		return fmt.Errorf("scheduler stopped, create a new one")
	}

	s.running = true
	s.cron.Start()
	return nil
}

func (s *scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.cancel()
	ctx := s.cron.Stop()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
	}()
	return stopped
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
