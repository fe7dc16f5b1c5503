package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pboueke/pipa/pkg/monitor"
)

// Run is a recorded pipeline run.
type Run struct {
	RunID     string
	Topology  string
	Started   time.Time
	Finished  time.Time
	Duration  time.Duration
	Cause     monitor.Cause
	Required  int
	Received  int
	Instances int
	Faulted   int

	// Buffers and Faults are only filled by Get.
	Buffers []monitor.BufferSummary
	Faults  []Fault
}

// Fault is a faulted instance of a recorded run.
type Fault struct {
	Stage    string
	Instance int
	Error    string
}

// Record stores a run summary. Recording the same run twice fails.
func (s *Store) Record(ctx context.Context, sum monitor.Summary) error {
	return retryOnBusy(ctx, func() error {
		return s.record(ctx, sum)
	})
}

func (s *Store) record(ctx context.Context, sum monitor.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	faulted := sum.Faulted()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (
            run_id, topology, started_at, finished_at, duration_ms, cause,
            required_stops, received_stops, instances, faulted
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID,
		sum.Topology,
		formatTime(sum.Started),
		formatTime(sum.Finished),
		sum.Duration.Milliseconds(),
		string(sum.Cause),
		sum.Required,
		sum.Received,
		len(sum.Instances),
		len(faulted),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, b := range sum.Buffers {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_buffers (
                run_id, position, name, capacity, avg_utilization, puts, takes, remaining
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sum.RunID, i, b.Name, b.Capacity, b.AverageUtilization, b.Puts, b.Takes, b.Remaining,
		)
		if err != nil {
			return fmt.Errorf("insert buffer %s: %w", b.Name, err)
		}
	}

	for _, f := range faulted {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO run_faults (run_id, stage, instance, error) VALUES (?, ?, ?, ?)",
			sum.RunID, f.Stage, f.Instance, msg,
		)
		if err != nil {
			return fmt.Errorf("insert fault %s/%d: %w", f.Stage, f.Instance, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `run_id, topology, started_at, finished_at, duration_ms, cause,
    required_stops, received_stops, instances, faulted`

// List returns the most recent runs first. A non-empty topology filters by
// topology name. limit <= 0 returns every run.
func (s *Store) List(ctx context.Context, topology string, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs"
	var args []any
	if topology != "" {
		query += " WHERE topology = ?"
		args = append(args, topology)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns one run with its buffer usage and faults.
func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE run_id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	if run.Buffers, err = s.buffers(ctx, runID); err != nil {
		return nil, err
	}
	if run.Faults, err = s.faults(ctx, runID); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) buffers(ctx context.Context, runID string) ([]monitor.BufferSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, capacity, avg_utilization, puts, takes, remaining
         FROM run_buffers WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run buffers: %w", err)
	}
	defer rows.Close()

	var buffers []monitor.BufferSummary
	for rows.Next() {
		var b monitor.BufferSummary
		if err := rows.Scan(&b.Name, &b.Capacity, &b.AverageUtilization, &b.Puts, &b.Takes, &b.Remaining); err != nil {
			return nil, fmt.Errorf("scan run buffer: %w", err)
		}
		buffers = append(buffers, b)
	}
	return buffers, rows.Err()
}

func (s *Store) faults(ctx context.Context, runID string) ([]Fault, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT stage, instance, error FROM run_faults WHERE run_id = ? ORDER BY stage, instance", runID)
	if err != nil {
		return nil, fmt.Errorf("list run faults: %w", err)
	}
	defer rows.Close()

	var faults []Fault
	for rows.Next() {
		var f Fault
		if err := rows.Scan(&f.Stage, &f.Instance, &f.Error); err != nil {
			return nil, fmt.Errorf("scan run fault: %w", err)
		}
		faults = append(faults, f)
	}
	return faults, rows.Err()
}

// Prune deletes all but the keep most recent runs and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM runs WHERE run_id NOT IN (
                SELECT run_id FROM runs ORDER BY started_at DESC LIMIT ?
            )`, keep)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}

// Observe implements monitor.Sink. Snapshots are not stored.
func (s *Store) Observe(monitor.Snapshot) {}

// Summarize implements monitor.Sink by recording the summary. Failures are
// logged, never returned to the pipeline.
func (s *Store) Summarize(sum monitor.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := s.Record(ctx, sum); err != nil {
		s.log.Error().Err(err).Str("run_id", sum.RunID).Msg("failed to record run history")
		return
	}
	s.log.Debug().Str("run_id", sum.RunID).Msg("run recorded")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run               Run
		started, finished string
		durationMS        int64
		cause             string
	)
	err := row.Scan(
		&run.RunID, &run.Topology, &started, &finished, &durationMS, &cause,
		&run.Required, &run.Received, &run.Instances, &run.Faulted,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.Cause = monitor.Cause(cause)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if run.Started, err = parseTime(started); err != nil {
		return Run{}, err
	}
	if run.Finished, err = parseTime(finished); err != nil {
		return Run{}, err
	}
	return run, nil
}

// timeLayout has a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
