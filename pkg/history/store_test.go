package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/pboueke/pipa/internal/testutil"
	"github.com/pboueke/pipa/pkg/monitor"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), nil)
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func summary(id string, started time.Time) monitor.Summary {
	return monitor.Summary{
		RunID:    id,
		Topology: "demo",
		Started:  started,
		Finished: started.Add(1500 * time.Millisecond),
		Duration: 1500 * time.Millisecond,
		Cause:    monitor.CauseQuorum,
		Required: 1,
		Received: 1,
		Buffers: []monitor.BufferSummary{
			{Name: "raw", Capacity: 100, AverageUtilization: 0.25, Puts: 40, Takes: 38, Remaining: 2},
			{Name: "clean", Capacity: 10, AverageUtilization: 0.5, Puts: 38, Takes: 38},
		},
		Instances: []monitor.InstanceResult{
			{Stage: "gen", Instance: 0, Status: monitor.StatusCompleted},
			{Stage: "map", Instance: 0, Status: monitor.StatusFaulted, Err: errors.New("bad record")},
			{Stage: "sink", Instance: 0, Status: monitor.StatusCompleted},
		},
	}
}

func TestRecordAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	testutil.AssertNoError(t, store.Record(ctx, summary("run-1", started)))

	run, err := store.Get(ctx, "run-1")
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, run.Topology, "demo")
	testutil.AssertEqual(t, run.Cause, monitor.CauseQuorum)
	testutil.AssertEqual(t, run.Started.Equal(started), true)
	testutil.AssertEqual(t, run.Duration, 1500*time.Millisecond)
	testutil.AssertEqual(t, run.Instances, 3)
	testutil.AssertEqual(t, run.Faulted, 1)

	testutil.AssertEqual(t, len(run.Buffers), 2)
	testutil.AssertEqual(t, run.Buffers[0].Name, "raw")
	testutil.AssertEqual(t, run.Buffers[0].Remaining, 2)
	if d := run.Buffers[1].AverageUtilization - 0.5; d > 1e-9 || d < -1e-9 {
		t.Errorf("average utilization = %v, want 0.5", run.Buffers[1].AverageUtilization)
	}

	testutil.AssertEqual(t, len(run.Faults), 1)
	testutil.AssertEqual(t, run.Faults[0], Fault{Stage: "map", Instance: 0, Error: "bad record"})
}

func TestRecordDuplicateFails(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	testutil.AssertNoError(t, store.Record(ctx, summary("dup", time.Now())))
	testutil.AssertError(t, store.Record(ctx, summary("dup", time.Now())))
}

func TestGetUnknownRun(t *testing.T) {
	store := openStore(t)

	_, err := store.Get(context.Background(), "missing")
	testutil.AssertErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		sum := summary(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Hour))
		if i == 3 {
			sum.Topology = "other"
		}
		testutil.AssertNoError(t, store.Record(ctx, sum))
	}

	runs, err := store.List(ctx, "", 0)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(runs), 4)
	testutil.AssertEqual(t, runs[0].RunID, "run-3")
	testutil.AssertEqual(t, runs[3].RunID, "run-0")
	testutil.AssertEqual(t, len(runs[0].Buffers), 0)

	runs, err = store.List(ctx, "demo", 2)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(runs), 2)
	testutil.AssertEqual(t, runs[0].RunID, "run-2")
	testutil.AssertEqual(t, runs[1].RunID, "run-1")
}

func TestPruneKeepsNewest(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		testutil.AssertNoError(t, store.Record(ctx, summary(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))))
	}

	removed, err := store.Prune(ctx, 2)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, removed, int64(3))

	runs, err := store.List(ctx, "", 0)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(runs), 2)
	testutil.AssertEqual(t, runs[0].RunID, "run-4")

	// Buffers and faults of pruned runs are removed with them.
	_, err = store.Get(ctx, "run-0")
	testutil.AssertErrorIs(t, err, ErrNotFound)
	var orphans int
	testutil.AssertNoError(t, store.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM run_buffers WHERE run_id = 'run-0'").Scan(&orphans))
	testutil.AssertEqual(t, orphans, 0)
}

func TestSummarizeRecords(t *testing.T) {
	store := openStore(t)
	var sink monitor.Sink = store

	sink.Observe(monitor.Snapshot{RunID: "ignored"})
	sink.Summarize(summary("from-sink", time.Now()))

	run, err := store.Get(context.Background(), "from-sink")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, run.RunID, "from-sink")
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path, nil)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, store.Record(context.Background(), summary("persisted", time.Now())))
	testutil.AssertNoError(t, store.Close())

	store, err = Open(path, nil)
	testutil.AssertNoError(t, err)
	defer store.Close()

	runs, err := store.List(context.Background(), "", 0)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(runs), 1)
	testutil.AssertEqual(t, store.Path(), path)
}

func TestOpenRejectsOtherSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path, nil)
	testutil.AssertNoError(t, err)
	_, err = store.db.Exec("UPDATE schema_version SET version = 99")
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, store.Close())

	_, err = Open(path, nil)
	testutil.AssertErrorIs(t, err, ErrSchemaMismatch)
}
