// Package monitor defines the monitoring surface of a pipeline run and the
// console and log sinks that render it.
//
// The orchestrator emits a Snapshot on every wait-loop iteration and a
// Summary once the run ends. Buffer snapshots carry a running average of
// utilization across all snapshots so far (see Average), which is also
// reported as the final buffer usage. Sinks are combined with NewMulti.
package monitor
