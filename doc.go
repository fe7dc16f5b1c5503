/*
Package pipa runs multi-stage data pipelines declared in TOML.

A topology names bounded buffers and the stages that read from and write to
them. Each stage runs as one or more instances on a worker pool. The run
ends when every cancellation-aware instance has asked to stop, when the
buffers stay idle past a timeout, or when an operator aborts it.

Packages:

  - pkg/topology: parsing and validating topology files
  - pkg/stage: the Stage contract, the registry and the send helper
  - pkg/stages: built-in stages (generator, passthrough, sink, script)
  - pkg/streaming/buffer: bounded buffers between stages
  - pkg/cancellation: the stop quorum and the sentinel record
  - pkg/scheduling/pipeline: the orchestrator
  - pkg/scheduling/workerpool: the instance worker pool
  - pkg/scheduling/scheduler: cron-triggered runs
  - pkg/monitor: snapshots, summaries and their console and log sinks
  - pkg/metrics: Prometheus metrics
  - pkg/abort: keypress, flag and Redis abort sources
  - pkg/history: SQLite run history
  - pkg/ratelimit: token bucket used to throttle stages

The pipa command in cmd/pipa wires all of them together:

	pipa validate topology.toml
	pipa run topology.toml --history runs.db
	pipa history --history runs.db
*/
package pipa
