// Package metrics provides Prometheus instrumentation for pipa runs.
//
// A Registry groups every collector pipa exports. Sink adapts it to the
// monitoring surface so a run can be observed alongside the console table:
//
//	reg := metrics.NewRegistry(prometheus.NewRegistry())
//	p, _ := pipeline.New(topo, stages, pipeline.Config{
//		Sink: monitor.NewMulti(monitor.NewTableSink(os.Stdout, monitor.TableConfig{}), metrics.NewSink(reg)),
//	})
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # Available Metrics
//
// Buffers (label buffer):
//
//   - pipa_buffer_occupancy, pipa_buffer_capacity
//   - pipa_buffer_consumers, pipa_buffer_producers
//   - pipa_buffer_average_utilization_ratio
//   - pipa_buffer_puts_total, pipa_buffer_rejected_puts_total
//   - pipa_buffer_sentinels_injected_total
//
// Stages and cancellation:
//
//   - pipa_stage_instances{stage,status}
//   - pipa_stage_faulted_instances_total{stage}
//   - pipa_cancellation_stops_required, pipa_cancellation_stops_received
//   - pipa_cancellation_cancelled
//   - pipa_run_finished_total{cause}, pipa_run_duration_seconds
//
// Worker pool (label pool_name) and scheduler (label scheduler_name):
//
//   - pipa_workerpool_size, pipa_workerpool_active_workers
//   - pipa_workerpool_tasks_executed_total, pipa_workerpool_tasks_failed_total
//   - pipa_workerpool_task_duration_seconds
//   - pipa_scheduler_runs_total{outcome}, pipa_scheduler_skipped_total
package metrics
