// Package abort provides the operator abort signal polled by the pipeline
// orchestrator. A requested abort force-stops the run regardless of the
// cancellation quorum.
//
// Sources can be combined:
//
//	flag := &abort.Flag{}          // set from a signal handler
//	keys := abort.WatchKeys(os.Stdin)
//	src := abort.Any(flag, keys, abort.NewRedis(rdb, "pipa:abort:demo"))
package abort
