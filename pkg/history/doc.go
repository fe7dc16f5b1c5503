// Package history records pipeline run summaries in a local SQLite
// database. A *Store is a monitor.Sink, so it can be combined with other
// sinks through monitor.Multi and records each run as it finishes.
package history
