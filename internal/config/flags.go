package config

import (
	"time"

	"github.com/spf13/pflag"
)

type flagDef struct {
	key   string
	name  string
	usage string
}

var flagTable = []flagDef{
	{"monitor_interval", "monitor-interval", "interval between monitoring snapshots"},
	{"monitor_skip", "monitor-skip", "render only every Nth snapshot"},
	{"enable_monitoring", "monitor", "render the monitoring table"},
	{"idle_timeout", "idle-timeout", "stop when every buffer stays empty this long (0 disables)"},
	{"default_capacity", "default-capacity", "capacity of buffers declared without one"},
	{"retry_delay", "retry-delay", "pause between attempts on a full output buffer"},
	{"confirm_unbounded", "confirm-unbounded", "ask before starting a run that cannot end on its own"},
	{"metrics_addr", "metrics-addr", "serve Prometheus metrics on this address"},
	{"history_path", "history", "SQLite run history database"},
	{"redis_addr", "redis-addr", "Redis address for remote abort"},
	{"abort_key", "abort-key", "Redis key that aborts runs"},
	{"schedule", "schedule", "run repeatedly on this cron expression"},
	{"log.level", "log-level", "log level (trace, debug, info, warn, error)"},
	{"log.format", "log-format", "log format (console, json)"},
	{"log.no_color", "no-color", "disable colored console logs"},
}

// RegisterFlags adds the flags for keys to fs. No keys registers all.
// Flag defaults mirror the configuration defaults; Load only honors flags
// that were set explicitly.
func RegisterFlags(fs *pflag.FlagSet, keys ...string) {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}

	for _, f := range flagTable {
		if len(keys) > 0 && !want[f.key] {
			continue
		}
		switch def := defaults[f.key].(type) {
		case time.Duration:
			fs.Duration(f.name, def, f.usage)
		case int:
			fs.Int(f.name, def, f.usage)
		case bool:
			fs.Bool(f.name, def, f.usage)
		case string:
			fs.String(f.name, def, f.usage)
		}
	}
}
