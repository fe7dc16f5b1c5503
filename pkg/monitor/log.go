package monitor

import (
	"github.com/rs/zerolog"
)

// LogSink writes snapshots and the final summary as structured log events.
// Snapshots are logged at debug level, the summary at info.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a sink logging through l.
func NewLogSink(l zerolog.Logger) *LogSink {
	return &LogSink{log: l.With().Str("component", "monitor").Logger()}
}

func (l *LogSink) Observe(s Snapshot) {
	for _, b := range s.Buffers {
		l.log.Debug().
			Str("run_id", s.RunID).
			Str("buffer", b.Name).
			Int("count", b.Count).
			Int("capacity", b.Capacity).
			Float64("avg_utilization", b.AverageUtilization).
			Int("consumers", b.Consumers).
			Msg("buffer status")
	}
	for _, st := range s.Stages {
		l.log.Debug().
			Str("run_id", s.RunID).
			Str("stage", st.Name).
			Int("running", st.Count(StatusRunning)).
			Int("completed", st.Count(StatusCompleted)).
			Int("faulted", st.Count(StatusFaulted)).
			Msg("stage status")
	}
}

func (l *LogSink) Summarize(s Summary) {
	for _, b := range s.Buffers {
		l.log.Info().
			Str("run_id", s.RunID).
			Str("buffer", b.Name).
			Int("capacity", b.Capacity).
			Float64("avg_utilization", b.AverageUtilization).
			Int64("puts", b.Puts).
			Int64("takes", b.Takes).
			Msg("final buffer usage")
	}
	for _, r := range s.Faulted() {
		l.log.Warn().
			Str("run_id", s.RunID).
			Str("stage", r.Stage).
			Int("instance", r.Instance).
			Err(r.Err).
			Msg("instance faulted")
	}
	l.log.Info().
		Str("run_id", s.RunID).
		Str("cause", string(s.Cause)).
		Dur("duration", s.Duration).
		Int("stops_received", s.Received).
		Int("stops_required", s.Required).
		Msg("run finished")
}
