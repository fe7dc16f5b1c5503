package monitor

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// DefaultAbortHint is printed above every rendered snapshot.
const DefaultAbortHint = "pipa is running. Press X to abort safely."

// TableConfig configures a TableSink.
type TableConfig struct {
	// Skip renders only every Skip-th snapshot. Values below 1 mean 1.
	Skip int

	// AbortHint is printed above each rendered snapshot. Empty disables it.
	AbortHint string

	// Color enables usage and status coloring.
	Color bool
}

// TableSink renders snapshots as console tables.
type TableSink struct {
	w      io.Writer
	config TableConfig

	mu   sync.Mutex
	seen int
}

// NewTableSink creates a sink writing to w.
func NewTableSink(w io.Writer, config TableConfig) *TableSink {
	if config.Skip < 1 {
		config.Skip = 1
	}
	return &TableSink{w: w, config: config}
}

// Observe renders s when it falls on the configured skip interval.
func (t *TableSink) Observe(s Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seen++
	if t.seen%t.config.Skip != 0 {
		return
	}

	if t.config.AbortHint != "" {
		fmt.Fprintln(t.w, t.config.AbortHint)
	}
	fmt.Fprintf(t.w, "run %s  elapsed %s  stops %d/%d%s\n",
		s.RunID, s.Elapsed.Round(time.Millisecond), s.Received, s.Required, cancelledLabel(s))
	fmt.Fprintln(t.w, t.buffersTable(s.Buffers))
	fmt.Fprintln(t.w, t.stagesTable(s.Stages))
}

// Summarize renders the final buffer usage and any faulted instances.
func (t *TableSink) Summarize(s Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.w, "run %s finished in %s (cause: %s)\n", s.RunID, s.Duration.Round(time.Millisecond), s.Cause)

	tw := t.newWriter()
	tw.SetTitle("FINAL BUFFER USAGE")
	tw.AppendHeader(table.Row{"Buffer", "Capacity", "Avg %", "Puts", "Takes", "Remaining"})
	for _, b := range s.Buffers {
		tw.AppendRow(table.Row{b.Name, b.Capacity, t.percent(b.AverageUtilization), b.Puts, b.Takes, b.Remaining})
	}
	rightAlign(tw, 2, 6)
	fmt.Fprintln(t.w, tw.Render())

	faulted := s.Faulted()
	if len(faulted) == 0 {
		return
	}
	fw := t.newWriter()
	fw.SetTitle("FAULTED INSTANCES")
	fw.AppendHeader(table.Row{"Stage", "ID", "Error"})
	for _, r := range faulted {
		fw.AppendRow(table.Row{r.Stage, r.Instance, r.Err})
	}
	fmt.Fprintln(t.w, fw.Render())
}

func (t *TableSink) buffersTable(buffers []BufferSnapshot) string {
	tw := t.newWriter()
	tw.SetTitle("BUFFER STATUS")
	tw.AppendHeader(table.Row{"Buffer", "Size", "Usage %", "Avg %", "Consumers", "Producers"})
	for _, b := range buffers {
		tw.AppendRow(table.Row{
			b.Name,
			strconv.Itoa(b.Count) + "/" + strconv.Itoa(b.Capacity),
			t.percent(b.Utilization),
			t.percent(b.AverageUtilization),
			b.Consumers,
			b.Producers,
		})
	}
	rightAlign(tw, 2, 6)
	return tw.Render()
}

func (t *TableSink) stagesTable(stages []StageSnapshot) string {
	tw := t.newWriter()
	tw.SetTitle("STAGE INSTANCE STATUS")
	tw.AppendHeader(table.Row{"Stage", "Type", "ID", "Status"})
	for _, s := range stages {
		for i, st := range s.Instances {
			tw.AppendRow(table.Row{s.Name, s.Type, i, t.status(st)})
		}
	}
	return tw.Render()
}

func (t *TableSink) newWriter() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}

func (t *TableSink) percent(v float64) string {
	s := strconv.FormatFloat(v*100, 'f', 1, 64)
	if !t.config.Color {
		return s
	}
	return usageColors(v).Sprint(s)
}

func (t *TableSink) status(st InstanceStatus) string {
	if !t.config.Color {
		return st.String()
	}
	var c text.Colors
	switch st {
	case StatusCreated:
		c = text.Colors{text.FgHiYellow}
	case StatusRunning:
		c = text.Colors{text.FgHiGreen}
	case StatusCompleted:
		c = text.Colors{text.FgGreen}
	case StatusFaulted:
		c = text.Colors{text.FgRed, text.Bold}
	}
	return c.Sprint(st.String())
}

// usageColors grades utilization from cold to saturated.
func usageColors(v float64) text.Colors {
	switch {
	case v > 0.9:
		return text.Colors{text.FgRed}
	case v > 0.7:
		return text.Colors{text.FgYellow}
	case v > 0.3:
		return text.Colors{text.FgGreen}
	default:
		return text.Colors{text.FgCyan}
	}
}

func rightAlign(tw table.Writer, from, to int) {
	configs := make([]table.ColumnConfig, 0, to-from+1)
	for i := from; i <= to; i++ {
		configs = append(configs, table.ColumnConfig{
			Number:      i,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)
}

func cancelledLabel(s Snapshot) string {
	switch {
	case s.Forced:
		return "  [force-stopped]"
	case s.Cancelled:
		return "  [stopping]"
	default:
		return ""
	}
}
