package pipeline

import (
	"time"

	"github.com/pboueke/pipa/pkg/monitor"
)

// Snapshot returns the current monitoring view. It does not feed the
// running utilization averages.
func (p *orchestrator) Snapshot() monitor.Snapshot {
	return p.snapshot(false)
}

// snapshot builds a Snapshot. With sample set, the current utilization of
// each buffer is folded into its running average first.
func (p *orchestrator) snapshot(sample bool) monitor.Snapshot {
	p.mu.Lock()
	start := p.startTime
	if sample {
		p.sequence++
	}
	seq := p.sequence
	p.mu.Unlock()

	now := time.Now()
	snap := monitor.Snapshot{
		RunID:     p.runID,
		Sequence:  seq,
		Time:      now,
		Required:  p.coord.Required(),
		Received:  p.coord.Received(),
		Cancelled: p.coord.IsCancelled(),
		Forced:    p.coord.Forced(),
	}
	if !start.IsZero() {
		snap.Elapsed = now.Sub(start)
	}

	for _, b := range p.buffers {
		occ := b.buf.Occupancy()
		util := occ.Utilization()
		avg := b.avg.Value()
		if sample {
			avg = b.avg.Add(util)
		}
		stats := b.buf.Stats()

		snap.Buffers = append(snap.Buffers, monitor.BufferSnapshot{
			Name:               b.buf.Name(),
			Count:              occ.Count,
			Capacity:           occ.Capacity,
			Consumers:          occ.Consumers,
			Producers:          b.buf.Producers(),
			Utilization:        util,
			AverageUtilization: avg,
			Puts:               stats.PutCount,
			RejectedPuts:       stats.RejectedPuts,
			Takes:              stats.TakeCount,
			SentinelsInjected:  b.sentinels.Load(),
		})
	}

	for _, s := range p.stages {
		ss := monitor.StageSnapshot{Name: s.def.Name, Type: s.def.Type}
		for _, inst := range p.instancesOf(s) {
			ss.Instances = append(ss.Instances, inst.Status())
		}
		snap.Stages = append(snap.Stages, ss)
	}

	return snap
}

// summary builds the final Summary. Must be called after every instance
// has exited.
func (p *orchestrator) summary() monitor.Summary {
	p.mu.Lock()
	start := p.startTime
	cause := p.cause
	p.mu.Unlock()

	if cause == "" {
		switch {
		case !p.coord.IsCancelled():
			cause = monitor.CauseNone
		case p.coord.Forced():
			cause = monitor.CauseForced
		default:
			cause = monitor.CauseQuorum
		}
	}

	finished := time.Now()
	sum := monitor.Summary{
		RunID:    p.runID,
		Topology: p.name,
		Started:  start,
		Finished: finished,
		Duration: finished.Sub(start),
		Cause:    cause,
		Required: p.coord.Required(),
		Received: p.coord.Received(),
	}

	for _, b := range p.buffers {
		stats := b.buf.Stats()
		sum.Buffers = append(sum.Buffers, monitor.BufferSummary{
			Name:               b.buf.Name(),
			Capacity:           b.buf.Cap(),
			AverageUtilization: b.avg.Value(),
			Puts:               stats.PutCount,
			Takes:              stats.TakeCount,
			Remaining:          b.buf.Len(),
		})
	}

	for _, s := range p.stages {
		for _, inst := range p.instancesOf(s) {
			sum.Instances = append(sum.Instances, inst.result())
		}
	}

	return sum
}
