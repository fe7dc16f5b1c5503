package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	gferrors "github.com/pboueke/pipa/pkg/common/errors"
	"github.com/pboueke/pipa/pkg/common/validation"
	"github.com/pboueke/pipa/pkg/cancellation"
	"github.com/pboueke/pipa/pkg/monitor"
	"github.com/pboueke/pipa/pkg/stage"
	"github.com/pboueke/pipa/pkg/streaming/buffer"
	"github.com/pboueke/pipa/pkg/topology"
)

// bufferRuntime is a built buffer plus its monitoring state.
type bufferRuntime struct {
	buf       *buffer.Buffer
	avg       monitor.Average
	sentinels atomic.Int64
}

// stageRuntime is an instantiated topology stage.
type stageRuntime struct {
	def       topology.Stage
	impl      stage.Stage
	caps      stage.Capabilities
	input     *bufferRuntime
	outputs   []*bufferRuntime
	instances []*instance // guarded by orchestrator.mu
}

// orchestrator implements Pipeline.
type orchestrator struct {
	cfg   Config
	name  string
	runID string
	log   zerolog.Logger
	coord *cancellation.Coordinator

	buffers []*bufferRuntime
	stages  []*stageRuntime

	state   atomic.Int32
	started atomic.Bool

	mu        sync.Mutex
	startTime time.Time
	cause     monitor.Cause
	sequence  int
}

// New validates topo and builds a pipeline from it: every buffer is
// constructed and every stage is instantiated from reg. Nothing runs until
// Run is called. Any failure is a configuration error.
func New(topo *topology.Topology, reg *stage.Registry, cfg Config) (Pipeline, error) {
	if topo == nil {
		return nil, gferrors.NewValidationError("pipeline", "topology", nil, "cannot be nil")
	}
	if reg == nil {
		return nil, gferrors.NewValidationError("pipeline", "registry", nil, "cannot be nil")
	}
	if err := validation.ValidateNonNegative("pipeline", "default capacity", cfg.DefaultCapacity); err != nil {
		return nil, err
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	p := &orchestrator{
		cfg:   cfg,
		name:  cfg.Name,
		runID: cfg.RunID,
		coord: cancellation.New(),
	}
	if p.name == "" {
		p.name = topo.Name
	}
	if p.runID == "" {
		p.runID = uuid.NewString()
	}
	p.log = cfg.Logger.With().Str("run_id", p.runID).Logger()
	p.state.Store(int32(StateBuilding))

	byName := make(map[string]*bufferRuntime, len(topo.Buffers))
	for _, b := range topo.Buffers {
		capacity := b.Capacity
		if capacity == 0 {
			capacity = cfg.DefaultCapacity
		}
		br := &bufferRuntime{buf: buffer.New(b.Name, capacity)}
		p.buffers = append(p.buffers, br)
		byName[b.Name] = br
	}

	for _, s := range topo.Stages {
		impl, err := reg.New(s.Type)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", s.Name, err)
		}

		sr := &stageRuntime{def: s, impl: impl}
		if s.Input != "" {
			sr.input = byName[s.Input]
		}
		for _, out := range s.Outputs {
			sr.outputs = append(sr.outputs, byName[out])
		}
		p.stages = append(p.stages, sr)
	}

	return p, nil
}

// initialize calls Initialize once per stage. The first failure aborts the
// run before any instance exists.
func (p *orchestrator) initialize() error {
	for _, s := range p.stages {
		if err := s.impl.Initialize(stage.Settings(s.def.Settings)); err != nil {
			return &gferrors.StageInitError{Stage: s.def.Name, Type: s.def.Type, Cause: err}
		}
		s.caps = s.impl.Capabilities()
	}
	return nil
}

// prepareInstances creates every instance, declares the required stoppers
// and registers consumers and producers. It must complete before any
// instance is launched so the quorum and consumer counts are final.
func (p *orchestrator) prepareInstances() []*instance {
	var all []*instance
	for _, s := range p.stages {
		count := 1
		if s.caps.AllowsMultipleInstances {
			count = s.def.Instances
		} else if s.def.Instances > 1 {
			p.log.Warn().
				Str("stage", s.def.Name).
				Int("requested", s.def.Instances).
				Msg("stage does not allow multiple instances, running one")
		}

		outputs := make([]stage.Output, len(s.outputs))
		for i, o := range s.outputs {
			outputs[i] = o.buf
		}

		insts := make([]*instance, 0, count)
		for i := 0; i < count; i++ {
			inst := &instance{
				p:       p,
				stage:   s,
				index:   i,
				outputs: outputs,
			}
			if s.caps.RequiresCancellationAwareness {
				p.coord.DeclareRequiredStopper()
			}
			if s.input != nil {
				s.input.buf.AddConsumer()
			}
			for _, o := range s.outputs {
				o.buf.AddProducer()
			}
			insts = append(insts, inst)
			all = append(all, inst)
		}

		p.mu.Lock()
		s.instances = insts
		p.mu.Unlock()
	}
	return all
}

// instancesOf returns the instances of s. Snapshot may race with
// prepareInstances, so the slice is read under p.mu.
func (p *orchestrator) instancesOf(s *stageRuntime) []*instance {
	p.mu.Lock()
	defer p.mu.Unlock()
	return s.instances
}
