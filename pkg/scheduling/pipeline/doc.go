/*
Package pipeline builds a topology into running stage instances and
supervises them until every instance has exited.

# Quick Start

	topo, err := topology.Load("pipeline.toml")
	if err != nil {
		return err
	}

	reg := stage.NewRegistry()
	stages.RegisterBuiltins(reg)

	p, err := pipeline.New(topo, reg, pipeline.Config{
		Sink:   monitor.NewTableSink(os.Stdout, monitor.TableConfig{}),
		Logger: &logger,
	})
	if err != nil {
		return err
	}

	result, err := p.Run(ctx)

# Lifecycle

A pipeline moves through building, spawning, running, draining and
terminated. New validates the topology, constructs every buffer and asks
the registry for every stage. Run initializes each stage once, creates all
instances and declares the required stoppers before any instance starts,
then launches them on a private worker pool.

# Termination

The run ends cooperatively once every instance of every
cancellation-aware stage has called RequestStop(false). It is forced when
the Abort source fires, when ctx ends, or when every buffer stays empty
longer than IdleTimeout. After cancellation the wait loop keeps putting
sentinels into every buffer until all instances have exited, so consumers
blocked on an empty input always wake.

Instance errors and panics never stop the run. They are reported as
faulted instances in the Result.

# Monitoring

A snapshot is sent to the Sink at most once per MonitorInterval and the
final Summary is sent once after teardown. Snapshot can be called at any
time from another goroutine.
*/
package pipeline
