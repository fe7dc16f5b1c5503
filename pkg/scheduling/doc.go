/*
Package scheduling runs pipelines and the instances inside them.

  - workerpool: fixed pool of goroutines that executes stage instances and
    recovers their panics
  - pipeline: the orchestrator that builds a topology, spawns instances,
    watches buffers and decides when the run ends
  - scheduler: cron triggers for running a topology repeatedly

A single run:

	p, err := pipeline.New(topo, registry, pipeline.Config{Logger: &logger})
	if err != nil {
		return err
	}
	summary, err := p.Run(ctx)

A recurring run:

	s := scheduler.New()
	_ = s.Schedule("nightly", "0 2 * * *", func(ctx context.Context) error {
		p, err := pipeline.New(topo, registry, pipeline.Config{})
		if err != nil {
			return err
		}
		_, err = p.Run(ctx)
		return err
	})
	_ = s.Start()
	defer func() { <-s.Stop() }()

A pipeline runs once, so each trigger builds a fresh one.
*/
package scheduling
