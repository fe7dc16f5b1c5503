/*
Package scheduler triggers recurring jobs, typically complete pipeline
runs, on cron schedules.

	s := scheduler.NewWithConfig(scheduler.Config{Logger: &logger})
	defer func() { <-s.Stop() }()

	err := s.Schedule("nightly", "0 2 * * *", func(ctx context.Context) error {
		p, err := pipeline.New(topo, reg, cfg)
		if err != nil {
			return err
		}
		_, err = p.Run(ctx)
		return err
	})

	s.Start()

Expressions take five fields (minute hour dom month dow), an optional
leading seconds field, or a descriptor such as @hourly or @every 10m.

A job never overlaps itself. When a trigger fires while the previous run of
the same job is still active, the trigger is skipped, logged, and counted
in the scheduler metrics. Panics in a job are recovered and logged.

Stop cancels the context passed to running jobs, so a pipeline run started
by the scheduler is interrupted and drains like any other interrupted run.
*/
package scheduler
