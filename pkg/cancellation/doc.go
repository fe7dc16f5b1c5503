/*
Package cancellation implements the coordinated shutdown protocol shared by
every worker instance of a pipeline.

A pipeline finishes when all of its cancellation-aware instances agree that
they are done, or when something outside the stages (an operator abort, an
idle timeout) forces it to stop:

	c := cancellation.New()
	c.DeclareRequiredStopper() // sink #1
	c.DeclareRequiredStopper() // sink #2

	c.RequestStop(false) // sink #1 reached its limit; not cancelled yet
	c.RequestStop(false) // quorum reached; cancelled
	c.IsCancelled()      // true

	c.RequestStop(true) // always cancels, even with a zero quorum

The quorum counts instances, not stages. A stage running three aware
instances contributes three to the quorum.

Once cancelled, the orchestrator floods every buffer with Sentinel records
so that workers blocked on an empty input wake up. Stage loops must treat a
sentinel as a signal only: check IsCancelled first, then skip anything for
which IsCancellationSentinel reports true.

A Coordinator must not be reused across runs.
*/
package cancellation
