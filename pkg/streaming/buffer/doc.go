/*
Package buffer provides the bounded queues that connect pipeline stages.

A Buffer is a fixed-capacity FIFO shared by every worker instance wired to
it. Producers use the non-blocking TryPut and handle a full buffer
themselves (see stage.SendResult); consumers range over Consume, which
blocks while the buffer is empty:

	b := buffer.New("raw", 10)
	b.AddConsumer()

	go func() {
		for rec := range b.Consume() {
			process(rec)
		}
	}()

	if !b.TryPut("record") {
		// full: retry later or give up on cancellation
	}

The sequence returned by Consume ends only when the buffer is closed, which
the orchestrator does at teardown after every instance has exited. Pipeline
cancellation is delivered through sentinel records flowing through the same
sequence, so a reader racing with shutdown always receives a deterministic
signal instead of an early end of iteration.

Occupancy is lock-free and intended for monitoring; it reflects some state
that existed after all operations completed before the call.
*/
package buffer
