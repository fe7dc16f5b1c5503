/*
Package streaming holds the data plane of a pipa run.

  - buffer: bounded FIFO queues that connect stages, with utilization
    statistics for monitoring

Stages never share memory directly. Every record moves through a buffer,
and a full buffer pushes back on its producers instead of growing.
*/
package streaming
