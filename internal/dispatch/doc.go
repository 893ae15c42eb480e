// Package dispatch hands accepted transcode tasks to a fixed pool of workers.
//
// Submit appends to an unbounded in-memory FIFO and never blocks, so request
// handlers return as soon as a job is recorded. Workers pop tasks under a
// mutex and call the executor, which owns every status write after the job
// leaves queued. The queue is not durable: after a restart the server
// resubmits rows still marked queued in the job store.
package dispatch
