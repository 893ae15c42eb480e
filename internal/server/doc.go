// Package server wires the job store, executor, dispatcher and HTTP API into
// one long-running process and owns its startup and shutdown order.
//
// Startup takes an exclusive lock in the state directory so two servers never
// share a database, marks jobs left processing by a previous run as failed,
// and resubmits queued jobs oldest first before accepting new uploads.
// Shutdown stops the listener first, then gives in-flight transcodes the
// configured grace period before canceling them.
package server
