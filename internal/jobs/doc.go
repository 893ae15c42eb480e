// Package jobs persists media transcode jobs and enforces their lifecycle.
//
// The Store is the only shared state between the HTTP layer and the
// transcode workers: ingest inserts a queued row, the executor moves it through
// processing into ready or failed, and status queries read it back. Every call
// is a single database round trip with no caching, so readers always see the
// last committed status and message pair.
//
// SQLite (modernc.org/sqlite) is the default backend; MySQL is available for
// deployments that already run a database server. Both share the same SQL and
// differ only in schema DDL and error classification.
package jobs
