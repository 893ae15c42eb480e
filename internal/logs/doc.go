// Package logs reads per-job transcode logs for the CLI.
//
// Last returns the final lines of a log with bounded memory, and Follow polls
// from a byte offset so `streamer jobs log --follow` can stream new lines until
// the job finishes or the caller cancels the context.
package logs
