// Package main hosts the streamer CLI entrypoint and command graph.
//
// `streamer serve` runs the upload API and transcode workers in the
// foreground. The remaining commands are clients: upload and status talk to a
// running server over HTTP, while jobs and check read the configured job
// store and environment directly so they work whether or not a server is up.
package main
