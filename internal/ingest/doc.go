// Package ingest turns an uploaded file into a queued job.
//
// Accept sanitizes the client filename, enforces the extension allow-list and
// size limit while streaming, saves the original under a server-generated
// name, records the job as queued and hands it to the dispatcher. The HTTP
// layer maps the package errors onto status codes.
package ingest
