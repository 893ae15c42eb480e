// Package httpapi exposes uploads, job status, playback redirects and health
// over HTTP.
//
// Routes are registered on a gorilla/mux router and wrapped in request-id,
// access-log and CORS middleware. Uploads are streamed straight from the
// multipart body into the ingest service; nothing is buffered to a temporary
// form file. When server.serve_hls is enabled the HLS tree is served under the
// configured URL prefix, otherwise a reverse proxy is expected to serve it.
package httpapi
