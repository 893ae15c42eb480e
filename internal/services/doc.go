// Package services holds the error markers and context tags shared by ingest,
// the transcode executor and the HTTP layer.
//
// Failures are wrapped with Wrap so callers can classify them with errors.Is
// (or Kind for log fields) while Detail yields the text stored on a job or
// returned to an uploader. WithJobID and WithRequestID carry the identifiers
// that logging.WithContext turns into job_id and correlation_id fields.
package services
