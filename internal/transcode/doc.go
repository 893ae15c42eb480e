// Package transcode converts one uploaded file into an HLS playlist and
// segments by invoking ffmpeg, and records the outcome on the job.
//
// Executor.Execute owns a job from pickup to its terminal status: it claims the
// job (queued to processing), prepares the output directory, runs ffmpeg with an
// explicit argument list, and writes exactly one of ready or failed. Faults
// never escape as panics, so a worker loop survives any single bad input.
package transcode
