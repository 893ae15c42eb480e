package jobs

import (
	"fmt"
	"time"
)

const jobColumns = "id, filename, source_path, output_ref, status, message, created_at"

// timestampLayout is fixed width so lexical order in the database matches time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(timestampLayout)
}

func parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(timestampLayout, raw); err == nil {
		return ts, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", raw, err)
	}
	return ts.UTC(), nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job        Job
		statusStr  string
		createdRaw string
	)
	if err := scanner.Scan(
		&job.ID,
		&job.Filename,
		&job.SourcePath,
		&job.OutputRef,
		&statusStr,
		&job.Message,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	job.Status = Status(statusStr)
	created, err := parseTimestamp(createdRaw)
	if err != nil {
		return nil, err
	}
	job.CreatedAt = created
	return &job, nil
}
