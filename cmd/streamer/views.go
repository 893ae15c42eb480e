package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"streamer/internal/status"
	"streamer/internal/textutil"
)

const listMessageWidth = 60

func buildJobListRows(views []status.View) [][]string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{
			v.ID,
			v.Filename,
			formatStatusLabel(v.Status),
			formatDisplayTime(v.CreatedAt),
			textutil.Ellipsize(v.Message, listMessageWidth),
		})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	t := status.ParseTime(value)
	if t.IsZero() {
		return strings.TrimSpace(value)
	}
	return t.UTC().Format("2006-01-02 15:04")
}

// writeJSON prints v as indented JSON for --json flags.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
