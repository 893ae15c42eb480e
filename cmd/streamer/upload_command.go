package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"streamer/internal/status"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var pollInterval time.Duration
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a video to a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.newClient()

			bar := newUploadProgress(cmd.ErrOrStderr(), args[0])
			var progress io.Writer
			if bar != nil {
				progress = bar
			}
			accepted, err := client.Upload(cmd.Context(), args[0], progress)
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return err
			}
			if !wait {
				if asJSON {
					return writeJSON(cmd, accepted)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Queued job %s\n", accepted.ID)
				fmt.Fprintf(out, "Status: %s%s\n", ctx.serverURL(), accepted.StatusURL)
				fmt.Fprintf(out, "Watch:  %s%s\n", ctx.serverURL(), accepted.PlayURL)
				return nil
			}

			if !asJSON {
				fmt.Fprintf(cmd.ErrOrStderr(), "Queued job %s, waiting for transcode\n", accepted.ID)
			}
			view, err := waitForTerminal(cmd.Context(), client, accepted.ID, pollInterval)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, view)
			}
			printJobDetail(cmd.OutOrStdout(), view)
			if view.Status == "failed" {
				return fmt.Errorf("transcode failed: %s", view.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait until the job is ready or failed")
	cmd.Flags().DurationVar(&pollInterval, "poll", 2*time.Second, "Status poll interval with --wait")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the response as JSON")
	return cmd
}

// newUploadProgress returns a byte progress bar on interactive stderr, or nil.
func newUploadProgress(out io.Writer, path string) *progressbar.ProgressBar {
	if !shouldColorize(out) {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	return progressbar.NewOptions64(info.Size(),
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("uploading "+filepath.Base(path)),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func waitForTerminal(ctx context.Context, client *apiClient, id string, interval time.Duration) (status.View, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		view, err := client.Status(ctx, id)
		if err != nil {
			return view, err
		}
		if view.Status == "ready" || view.Status == "failed" {
			return view, nil
		}
		select {
		case <-ctx.Done():
			return view, ctx.Err()
		case <-ticker.C:
		}
	}
}

func printJobDetail(out io.Writer, view status.View) {
	rows := [][]string{
		{"ID", view.ID},
		{"File", view.Filename},
		{"Status", formatStatusLabel(view.Status)},
		{"Created", formatDisplayTime(view.CreatedAt)},
		{"Playlist", view.OutputRef},
	}
	if view.Message != "" {
		rows = append(rows, []string{"Message", view.Message})
	}
	fmt.Fprint(out, renderTable([]string{"Field", "Value"}, rows, nil))
	fmt.Fprintln(out)
}
