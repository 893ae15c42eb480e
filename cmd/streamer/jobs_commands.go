package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"streamer/internal/jobs"
	"streamer/internal/logging"
	"streamer/internal/logs"
	"streamer/internal/status"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect jobs in the job store",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsLogCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter jobs.Status
			if strings.TrimSpace(statusFilter) != "" {
				parsed, err := jobs.ParseStatus(statusFilter)
				if err != nil {
					return err
				}
				filter = parsed
			}

			return ctx.withStore(func(store *jobs.Store) error {
				views, err := status.NewService(store).List(cmd.Context())
				if err != nil {
					return err
				}
				if filter != "" {
					views = filterViews(views, filter)
				}
				if asJSON {
					return writeJSON(cmd, views)
				}
				if len(views) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				table := renderTable(
					[]string{"ID", "File", "Status", "Created", "Message"},
					buildJobListRows(views),
					nil,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Only show jobs with this status")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print jobs as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobs.Store) error {
				view, err := status.NewService(store).Get(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, view)
				}
				printJobDetail(cmd.OutOrStdout(), view)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the job as JSON")
	return cmd
}

func newJobsLogCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "log ID",
		Short: "Print a job's transcode log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			id := strings.TrimSpace(args[0])
			return ctx.withStore(func(store *jobs.Store) error {
				if _, err := store.Get(cmd.Context(), id); err != nil {
					return err
				}
				path := logging.JobLogPath(cfg.JobLogDir(), id)
				out := cmd.OutOrStdout()

				chunk, err := logs.Last(path, lines)
				if err != nil && !errors.Is(err, logs.ErrNoLog) {
					return err
				}
				for _, line := range chunk.Lines {
					fmt.Fprintln(out, line)
				}
				if !follow {
					if errors.Is(err, logs.ErrNoLog) {
						fmt.Fprintln(out, "No log for this job yet")
					}
					return nil
				}

				done := func() bool {
					job, err := store.Get(context.WithoutCancel(cmd.Context()), id)
					return err != nil || job.Status.IsTerminal()
				}
				err = logs.Follow(cmd.Context(), path, chunk.Offset, logs.FollowOptions{
					Interval: 500 * time.Millisecond,
					Done:     done,
				}, func(line string) { fmt.Fprintln(out, line) })
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until the job finishes")
	return cmd
}

func filterViews(views []status.View, want jobs.Status) []status.View {
	out := make([]status.View, 0, len(views))
	for _, v := range views {
		if v.Status == string(want) {
			out = append(out, v)
		}
	}
	return out
}
