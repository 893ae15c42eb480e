package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"streamer/internal/jobs"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server load and job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			health, err := ctx.newClient().Health(cmd.Context())
			if asJSON {
				if err != nil {
					return err
				}
				return writeJSON(cmd, health)
			}

			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Server", colorize) {
				fmt.Fprintln(out, line)
			}
			if err != nil {
				if !isConnectError(err) {
					return err
				}
				fmt.Fprintln(out, renderStatusLine("Streamer", statusError, "Not running ("+ctx.serverURL()+")", colorize))
				return nil
			}
			fmt.Fprintln(out, renderStatusLine("Streamer", statusOK, "Running ("+ctx.serverURL()+")", colorize))
			fmt.Fprintln(out, renderStatusLine("Workers", statusInfo, strconv.Itoa(health.Workers), colorize))
			fmt.Fprintln(out, renderStatusLine("In flight", statusInfo, strconv.Itoa(health.InFlight), colorize))
			pendingKind := statusInfo
			if health.Pending > 0 {
				pendingKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Pending", pendingKind, strconv.Itoa(health.Pending), colorize))
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Jobs", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprint(out, renderTable([]string{"Status", "Count"}, buildStatusCountRows(health.Jobs), []columnAlignment{alignLeft, alignRight}))
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the health response as JSON")
	return cmd
}

// buildStatusCountRows lists statuses in lifecycle order.
func buildStatusCountRows(stats map[string]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, s := range jobs.AllStatuses() {
		rows = append(rows, []string{formatStatusLabel(string(s)), strconv.Itoa(stats[string(s)])})
	}
	return rows
}
