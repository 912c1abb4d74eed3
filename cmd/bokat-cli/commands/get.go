package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"bokat-client/lib/scrapers/bokat"
	"bokat-client/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <event id, activity name or stat.jsp url>",
	Short: "Shows the participant roster and attendance counts of one activity.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient(cmd.Context())

		var detail bokat.ActivityDetail
		var err error
		if strings.HasPrefix(args[0], "http://") || strings.HasPrefix(args[0], "https://") {
			detail, err = client.GetActivityDetailByUrl(cmd.Context(), args[0])
		} else {
			var activity bokat.Activity
			activity, err = resolveActivity(cmd.Context(), client, args[0])
			if err != nil {
				serviceutil.Fatal("failed to resolve activity", err)
			}
			detail, err = client.GetActivityDetail(cmd.Context(), activity)
		}
		if err != nil {
			serviceutil.Fatal("failed to fetch activity", err)
		}

		if *outputJson {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(detail); err != nil {
				serviceutil.Fatal("failed to encode activity", err)
			}
			return
		}

		fmt.Printf("%s (%s)\n", detail.Name, detail.Group)
		if detail.Time != "" {
			fmt.Printf("Time: %s\n", detail.Time)
		}
		if detail.Status != "" {
			fmt.Printf("Your status: %s\n", detail.Status)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Name", "Status", "Guests", "Comment", "Replied"})
		for _, p := range detail.Participants {
			t.AppendRow(table.Row{p.Name, p.Status, p.Guests, p.Comment, p.Timestamp})
		}
		t.AppendFooter(table.Row{
			fmt.Sprintf("%d invited", detail.TotalParticipants),
			fmt.Sprintf("%d yes / %d no / %d silent",
				detail.AttendingCount, detail.NotAttendingCount, detail.NoResponseCount),
			detail.TotalGuests,
			fmt.Sprintf("%d attending in total", detail.TotalAttendance()),
			"",
		})
		t.Render()
	},
}
