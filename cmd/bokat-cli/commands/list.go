package commands

import (
	"encoding/json"
	"os"

	"bokat-client/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the activities of the configured user.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient(cmd.Context())

		activities, err := client.ListActivities(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list activities", err)
		}

		if *outputJson {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(activities); err != nil {
				serviceutil.Fatal("failed to encode activities", err)
			}
			return
		}

		t := newTable()
		t.AppendHeader(table.Row{"Event", "Activity", "Group", "Time"})
		for _, a := range activities {
			t.AppendRow(table.Row{a.EventId, a.Name, a.Group, a.Time})
		}
		t.Render()
	},
}
