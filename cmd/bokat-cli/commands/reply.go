package commands

import (
	"log/slog"

	"bokat-client/lib/scrapers/bokat"
	"bokat-client/lib/serviceutil"

	"github.com/spf13/cobra"
)

var replyAttendance *string
var replyGuests *int
var replyComment *string

func init() {
	replyAttendance = replyCmd.Flags().String(
		"attendance", "", "One of: yes, no, comment_only.")
	replyGuests = replyCmd.Flags().Int(
		"guests", 0, "Number of extra guests you bring along, only honored with --attendance yes.")
	replyComment = replyCmd.Flags().String("comment", "", "An optional comment.")
	_ = replyCmd.MarkFlagRequired("attendance")
	rootCmd.AddCommand(replyCmd)
}

var replyCmd = &cobra.Command{
	Use:   "reply <event id or activity name> --attendance yes|no|comment_only [--guests <n>] [--comment <text>]",
	Short: "Submits an attendance reply for one activity.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient(cmd.Context())

		activity, err := resolveActivity(cmd.Context(), client, args[0])
		if err != nil {
			serviceutil.Fatal("failed to resolve activity", err)
		}

		err = client.SubmitReply(cmd.Context(), bokat.Reply{
			EventId:    activity.EventId,
			UserId:     activity.UserId,
			Attendance: bokat.Attendance(*replyAttendance),
			Guests:     *replyGuests,
			Comment:    *replyComment,
		})
		if err != nil {
			serviceutil.Fatal("failed to submit reply", err)
		}
		slog.Info("reply submitted",
			"activity", activity.Name,
			"attendance", *replyAttendance,
			"guests", *replyGuests,
		)
	},
}
