package bokat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const answerPage = `<html><body>
<form action="answer.jsp" method="post">
<input type="hidden" name="token" value="abc123">
<input type="hidden" name="eventId" value="111">
<input type="hidden" name="userId" value="901">
<input type="text" name="comment" value="">
<input type="submit" name="accept" value="Tacka Ja">
<input type="submit" name="decline" value="Tacka Nej">
</form>
</body></html>`

func TestExtractReplyForm(t *testing.T) {
	form, err := ExtractReplyForm(
		mustDoc(t, answerPage), testBaseUrl(t),
		"https://www.bokat.se/answer.jsp?eventId=111&userId=901")
	require.NoError(t, err)

	require.Equal(t, "https://www.bokat.se/answer.jsp", form.ActionUrl)
	require.Equal(t, map[string]string{
		"token":   "abc123",
		"eventId": "111",
		"userId":  "901",
	}, form.HiddenFields)
}

func TestExtractReplyFormNoAction(t *testing.T) {
	page := `<html><body><form method="post">
<input type="hidden" name="token" value="t">
</form></body></html>`

	pageUrl := "https://www.bokat.se/answer.jsp?eventId=1&userId=2"
	form, err := ExtractReplyForm(mustDoc(t, page), testBaseUrl(t), pageUrl)
	require.NoError(t, err)
	require.Equal(t, pageUrl, form.ActionUrl)
}

func TestExtractReplyFormMissing(t *testing.T) {
	page := `<html><body><p>Tillfälligt fel.</p></body></html>`

	_, err := ExtractReplyForm(mustDoc(t, page), testBaseUrl(t), "https://www.bokat.se/answer.jsp")
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestBuildReplyFields(t *testing.T) {
	form := ReplyForm{
		ActionUrl:    "https://www.bokat.se/answer.jsp",
		HiddenFields: map[string]string{"token": "abc123"},
	}

	cases := []struct {
		name  string
		reply Reply
		want  map[string]string
	}{
		{
			name:  "accept with guests",
			reply: Reply{Attendance: AttendanceYes, Guests: 2, Comment: "Tar med sallad"},
			want: map[string]string{
				"token":         "abc123",
				"accept":        "Tacka Ja",
				"currentStatus": "null",
				"nrOfGuests":    "2",
				"comment":       "Tar med sallad",
			},
		},
		{
			name:  "accept without guests omits the guest field",
			reply: Reply{Attendance: AttendanceYes},
			want: map[string]string{
				"token":         "abc123",
				"accept":        "Tacka Ja",
				"currentStatus": "null",
			},
		},
		{
			name: "decline forces the guest count to zero",
			// the caller's guest count is irrelevant on a decline
			reply: Reply{Attendance: AttendanceNo, Guests: 5},
			want: map[string]string{
				"token":         "abc123",
				"decline":       "Tacka Nej",
				"currentStatus": "null",
				"nrOfGuests":    "0",
			},
		},
		{
			name:  "comment only",
			reply: Reply{Attendance: AttendanceCommentOnly, Comment: "Vet inte än"},
			want: map[string]string{
				"token":       "abc123",
				"onlyComment": "Endast kommentar",
				"comment":     "Vet inte än",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fields, err := buildReplyFields(form, tc.reply)
			require.NoError(t, err)
			require.Equal(t, tc.want, fields)
		})
	}
}

func TestBuildReplyFieldsInvalidAttendance(t *testing.T) {
	_, err := buildReplyFields(ReplyForm{}, Reply{Attendance: "maybe"})
	require.Error(t, err)
}

// harvested hidden fields never get clobbered silently by accident, but
// attendance fields do take precedence when the form pre-fills them
func TestBuildReplyFieldsOverridesPrefill(t *testing.T) {
	form := ReplyForm{HiddenFields: map[string]string{
		"currentStatus": "accepted",
		"nrOfGuests":    "4",
	}}

	fields, err := buildReplyFields(form, Reply{Attendance: AttendanceNo})
	require.NoError(t, err)
	require.Equal(t, "null", fields["currentStatus"])
	require.Equal(t, "0", fields["nrOfGuests"])
}
