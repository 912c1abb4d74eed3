package bokat

import (
	"fmt"
	"net/url"
	"strconv"

	"bokat-client/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

type Attendance string

const (
	AttendanceYes         Attendance = "yes"
	AttendanceNo          Attendance = "no"
	AttendanceCommentOnly Attendance = "comment_only"
)

// Reply is a caller-submitted attendance intent, consumed once and never
// persisted.
type Reply struct {
	EventId    string
	UserId     string
	Attendance Attendance
	Guests     int
	Comment    string
}

// ReplyForm is the harvested answer form: its submit target plus every
// hidden input. Hidden fields carry whatever anti-forgery or session
// tokens the server injected, they are replayed verbatim.
type ReplyForm struct {
	ActionUrl    string
	HiddenFields map[string]string
}

// ExtractReplyForm harvests the first form on the answer page. pageUrl is
// used as the submit target when the form declares no action.
func ExtractReplyForm(doc *goquery.Document, base *url.URL, pageUrl string) (ReplyForm, error) {
	form := doc.Find("form").First()
	if form.Length() == 0 {
		return ReplyForm{}, &ParseError{Reason: "answer page has no form"}
	}

	actionUrl := pageUrl
	if action := form.AttrOr("action", ""); action != "" {
		actionUrl = htmlutil.ResolveHref(base, action)
	}

	hidden := map[string]string{}
	form.Find(`input[type="hidden"]`).Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" {
			return
		}
		hidden[name] = input.AttrOr("value", "")
	})

	return ReplyForm{
		ActionUrl:    actionUrl,
		HiddenFields: hidden,
	}, nil
}

// buildReplyFields merges the harvested hidden fields with the
// attendance-specific fields. The field names and button values are
// literal strings the server's own form uses.
func buildReplyFields(form ReplyForm, reply Reply) (map[string]string, error) {
	fields := map[string]string{}
	for name, value := range form.HiddenFields {
		fields[name] = value
	}

	switch reply.Attendance {
	case AttendanceYes:
		fields["accept"] = "Tacka Ja"
		fields["currentStatus"] = "null"
		if reply.Guests > 0 {
			fields["nrOfGuests"] = strconv.Itoa(reply.Guests)
		}
	case AttendanceNo:
		// a decline always zeroes the guest count, whatever the caller sent
		fields["decline"] = "Tacka Nej"
		fields["currentStatus"] = "null"
		fields["nrOfGuests"] = "0"
	case AttendanceCommentOnly:
		// leaves any previously recorded attendance untouched
		fields["onlyComment"] = "Endast kommentar"
	default:
		return nil, fmt.Errorf("invalid attendance value: %q", reply.Attendance)
	}

	if reply.Comment != "" {
		fields["comment"] = reply.Comment
	}
	return fields, nil
}
