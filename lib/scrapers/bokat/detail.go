package bokat

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"bokat-client/lib/htmlutil"
	"bokat-client/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type ParticipantStatus string

const (
	StatusAttending    ParticipantStatus = "attending"
	StatusNotAttending ParticipantStatus = "not_attending"
	StatusCommentOnly  ParticipantStatus = "comment_only"
	StatusNoResponse   ParticipantStatus = "no_response"
)

// Participant is one roster row, in page order. Page order is meaningful
// and preserved.
type Participant struct {
	Name      string
	Status    ParticipantStatus
	Comment   string
	Timestamp string
	Guests    int
}

// ActivityDetail is the stat page for one activity. The counts are always
// recomputed from Participants, never taken from the page's own summary
// line: the two have been observed to disagree and the roster is the
// source of truth. Comment-only replies are tallied under
// NotAttendingCount. Guests stay separate from AttendingCount,
// TotalAttendance derives the combined figure for display.
type ActivityDetail struct {
	Activity

	Status       string
	AnswerUrl    string
	Participants []Participant

	TotalParticipants int
	AttendingCount    int
	NotAttendingCount int
	NoResponseCount   int
	TotalGuests       int
}

func (d ActivityDetail) TotalAttendance() int {
	return d.AttendingCount + d.TotalGuests
}

var guestCountRegex = regexp.MustCompile(`\+\s*(\d+)`)
var timestampRegex = regexp.MustCompile(`\((.*?)\)`)

// ExtractActivityDetail parses a stat page into an ActivityDetail.
// pageUrl is the url the page was fetched from, used to recover
// EventId/UserId and to resolve relative links.
func ExtractActivityDetail(ctx context.Context, doc *goquery.Document, base *url.URL, pageUrl string) (ActivityDetail, error) {
	ctx, span := tracer.Start(ctx, "ExtractActivityDetail")
	defer span.End()

	sl := parseStatLink(base, pageUrl)
	detail := ActivityDetail{
		Activity: Activity{
			Url:     pageUrl,
			EventId: sl.eventId,
			UserId:  sl.userId,
		},
	}

	name := htmlutil.CleanText(doc.Find("h1").First().Text())
	if name == "" {
		title := doc.Find("title").Text()
		if i := strings.Index(title, " - "); i >= 0 {
			title = title[i+3:]
		}
		name = htmlutil.CleanText(title)
	}
	if name == "" {
		span.SetStatus(codes.Error, "no title found")
		return detail, &ParseError{Reason: "detail page is missing an activity title"}
	}
	detail.Name = name

	status := doc.Find("div.status").First().Text()
	if status == "" {
		doc.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
			if !strings.Contains(td.Text(), "Status:") {
				return true
			}
			if v, ok := siblingValue(td); ok {
				status = v
				return false
			}
			return true
		})
	}
	detail.Status = textutil.CleanCell(status)

	detail.AnswerUrl = findAnswerUrl(doc, base)

	participants := scanRosterRows(doc)
	if len(participants) == 0 && !IsLoginPage(doc) {
		// tolerant structural walk for older table layouts
		participants = walkRosterTables(doc)
	}
	detail.Participants = participants
	tallyParticipants(&detail)

	if summary, ok := parseSummaryLine(doc); ok {
		if summary.attending != detail.AttendingCount ||
			summary.notAttending != detail.NotAttendingCount ||
			summary.noResponse != detail.NoResponseCount {
			slog.WarnContext(
				ctx, "page summary line disagrees with roster, keeping roster counts",
				"summary_attending", summary.attending,
				"summary_not_attending", summary.notAttending,
				"summary_no_response", summary.noResponse,
				"roster_attending", detail.AttendingCount,
				"roster_not_attending", detail.NotAttendingCount,
				"roster_no_response", detail.NoResponseCount,
			)
		}
	}

	if detail.AttendingCount+detail.NotAttendingCount+detail.NoResponseCount != detail.TotalParticipants {
		span.SetStatus(codes.Error, "attendance counts do not reconcile")
		return detail, &ParseError{Reason: "attendance counts do not reconcile with the roster"}
	}

	span.SetAttributes(attribute.Int("participants", detail.TotalParticipants))
	return detail, nil
}

func findAnswerUrl(doc *goquery.Document, base *url.URL) string {
	answerUrl := ""
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := a.AttrOr("href", "")
		if href == "" {
			return true
		}
		if strings.Contains(href, "answer.jsp") || strings.Contains(href, "statAnswer.jsp") ||
			htmlutil.CleanText(a.Text()) == "Svara" {
			answerUrl = htmlutil.ResolveHref(base, href)
			return false
		}
		return true
	})
	return answerUrl
}

var headerCellNames = []string{"namn", "name", "status"}

// scanRosterRows is the primary roster pass, written against the markup
// the site emits today: participant rows carry td.TextSmall cells, the
// status is a colored "Ja!" / "Nej!" marker, the guest count is a "+N"
// token in a fixed-width cell, and the name cell stacks the name over a
// "(timestamp)" line behind a <br>.
func scanRosterRows(doc *goquery.Document) []Participant {
	var participants []Participant

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		nameCell := row.Find(`td.TextSmall[align="left"]`).First()
		if nameCell.Length() == 0 {
			return
		}

		segments := htmlutil.GetTextSegments(nameCell.Nodes[0])
		if len(segments) == 0 {
			return
		}
		name := textutil.CleanCell(segments[0])
		if name == "" || name == "Ja!" || name == "Nej!" {
			return
		}
		if textutil.MatchName(name, headerCellNames) && len(name) < 8 {
			return
		}

		timestamp := ""
		if len(segments) > 1 {
			rest := strings.Join(segments[1:], " ")
			if groups := timestampRegex.FindStringSubmatch(rest); len(groups) == 2 {
				timestamp = textutil.CleanCell(groups[1])
			}
		}

		attending := strings.Contains(row.Find(`font[color="green"]`).Text(), "Ja")
		notAttending := strings.Contains(row.Find(`font[color="red"]`).Text(), "Nej")

		guests := 0
		if attending {
			guestCell := row.Find(`td.TextSmall[width="50"]`).First()
			if groups := guestCountRegex.FindStringSubmatch(guestCell.Text()); len(groups) == 2 {
				guests, _ = strconv.Atoi(groups[1])
			}
		}

		comment := ""
		row.Find("td.TextSmall").EachWithBreak(func(_ int, td *goquery.Selection) bool {
			_, hasAlign := td.Attr("align")
			_, hasWidth := td.Attr("width")
			if hasAlign || hasWidth {
				return true
			}
			comment = textutil.CleanCell(td.Text())
			return false
		})

		participants = append(participants, Participant{
			Name:      name,
			Status:    classifyStatus(attending, notAttending, comment),
			Comment:   comment,
			Timestamp: timestamp,
			Guests:    guests,
		})
	})

	return participants
}

func classifyStatus(attending, notAttending bool, comment string) ParticipantStatus {
	switch {
	case attending:
		return StatusAttending
	case notAttending:
		return StatusNotAttending
	case comment != "":
		// a reply with a comment but no attendance marker is a real
		// reply, it must not be miscounted as "never responded"
		return StatusCommentOnly
	default:
		return StatusNoResponse
	}
}

var notAttendingMarkers = []string{"nej!", "kommerinte"}
var attendingMarkers = []string{"ja!", "kommer"}
var commentOnlyMarkers = []string{"endastkommentar"}

// walkRosterTables is the fallback roster pass: a plain cell-position
// walk over every table, for page revisions that dropped the TextSmall
// styling. Cells are name / status / comment / timestamp.
func walkRosterTables(doc *goquery.Document) []Participant {
	var participants []Participant

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		name := textutil.CleanCell(cells.Eq(0).Text())
		statusText := cells.Eq(1).Text()
		comment := textutil.CleanCell(cells.Eq(2).Text())
		timestamp := ""
		if cells.Length() > 3 {
			timestamp = textutil.CleanCell(cells.Eq(3).Text())
		}

		if name == "" {
			return
		}
		if textutil.MatchName(name, headerCellNames) && len(name) < 8 {
			return
		}

		var status ParticipantStatus
		guests := 0
		switch {
		// "Kommer inte" contains "Kommer", check the negative first
		case textutil.MatchName(statusText, notAttendingMarkers):
			status = StatusNotAttending
		case textutil.MatchName(statusText, attendingMarkers):
			status = StatusAttending
			if groups := guestCountRegex.FindStringSubmatch(statusText); len(groups) == 2 {
				guests, _ = strconv.Atoi(groups[1])
			}
		case textutil.MatchName(statusText, commentOnlyMarkers):
			status = StatusCommentOnly
		default:
			status = classifyStatus(false, false, comment)
		}

		participants = append(participants, Participant{
			Name:      name,
			Status:    status,
			Comment:   comment,
			Timestamp: timestamp,
			Guests:    guests,
		})
	})

	return participants
}

func tallyParticipants(detail *ActivityDetail) {
	detail.TotalParticipants = len(detail.Participants)
	detail.AttendingCount = 0
	detail.NotAttendingCount = 0
	detail.NoResponseCount = 0
	detail.TotalGuests = 0

	for _, p := range detail.Participants {
		switch p.Status {
		case StatusAttending:
			detail.AttendingCount++
			detail.TotalGuests += p.Guests
		case StatusNotAttending, StatusCommentOnly:
			detail.NotAttendingCount++
		case StatusNoResponse:
			detail.NoResponseCount++
		}
	}
}

type summaryLine struct {
	invited      int
	attending    int
	notAttending int
	noResponse   int
	guests       int
}

var summaryRegex = regexp.MustCompile(
	`Av\s+(\d+)\s+inbjudna\s+har\s+(\d+)\s+tackat\s+ja,\s+(\d+)\s+nej\s+och\s+(\d+)\s+har\s+inte\s+svarat`)
var summaryGuestsRegex = regexp.MustCompile(`(\d+)\s+gäster/extra`)

// parseSummaryLine reads the page's own "Sammanställning" line. Only used
// as a cross-check against the recomputed roster counts.
func parseSummaryLine(doc *goquery.Document) (summaryLine, bool) {
	text := doc.Text()
	groups := summaryRegex.FindStringSubmatch(text)
	if len(groups) != 5 {
		return summaryLine{}, false
	}
	var out summaryLine
	out.invited, _ = strconv.Atoi(groups[1])
	out.attending, _ = strconv.Atoi(groups[2])
	out.notAttending, _ = strconv.Atoi(groups[3])
	out.noResponse, _ = strconv.Atoi(groups[4])
	if g := summaryGuestsRegex.FindStringSubmatch(text); len(g) == 2 {
		out.guests, _ = strconv.Atoi(g[1])
	}
	return out, true
}
