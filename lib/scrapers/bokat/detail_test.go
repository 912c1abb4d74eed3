package bokat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const detailPage = `<html>
<head><title>Bokat.se - Fredagsmiddag</title></head>
<body>
<h1>Fredagsmiddag</h1>
<div class="status">Du har tackat ja</div>
<a href="answer.jsp?eventId=111&amp;userId=901">Svara</a>
<table>
<tr>
  <td class="TextSmall" align="left"><b>Namn</b></td>
  <td class="TextSmall" align="left"><b>Status</b></td>
</tr>
<tr>
  <td class="TextSmall" align="left">Anna Andersson<br>(2026-05-01 12:00)</td>
  <td class="TextSmall" align="left"><font color="green">Ja!</font></td>
  <td class="TextSmall" align="left" width="50"> +2 </td>
  <td class="TextSmall">Tar med sallad</td>
</tr>
<tr>
  <td class="TextSmall" align="left">Bertil Berg<br>(2026-05-02 09:30)</td>
  <td class="TextSmall" align="left"><font color="red">Nej!</font></td>
  <td class="TextSmall" align="left" width="50">&nbsp;</td>
  <td class="TextSmall">&nbsp;</td>
</tr>
<tr>
  <td class="TextSmall" align="left">Cecilia Ceder</td>
  <td class="TextSmall" align="left">&nbsp;</td>
  <td class="TextSmall" align="left" width="50">&nbsp;</td>
  <td class="TextSmall">Vet inte än, återkommer</td>
</tr>
</table>
</body>
</html>`

const detailUrl = "https://www.bokat.se/stat.jsp?eventId=111&userId=901"

func TestExtractActivityDetail(t *testing.T) {
	detail, err := ExtractActivityDetail(context.Background(), mustDoc(t, detailPage), testBaseUrl(t), detailUrl)
	require.NoError(t, err)

	require.Equal(t, "Fredagsmiddag", detail.Name)
	require.Equal(t, "111", detail.EventId)
	require.Equal(t, "901", detail.UserId)
	require.Equal(t, "Du har tackat ja", detail.Status)
	require.Contains(t, detail.AnswerUrl, "answer.jsp")

	require.Len(t, detail.Participants, 3)

	anna := detail.Participants[0]
	require.Equal(t, "Anna Andersson", anna.Name)
	require.Equal(t, StatusAttending, anna.Status)
	require.Equal(t, 2, anna.Guests)
	require.Equal(t, "Tar med sallad", anna.Comment)
	require.Equal(t, "2026-05-01 12:00", anna.Timestamp)

	bertil := detail.Participants[1]
	require.Equal(t, StatusNotAttending, bertil.Status)
	require.Equal(t, 0, bertil.Guests)
	// a cell holding only a non-breaking space is an empty comment
	require.Equal(t, "", bertil.Comment)

	cecilia := detail.Participants[2]
	require.Equal(t, StatusCommentOnly, cecilia.Status)
	require.Equal(t, "Vet inte än, återkommer", cecilia.Comment)
}

func TestExtractActivityDetailCounts(t *testing.T) {
	detail, err := ExtractActivityDetail(context.Background(), mustDoc(t, detailPage), testBaseUrl(t), detailUrl)
	require.NoError(t, err)

	require.Equal(t, 3, detail.TotalParticipants)
	require.Equal(t, 1, detail.AttendingCount)
	// comment-only answers count as not attending
	require.Equal(t, 2, detail.NotAttendingCount)
	require.Equal(t, 0, detail.NoResponseCount)
	require.Equal(t, 2, detail.TotalGuests)
	require.Equal(t, 3, detail.TotalAttendance())

	sum := detail.AttendingCount + detail.NotAttendingCount + detail.NoResponseCount
	require.Equal(t, detail.TotalParticipants, sum)
}

// the summary line is a cross-check only, the roster always wins when the
// two disagree
func TestExtractActivityDetailSummaryDisagreement(t *testing.T) {
	page := `<html><body>
<h1>Fredagsmiddag</h1>
<p>Av 3 inbjudna har 2 tackat ja, 1 nej och 0 har inte svarat.</p>
<table>
<tr>
  <td class="TextSmall" align="left">Anna Andersson</td>
  <td class="TextSmall" align="left"><font color="green">Ja!</font></td>
</tr>
</table>
</body></html>`

	detail, err := ExtractActivityDetail(context.Background(), mustDoc(t, page), testBaseUrl(t), detailUrl)
	require.NoError(t, err)
	require.Equal(t, 1, detail.TotalParticipants)
	require.Equal(t, 1, detail.AttendingCount)
}

func TestExtractActivityDetailTitleFallback(t *testing.T) {
	page := `<html>
<head><title>Bokat.se - Krympning</title></head>
<body>
<table>
<tr>
  <td class="TextSmall" align="left">Anna Andersson</td>
  <td class="TextSmall" align="left"><font color="green">Ja!</font></td>
</tr>
</table>
</body></html>`

	detail, err := ExtractActivityDetail(context.Background(), mustDoc(t, page), testBaseUrl(t), detailUrl)
	require.NoError(t, err)
	require.Equal(t, "Krympning", detail.Name)
}

func TestExtractActivityDetailMissingTitle(t *testing.T) {
	page := `<html><body><p>Tillfälligt fel.</p></body></html>`

	_, err := ExtractActivityDetail(context.Background(), mustDoc(t, page), testBaseUrl(t), detailUrl)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
}

// guests attached to a declined row are markup noise and must not leak
// into the guest total
func TestExtractActivityDetailGuestsOnlyWhenAttending(t *testing.T) {
	page := `<html><body>
<h1>Utflykt</h1>
<table>
<tr>
  <td class="TextSmall" align="left">Bertil Berg</td>
  <td class="TextSmall" align="left"><font color="red">Nej!</font></td>
  <td class="TextSmall" align="left" width="50">+3</td>
</tr>
</table>
</body></html>`

	detail, err := ExtractActivityDetail(context.Background(), mustDoc(t, page), testBaseUrl(t), detailUrl)
	require.NoError(t, err)
	require.Equal(t, 0, detail.TotalGuests)
	require.Equal(t, 0, detail.Participants[0].Guests)
}

// fallback roster walk for pages without the usual cell classes; the
// decline marker is checked first so "Kommer inte" never reads as a yes
func TestExtractActivityDetailTableFallback(t *testing.T) {
	page := `<html><body>
<h1>Utflykt</h1>
<table>
<tr><td>Anna Andersson</td><td>Kommer +1</td><td></td></tr>
<tr><td>Bertil Berg</td><td>Kommer inte</td><td></td></tr>
<tr><td>Cecilia Ceder</td><td>Endast kommentar</td><td>Kanske nästa gång</td></tr>
</table>
</body></html>`

	detail, err := ExtractActivityDetail(context.Background(), mustDoc(t, page), testBaseUrl(t), detailUrl)
	require.NoError(t, err)
	require.Len(t, detail.Participants, 3)
	require.Equal(t, StatusAttending, detail.Participants[0].Status)
	require.Equal(t, 1, detail.Participants[0].Guests)
	require.Equal(t, StatusNotAttending, detail.Participants[1].Status)
	require.Equal(t, StatusCommentOnly, detail.Participants[2].Status)
}

func TestParseSummaryLine(t *testing.T) {
	page := `<html><body>
<p><b>Sammanställning:</b> Av 12 inbjudna har 7 tackat ja, 3 nej och 2 har inte svarat.</p>
<p>4 gäster/extra</p>
</body></html>`
	summary, ok := parseSummaryLine(mustDoc(t, page))
	require.True(t, ok)
	require.Equal(t, 12, summary.invited)
	require.Equal(t, 7, summary.attending)
	require.Equal(t, 3, summary.notAttending)
	require.Equal(t, 2, summary.noResponse)
	require.Equal(t, 4, summary.guests)
}
