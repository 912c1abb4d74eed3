package htmlutil_test

import (
	"net/url"
	"strings"
	"testing"

	"bokat-client/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestGetTextSegments(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<table><tr><td>Anna Andersson<br>(2026-05-01 12:00)</td></tr></table>`))
	require.NoError(t, err)

	cell := doc.Find("td").First()
	require.Equal(t, 1, cell.Length())

	segments := htmlutil.GetTextSegments(cell.Nodes[0])
	require.Equal(t, []string{"Anna Andersson", "(2026-05-01 12:00)"}, segments)
}

func TestGetTextSegmentsNoBreaks(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<table><tr><td><b>Anna</b></td></tr></table>`))
	require.NoError(t, err)

	segments := htmlutil.GetTextSegments(doc.Find("td").Nodes[0])
	require.Equal(t, []string{"Anna"}, segments)
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "Anna Andersson", htmlutil.CleanText("  Anna \n\n Andersson "))
}

func TestResolveHref(t *testing.T) {
	base, err := url.Parse("https://www.bokat.se")
	require.NoError(t, err)

	require.Equal(t,
		"https://www.bokat.se/stat.jsp?eventId=1&userId=2",
		htmlutil.ResolveHref(base, "stat.jsp?eventId=1&userId=2"))
	require.Equal(t,
		"https://www.bokat.se/stat.jsp",
		htmlutil.ResolveHref(base, "https://www.bokat.se/stat.jsp"))
	require.Equal(t, "stat.jsp", htmlutil.ResolveHref(nil, "stat.jsp"))
}
