package bokat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"bokat-client/lib/htmlutil"
	"bokat-client/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Activity is one row of the user's activity listing. EventId/UserId come
// from the detail link's query string and are the stable identity of an
// activity-for-a-user; Name and Group can collide across groups.
type Activity struct {
	Name    string
	Group   string
	Url     string
	EventId string
	UserId  string
	// free-text, e.g. "Torsdag 18:00", may be empty
	Time string
}

var eventIdRegex = regexp.MustCompile(`eventId=(\d+)`)
var userIdRegex = regexp.MustCompile(`userId=(\d+)`)

type statLink struct {
	url     string
	eventId string
	userId  string
}

func parseStatLink(base *url.URL, href string) statLink {
	resolved := htmlutil.ResolveHref(base, href)

	out := statLink{url: resolved}
	link, err := url.Parse(resolved)
	if err == nil {
		query := link.Query()
		out.eventId = query.Get("eventId")
		out.userId = query.Get("userId")
	}

	// legacy pages occasionally mangle query separators, fall back on a
	// pattern scan over the raw href
	if out.eventId == "" {
		if groups := eventIdRegex.FindStringSubmatch(resolved); len(groups) == 2 {
			out.eventId = groups[1]
		}
	}
	if out.userId == "" {
		if groups := userIdRegex.FindStringSubmatch(resolved); len(groups) == 2 {
			out.userId = groups[1]
		}
	}
	return out
}

// ExtractActivities pulls the activity listing out of an authenticated
// page. The markup has changed across site revisions, so extraction is a
// chain of increasingly desperate passes, each only attempted when the
// previous one found nothing. Zero activities on a page with
// authenticated markers is a valid result, not an error.
func ExtractActivities(ctx context.Context, doc *goquery.Document, base *url.URL) ([]Activity, error) {
	ctx, span := tracer.Start(ctx, "ExtractActivities")
	defer span.End()

	passes := []struct {
		name string
		run  func(context.Context, *goquery.Document, *url.URL) []Activity
	}{
		{"label_rows", scanLabelRows},
		{"section_rows", scanSectionRows},
		{"bare_links", scanBareLinks},
		{"embedded_script", scanEmbeddedScript},
	}
	for _, pass := range passes {
		activities := pass.run(ctx, doc, base)
		if len(activities) > 0 {
			span.SetAttributes(
				attribute.String("pass", pass.name),
				attribute.Int("count", len(activities)),
			)
			return activities, nil
		}
	}

	if IsAuthenticatedPage(doc) {
		slog.WarnContext(ctx, "no activities found on an otherwise valid page")
		return nil, nil
	}
	span.SetStatus(codes.Error, "no activities and no authenticated markers")
	return nil, &ParseError{Reason: "listing page has neither activities nor authenticated markers"}
}

func siblingValue(td *goquery.Selection) (string, bool) {
	next := td.NextFiltered("td")
	if next.Length() == 0 {
		return "", false
	}
	return textutil.CleanCell(next.Text()), true
}

// scanLabelRows is the primary pass: the listing interleaves
// "Grupp:" / "Aktivitet:" / "Tid:" label cells with their values in the
// adjacent cell, while the detail links sit in separate rows. There is no
// foreign key between the two, the only association is document order, so
// names are zipped to links positionally. Group labels do not nest 1:1
// with activities, several activities can share the nearest preceding
// group.
func scanLabelRows(_ context.Context, doc *goquery.Document, base *url.URL) []Activity {
	type labelled struct {
		name  string
		group string
		time  string
	}
	var found []labelled
	currentGroup := ""
	currentTime := ""

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		row.Find("td").Each(func(_ int, td *goquery.Selection) {
			label := textutil.CleanCell(td.Text())
			switch {
			case strings.Contains(label, "Grupp:"):
				if v, ok := siblingValue(td); ok && v != "" {
					currentGroup = v
				}
			case strings.Contains(label, "Tid:"):
				if v, ok := siblingValue(td); ok && v != "" {
					currentTime = v
				}
			case strings.Contains(label, "Aktivitet:"):
				v, ok := siblingValue(td)
				if ok && v != "" {
					found = append(found, labelled{name: v, group: currentGroup, time: currentTime})
					// the time label belongs to one activity block, the
					// group carries until the next group label
					currentTime = ""
				}
			}
		})
	})

	links := collectDetailLinks(doc, base)

	// positional zip: when label count and link count diverge the
	// trailing unmatched entries are dropped, never fabricated
	n := len(found)
	if len(links) < n {
		n = len(links)
	}
	activities := make([]Activity, 0, n)
	for i := 0; i < n; i++ {
		activities = append(activities, Activity{
			Name:    found[i].name,
			Group:   found[i].group,
			Time:    found[i].time,
			Url:     links[i].url,
			EventId: links[i].eventId,
			UserId:  links[i].userId,
		})
	}
	return activities
}

func collectDetailLinks(doc *goquery.Document, base *url.URL) []statLink {
	var links []statLink
	doc.Find(`a[href*="stat.jsp"]`).Each(func(_ int, a *goquery.Selection) {
		links = append(links, parseStatLink(base, a.AttrOr("href", "")))
	})
	return links
}

// scanSectionRows keys off the explicit activity section instead of the
// label markers: any table mentioning the activity header is walked row
// by row and each row holding a detail link becomes one activity. Group
// and time are unknown in this form.
func scanSectionRows(_ context.Context, doc *goquery.Document, base *url.URL) []Activity {
	var activities []Activity
	seen := map[string]bool{}

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		text := table.Text()
		if !strings.Contains(text, "Aktivitet") && !strings.Contains(text, "Mina aktiviteter") {
			return
		}
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			link := row.Find(`a[href*="stat.jsp"], a[href*="eventId="]`).First()
			if link.Length() == 0 {
				return
			}
			sl := parseStatLink(base, link.AttrOr("href", ""))
			if sl.eventId == "" || seen[sl.url] {
				return
			}
			name := htmlutil.CleanText(link.Text())
			if name == "" {
				name = textutil.CleanCell(row.Find("td").First().Text())
			}
			if name == "" {
				return
			}
			seen[sl.url] = true
			activities = append(activities, Activity{
				Name:    name,
				Url:     sl.url,
				EventId: sl.eventId,
				UserId:  sl.userId,
			})
		})
	})
	return activities
}

// scanBareLinks pairs every detail-style link in the document with its
// own link text. Last structural resort before digging through scripts.
func scanBareLinks(ctx context.Context, doc *goquery.Document, base *url.URL) []Activity {
	var activities []Activity
	seen := map[string]bool{}

	anchors := htmlutil.GetAnchors(ctx, doc.Find(`a[href*="stat.jsp"], a[href*="eventId="]`))
	for _, anchor := range anchors {
		sl := parseStatLink(base, anchor.Href)
		if sl.eventId == "" || seen[sl.url] || anchor.Name == "" {
			continue
		}
		seen[sl.url] = true
		activities = append(activities, Activity{
			Name:    anchor.Name,
			Url:     sl.url,
			EventId: sl.eventId,
			UserId:  sl.userId,
		})
	}
	return activities
}

var scriptPayloadRegex = regexp.MustCompile(`(?s)"(?:activities|events)"\s*:\s*(\[.*?\])`)

// scanEmbeddedScript digs a structured payload out of inline script
// content, some page revisions shipped the listing as json for a widget.
func scanEmbeddedScript(_ context.Context, doc *goquery.Document, base *url.URL) []Activity {
	var activities []Activity

	for _, script := range doc.Find("script").Nodes {
		text := htmlutil.GetText(script)
		groups := scriptPayloadRegex.FindStringSubmatch(text)
		if len(groups) < 2 {
			continue
		}

		var payload []struct {
			Name    string `json:"name"`
			Group   string `json:"group"`
			Url     string `json:"url"`
			EventId string `json:"eventId"`
			UserId  string `json:"userId"`
			Time    string `json:"time"`
		}
		err := json.Unmarshal([]byte(groups[1]), &payload)
		if err != nil {
			continue
		}

		for _, entry := range payload {
			if entry.Name == "" {
				continue
			}
			act := Activity{
				Name:    entry.Name,
				Group:   entry.Group,
				Time:    entry.Time,
				EventId: entry.EventId,
				UserId:  entry.UserId,
			}
			if entry.Url != "" {
				sl := parseStatLink(base, entry.Url)
				act.Url = sl.url
				if act.EventId == "" {
					act.EventId = sl.eventId
				}
				if act.UserId == "" {
					act.UserId = sl.userId
				}
			}
			activities = append(activities, act)
		}
		if len(activities) > 0 {
			return activities
		}
	}
	return activities
}
