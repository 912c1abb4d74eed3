package bokat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ListActivities logs in if needed and returns the user's activity
// listing. A fresh login already answers with the listing page, so the
// first call after authentication costs no extra fetch. An empty result
// on a valid authenticated page is returned as-is (the user genuinely has
// no activities), only logged.
func (c *Client) ListActivities(ctx context.Context) ([]Activity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := tracer.Start(ctx, "client:ListActivities")
	defer span.End()

	var doc *goquery.Document
	if !c.authenticated {
		d, err := c.login(ctx)
		if err != nil {
			span.SetStatus(codes.Error, "login failed")
			return nil, err
		}
		doc = d
	} else {
		d, err := c.getDoc(ctx, "/myActivities.jsp")
		if err != nil {
			span.SetStatus(codes.Error, "failed to fetch listing")
			return nil, err
		}
		if IsLoginPage(d) {
			slog.DebugContext(ctx, "session expired, logging in again")
			d, err = c.login(ctx)
			if err != nil {
				span.SetStatus(codes.Error, "re-login failed")
				return nil, err
			}
		}
		doc = d
	}

	activities, err := ExtractActivities(ctx, doc, c.BaseUrl)
	if err != nil {
		span.SetStatus(codes.Error, "extraction failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("count", len(activities)))
	return activities, nil
}

// GetActivityDetail fetches and parses the stat page of one activity.
func (c *Client) GetActivityDetail(ctx context.Context, activity Activity) (ActivityDetail, error) {
	detail, err := c.GetActivityDetailByUrl(ctx, activity.Url)
	if err != nil {
		return detail, err
	}
	// the listing knows things the stat page doesn't repeat
	if detail.Group == "" {
		detail.Group = activity.Group
	}
	if detail.Time == "" {
		detail.Time = activity.Time
	}
	return detail, nil
}

// GetActivityDetailByUrl is GetActivityDetail for callers that only hold
// a detail url (e.g. a previously selected activity stored by the host).
// On a session-expiry marker it re-authenticates once and retries the
// fetch a single time.
func (c *Client) GetActivityDetailByUrl(ctx context.Context, detailUrl string) (ActivityDetail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := tracer.Start(ctx, "client:GetActivityDetail")
	defer span.End()
	span.SetAttributes(attribute.String("url", detailUrl))

	if detailUrl == "" {
		return ActivityDetail{}, ErrNoDetailUrl
	}

	doc, err := c.fetchAuthed(ctx, detailUrl)
	if err != nil {
		span.SetStatus(codes.Error, "fetch failed")
		return ActivityDetail{}, err
	}

	detail, err := ExtractActivityDetail(ctx, doc, c.BaseUrl, detailUrl)
	if err != nil {
		span.SetStatus(codes.Error, "extraction failed")
		return detail, err
	}
	return detail, nil
}

// SubmitReply posts an attendance reply through the site's answer form.
// The form page is fetched first to harvest hidden fields, then the
// completed form is posted without following redirects: this server
// redirects on successful writes, so the redirect status itself is a
// success signal. A 200 with neither a success phrase nor login markers
// is ambiguous and reported as SubmissionAmbiguousError, never success.
func (c *Client) SubmitReply(ctx context.Context, reply Reply) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := tracer.Start(ctx, "client:SubmitReply")
	defer span.End()
	span.SetAttributes(
		attribute.String("event_id", reply.EventId),
		attribute.String("attendance", string(reply.Attendance)),
	)

	if reply.EventId == "" || reply.UserId == "" {
		return ErrReplyMissingIds
	}

	answerUrl := fmt.Sprintf(
		"%s/answer.jsp?eventId=%s&userId=%s",
		strings.TrimRight(c.BaseUrl.String(), "/"),
		url.QueryEscape(reply.EventId),
		url.QueryEscape(reply.UserId),
	)

	doc, err := c.fetchAuthed(ctx, answerUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch answer form")
		return err
	}

	form, err := ExtractReplyForm(doc, c.BaseUrl, answerUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to harvest answer form")
		return err
	}
	fields, err := buildReplyFields(form, reply)
	if err != nil {
		return err
	}

	origin := c.BaseUrl.Scheme + "://" + c.BaseUrl.Host
	res, err := c.HttpNoRedirect.R().
		SetContext(ctx).
		SetHeader("Origin", origin).
		SetHeader("Referer", answerUrl).
		SetFormData(fields).
		Post(form.ActionUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to post reply")
		return &TransportError{Op: "POST " + form.ActionUrl, Err: err}
	}

	status := res.StatusCode()
	if status >= 300 && status < 400 {
		slog.InfoContext(ctx, "reply accepted", "event_id", reply.EventId, "status", status)
		return nil
	}

	body := string(res.Body())
	if status == http.StatusOK {
		if strings.Contains(body, "Sparat.") || strings.Contains(body, "Tack för ditt svar") {
			slog.InfoContext(ctx, "reply accepted", "event_id", reply.EventId)
			return nil
		}
		if hasLoginMarkers(body) {
			c.authenticated = false
			span.SetStatus(codes.Error, "session expired during submission")
			return &AuthenticationError{Reason: "session expired while submitting the reply"}
		}
	}

	span.SetStatus(codes.Error, "ambiguous submission response")
	return &SubmissionAmbiguousError{
		StatusCode: status,
		Snippet:    snippet(body),
	}
}
