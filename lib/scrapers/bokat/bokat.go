// Package bokat implements a scraping client for the bokat.se event
// planning site. The site exposes no API; everything goes through
// form-based login, session cookies and server-rendered JSP pages.
package bokat

import (
	"bytes"
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"bokat-client/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/bokat")

const DefaultBaseUrl = "https://www.bokat.se"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Credentials struct {
	Username string
	Password string
}

type ClientOptions struct {
	// defaults to DefaultBaseUrl
	BaseUrl     string
	Credentials Credentials
	// per-request timeout, defaults to 30s
	Timeout time.Duration
}

// Client owns one authenticated session against the site. Operations are
// serialized with an internal lock: list, detail and reply all depend on
// cookies established by the previous request, and overlapping refreshes
// from the host would otherwise corrupt each other's session. Use one
// Client per credential pair.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
	// form posts go through a client that does not follow redirects,
	// the redirect status itself is the success signal on writes
	HttpNoRedirect *resty.Client

	creds         Credentials
	mu            sync.Mutex
	authenticated bool
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	rawurl := opts.BaseUrl
	if rawurl == "" {
		rawurl = DefaultBaseUrl
	}
	rawurl = strings.TrimRight(rawurl, "/")
	baseUrl, err := url.Parse(rawurl)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(rawurl)
	client.SetCookieJar(jar)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	client.SetHeader("Accept-Language", "sv-SE,sv;q=0.9,en-US;q=0.8,en;q=0.7")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(timeout)
	telemetry.InstrumentResty(client, "scrapers/bokat/http")

	noRedirect := resty.New()
	noRedirect.SetBaseURL(rawurl)
	noRedirect.SetCookieJar(jar)
	noRedirect.SetHeader("User-Agent", userAgent)
	noRedirect.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	noRedirect.SetHeader("Accept-Language", "sv-SE,sv;q=0.9,en-US;q=0.8,en;q=0.7")
	noRedirect.SetTimeout(timeout)
	noRedirect.GetClient().CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	telemetry.InstrumentResty(noRedirect, "scrapers/bokat/http")

	c := &Client{
		BaseUrl:        baseUrl,
		Http:           client,
		HttpNoRedirect: noRedirect,
		creds:          opts.Credentials,
	}
	return c, nil
}

// login runs the full handshake from scratch: it discards any previous
// session cookies, fetches the login page to harvest baseline cookies and
// confirm the form is still where it used to be, then posts the
// credentials. Success is judged from page content only, the server
// answers 200 to rejected logins too.
//
// The returned document is the authenticated user page, which carries the
// activity listing, so the caller can parse it without a second fetch.
func (c *Client) login(ctx context.Context) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "client:login")
	defer span.End()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c.Http.SetCookieJar(jar)
	c.HttpNoRedirect.SetCookieJar(jar)
	c.authenticated = false

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/userPage.jsp")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return nil, &TransportError{Op: "GET /userPage.jsp", Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login page html")
		return nil, &ParseError{Reason: "login page is not parseable html"}
	}

	form := doc.Find(`form[action*="userPage.jsp"]`).First()
	if form.Length() == 0 {
		span.SetStatus(codes.Error, "login form not found")
		return nil, &AuthenticationError{Reason: "could not find the login form, the page template may have changed"}
	}
	if form.Find(`input[name="e"]`).Length() == 0 || form.Find(`input[name="l"]`).Length() == 0 {
		span.SetStatus(codes.Error, "login form fields not found")
		return nil, &AuthenticationError{Reason: "login form is missing the expected credential fields"}
	}

	res, err = c.Http.R().
		SetContext(ctx).
		SetHeader("Origin", c.BaseUrl.Scheme+"://"+c.BaseUrl.Host).
		SetHeader("Referer", c.BaseUrl.String()+"/userPage.jsp").
		SetFormData(map[string]string{
			"e": c.creds.Username,
			"l": c.creds.Password,
		}).
		Post("/userPage.jsp")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return nil, &TransportError{Op: "POST /userPage.jsp", Err: err}
	}

	doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse post-login html")
		return nil, &ParseError{Reason: "post-login page is not parseable html"}
	}

	if !IsAuthenticatedPage(doc) {
		span.SetStatus(codes.Error, "login rejected")
		return nil, &AuthenticationError{Reason: "the server did not accept the credentials"}
	}

	c.authenticated = true
	return doc, nil
}

func (c *Client) getDoc(ctx context.Context, pageUrl string) (*goquery.Document, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(pageUrl)
	if err != nil {
		return nil, &TransportError{Op: "GET " + pageUrl, Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, &ParseError{Reason: "page is not parseable html: " + pageUrl}
	}
	return doc, nil
}

// fetchAuthed fetches a page that requires an authenticated session,
// re-running the login handshake at most once when the response turns out
// to be the login page. Session expiry on this site is silent, an expired
// cookie just gets you the login form with a 200.
func (c *Client) fetchAuthed(ctx context.Context, pageUrl string) (*goquery.Document, error) {
	if !c.authenticated {
		_, err := c.login(ctx)
		if err != nil {
			return nil, err
		}
	}

	doc, err := c.getDoc(ctx, pageUrl)
	if err != nil {
		return nil, err
	}
	if !IsLoginPage(doc) {
		return doc, nil
	}

	_, err = c.login(ctx)
	if err != nil {
		return nil, err
	}
	doc, err = c.getDoc(ctx, pageUrl)
	if err != nil {
		return nil, err
	}
	if IsLoginPage(doc) {
		return nil, &AuthenticationError{Reason: "still unauthenticated after a fresh login"}
	}
	return doc, nil
}
