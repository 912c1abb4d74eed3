package bokat

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// caller-input failures, detected before any network I/O
var ErrNoDetailUrl = errors.New("no detail url given")
var ErrReplyMissingIds = errors.New("a reply requires both an event id and a user id")

// TransportError wraps a network level failure (timeout, refused
// connection, broken tls). The client never retries these internally,
// the host decides whether stale data is acceptable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failed: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthenticationError means the credentials were rejected or the login
// form could not be located. The host should prompt for credentials
// rather than retry.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Reason
}

// ParseError means a page was fetched but did not contain the structure
// extraction relies on, in any of the fallback passes. Distinct from
// AuthenticationError so the host doesn't ask for new credentials when
// the actual problem is template drift.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse failed: " + e.Reason
}

// SubmissionAmbiguousError is returned when a reply post came back with
// neither a clear success signal nor a clear failure signal. It carries a
// truncated body snippet so template drift can be diagnosed from logs.
// Ambiguity is always reported as failure, never recorded as success.
type SubmissionAmbiguousError struct {
	StatusCode int
	Snippet    string
}

func (e *SubmissionAmbiguousError) Error() string {
	return fmt.Sprintf(
		"reply submission ambiguous: status %d with no success marker: %q",
		e.StatusCode, e.Snippet,
	)
}

const snippetLimit = 300

// snippet truncates a response body for error reporting, backing off to
// a rune boundary so Swedish text never gets cut mid-character.
func snippet(body string) string {
	if len(body) <= snippetLimit {
		return body
	}
	cut := snippetLimit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}
