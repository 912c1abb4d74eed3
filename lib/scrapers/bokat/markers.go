package bokat

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The site signals "not logged in" only through page content: an expired
// session gets a 200 with the login form. These markers are literal
// strings observed on real pages.

func hasLoginMarkers(body string) bool {
	return strings.Contains(body, "Logga in") || strings.Contains(body, "login.jsp")
}

// IsLoginPage reports whether a fetched page is (or embeds) the login
// page instead of the content that was requested.
func IsLoginPage(doc *goquery.Document) bool {
	if doc.Find(`form[action*="userPage.jsp"] input[name="l"]`).Length() > 0 {
		return true
	}
	if doc.Find(`a[href*="login.jsp"]`).Length() > 0 {
		return true
	}
	return hasLoginMarkers(doc.Text())
}

// IsAuthenticatedPage reports whether the page carries the markers of a
// logged-in user page. Used to tell "user genuinely has no activities"
// apart from "extraction silently failed".
func IsAuthenticatedPage(doc *goquery.Document) bool {
	if strings.Contains(doc.Find("h1.HeaderLarge").Text(), "Användarsida") {
		return true
	}
	text := doc.Text()
	return strings.Contains(text, "Logga ut") || strings.Contains(text, "Mina aktiviteter")
}
