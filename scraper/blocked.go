package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NoteAccessDenied is reported when the site answers with an access denied page.
const NoteAccessDenied = "ACCESS_DENIED_BY_SITE"

// NoteBotChallenge prefixes the note of a page held behind a bot challenge.
const NoteBotChallenge = "BOT_CHALLENGE_DETECTED: "

type challengeMarker struct {
	marker string
	reason string
	// maxText limits the marker to near-empty pages; zero means any page.
	maxText int
}

// challengeMarkers are matched case-insensitively against the page markup.
var challengeMarkers = []challengeMarker{
	{marker: "cf-browser-verification", reason: "Cloudflare challenge"},
	{marker: "challenge-platform", reason: "Cloudflare challenge", maxText: 2000},
	{marker: "just a moment...", reason: "Cloudflare challenge", maxText: 2000},
	{marker: "checking your browser", reason: "Cloudflare challenge", maxText: 2000},
	{marker: "verify you are human", reason: "Cloudflare challenge", maxText: 2000},
	{marker: "captcha-delivery.com", reason: "DataDome bot protection"},
	{marker: "px-captcha", reason: "PerimeterX bot protection"},
	{marker: "perimeterx", reason: "PerimeterX bot protection", maxText: 2000},
	{marker: "/_incapsula_resource", reason: "Imperva bot protection"},
	{marker: "akam/", reason: "Akamai bot protection", maxText: 500},
	{marker: "recaptcha", reason: "reCAPTCHA challenge", maxText: 1000},
	{marker: "unusual traffic from your computer", reason: "Unusual traffic page"},
}

// IsAccessDenied reports whether title is the generic access denied page
// served by CDN edge firewalls.
func IsAccessDenied(title string) bool {
	return strings.Contains(title, "Access Denied")
}

// IsBlocked reports whether html is a bot challenge rather than the product
// page, and names the protection.
func IsBlocked(html string) (bool, string) {
	if html == "" {
		return false, ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, ""
	}

	doc.Find("script, style, noscript").Remove()

	textLen := len(strings.TrimSpace(doc.Find("body").Text()))
	lower := strings.ToLower(html)

	for _, m := range challengeMarkers {
		if m.maxText > 0 && textLen > m.maxText {
			continue
		}

		if strings.Contains(lower, m.marker) {
			return true, m.reason
		}
	}

	return false, ""
}
