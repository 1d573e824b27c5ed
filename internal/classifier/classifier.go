// Package classifier maps a rendered profile page to one semantic state.
// Classification is read-only and total: it never touches the page, and every
// document lands in exactly one state. It works on an HTML snapshot so it can
// be tested against fixtures without a live browser.
package classifier

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type State int

const (
	// Connectable: a Connect control is visible, directly or behind "More".
	Connectable State = iota
	// AlreadyPending: an invitation was sent and not yet answered.
	AlreadyPending
	// AlreadyConnected: a Message control is visible.
	AlreadyConnected
	// FollowOnly: no Connect control at all, only Follow.
	FollowOnly
	// NotFound: the profile was removed or is unavailable.
	NotFound
	// CapBanner: the site-level invitation limit indicator is present.
	CapBanner
)

func (s State) String() string {
	switch s {
	case Connectable:
		return "connectable"
	case AlreadyPending:
		return "already_pending"
	case AlreadyConnected:
		return "already_connected"
	case FollowOnly:
		return "follow_only"
	case NotFound:
		return "not_found"
	case CapBanner:
		return "cap_banner"
	}
	return "unknown"
}

// Classification is the result of inspecting one profile page.
type Classification struct {
	State State
	// Name is the profile's display name as rendered, empty if absent.
	Name string
	// ViaMoreMenu is set when Connect lives under the "More" dropdown
	// instead of the top-level action bar.
	ViaMoreMenu bool
}

// Page-level text markers, checked against the lowercased document text.
var notFoundMarkers = []string{
	"this page doesn’t exist",
	"this page doesn't exist",
	"profile is not available",
	"page not found",
}

var capBannerMarkers = []string{
	"reached the weekly invitation limit",
	"invitation limit reached",
	"no invitations left",
}

// Classify inspects an HTML snapshot of a profile page. The checks run in
// priority order: page-level signals (missing profile, cap banner) first,
// then connection-state signals strongest first: a Message control beats a
// stale Pending badge, Pending beats a visible Connect control.
func Classify(html string) (*Classification, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	c := &Classification{
		Name: strings.TrimSpace(doc.Find("h1").First().Text()),
	}

	bodyText := strings.ToLower(doc.Text())

	if containsAny(bodyText, notFoundMarkers) {
		c.State = NotFound
		return c, nil
	}
	if containsAny(bodyText, capBannerMarkers) {
		c.State = CapBanner
		return c, nil
	}

	switch {
	case hasMessageControl(doc):
		c.State = AlreadyConnected
	case hasPendingControl(doc):
		c.State = AlreadyPending
	case hasDirectConnect(doc):
		c.State = Connectable
	case hasMenuConnect(doc):
		c.State = Connectable
		c.ViaMoreMenu = true
	default:
		// No Connect control anywhere (follow-only or locked profile):
		// not connectable, treated as a permanent skip downstream.
		c.State = FollowOnly
	}

	return c, nil
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// anyButton reports whether any button matches. aria is the lowercased
// aria-label, text the lowercased trimmed visible text.
func anyButton(doc *goquery.Document, match func(aria, text string) bool) bool {
	found := false
	doc.Find("button").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		aria := strings.ToLower(sel.AttrOr("aria-label", ""))
		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		if match(aria, text) {
			found = true
			return false
		}
		return true
	})
	return found
}

func hasMessageControl(doc *goquery.Document) bool {
	return anyButton(doc, func(aria, text string) bool {
		return strings.HasPrefix(aria, "message") || text == "message"
	})
}

func hasPendingControl(doc *goquery.Document) bool {
	return anyButton(doc, func(aria, text string) bool {
		return strings.Contains(aria, "pending") || text == "pending"
	})
}

func hasDirectConnect(doc *goquery.Document) bool {
	return anyButton(doc, func(aria, text string) bool {
		return strings.Contains(aria, "to connect") || text == "connect"
	})
}

// hasMenuConnect looks for a Connect entry inside the "More" dropdown.
func hasMenuConnect(doc *goquery.Document) bool {
	found := false
	doc.Find(`div[role="menuitem"], li[role="menuitem"], .artdeco-dropdown__content div`).
		EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			aria := strings.ToLower(sel.AttrOr("aria-label", ""))
			text := strings.ToLower(strings.TrimSpace(sel.Text()))
			if strings.Contains(aria, "to connect") || text == "connect" {
				found = true
				return false
			}
			return true
		})
	return found
}
