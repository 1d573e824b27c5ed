// internal/service/executor_test.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/unclebandit/linkreach-backend/internal/config"
	appErrors "github.com/unclebandit/linkreach-backend/internal/errors"
	"github.com/unclebandit/linkreach-backend/internal/model"
)

// ====================== Page fixtures ======================

const connectablePage = `<html><body>
<h1>Alice Smith</h1>
<main><button aria-label="Invite Alice Smith to connect"><span>Connect</span></button></main>
</body></html>`

const menuConnectPage = `<html><body>
<h1>Bob Jones</h1>
<main>
  <button aria-label="Follow Bob Jones">Follow</button>
  <button aria-label="More actions">More</button>
  <div role="menuitem" aria-label="Invite Bob Jones to connect">Connect</div>
</main>
</body></html>`

const pendingPage = `<html><body>
<h1>Carol White</h1>
<main><button aria-label="Pending, click to withdraw invitation">Pending</button></main>
</body></html>`

const connectedPage = `<html><body>
<h1>Dan Brown</h1>
<main><button aria-label="Message Dan Brown">Message</button></main>
</body></html>`

const followOnlyPage = `<html><body>
<h1>Eve Green</h1>
<main><button aria-label="Follow Eve Green">Follow</button></main>
</body></html>`

const capBannerPage = `<html><body>
<h1>Frank Black</h1>
<div class="banner">You've reached the weekly invitation limit.</div>
<main><button aria-label="Invite Frank Black to connect">Connect</button></main>
</body></html>`

const notFoundPage = `<html><body>
<h1>Page not found</h1>
<p>This page doesn't exist.</p>
</body></html>`

const restrictedPage = `<html><body>
<h1>Grace Gold</h1>
<main><button aria-label="Message Grace Gold">Message</button></main>
<div role="dialog" class="artdeco-modal">Unlock InMail with Premium</div>
</body></html>`

const premiumBadgePage = `<html><body>
<h1>Dan Brown</h1>
<span class="badge">LinkedIn Premium member</span>
<main><button aria-label="Message Dan Brown">Message</button></main>
</body></html>`

// ====================== Fake page ======================

// fakePage scripts a browser surface: fixed HTML, recorded interactions,
// and per-selector failure counters to simulate flaky UI.
type fakePage struct {
	html       string
	currentURL string

	navigations int
	clicks      []string
	filled      map[string]string
	typed       strings.Builder

	navErr    error
	clickFail map[string]int
	waitFail  map[string]int
}

func newFakePage(html string) *fakePage {
	return &fakePage{
		html:      html,
		filled:    map[string]string{},
		clickFail: map[string]int{},
		waitFail:  map[string]int{},
	}
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.navigations++
	if p.navErr != nil {
		return p.navErr
	}
	if p.currentURL == "" {
		p.currentURL = url
	}
	return nil
}

func (p *fakePage) CurrentURL() (string, error) { return p.currentURL, nil }
func (p *fakePage) HTML() (string, error)       { return p.html, nil }

func (p *fakePage) Click(selector string) error {
	if p.clickFail[selector] > 0 {
		p.clickFail[selector]--
		return fmt.Errorf("element not interactable: %s", selector)
	}
	p.clicks = append(p.clicks, selector)
	return nil
}

func (p *fakePage) ClickMatch(selector, pattern string) error {
	p.clicks = append(p.clicks, selector+"|"+pattern)
	return nil
}

func (p *fakePage) WaitVisible(selector string, _ time.Duration) error {
	if p.waitFail[selector] > 0 {
		p.waitFail[selector]--
		return fmt.Errorf("timeout waiting for %s", selector)
	}
	return nil
}

func (p *fakePage) Fill(selector, text string) error {
	p.filled[selector] = text
	return nil
}

func (p *fakePage) Focus(string) error { return nil }

func (p *fakePage) InsertText(text string) error {
	p.typed.WriteString(text)
	return nil
}

func (p *fakePage) clicked(selector string) bool {
	for _, c := range p.clicks {
		if c == selector || strings.HasPrefix(c, selector+"|") {
			return true
		}
	}
	return false
}

var _ Page = (*fakePage)(nil)

// ====================== Helpers ======================

func noSleep(context.Context, time.Duration) error { return nil }

func newTestExecutor(page *fakePage) *ActionExecutor {
	return &ActionExecutor{
		Page:        page,
		Pacer:       &Pacer{Sleep: noSleep},
		NoteLimit:   300,
		TypingDelay: config.Range{Min: time.Millisecond, Max: time.Millisecond},
		WaitTimeout: time.Second,
		Sleep:       noSleep,
	}
}

const profileURL = "https://www.linkedin.com/in/test-profile/"

// ====================== Connect flow ======================

func TestSendConnectionRequestDirect(t *testing.T) {
	page := newFakePage(connectablePage)
	exec := newTestExecutor(page)

	out := exec.SendConnectionRequest(context.Background(), profileURL, "Hi {first_name}, let's connect!")
	if out.Result != model.OutcomeRequestSent {
		t.Fatalf("Expected request_sent, got %s (%s)", out.Result, out.Detail)
	}
	if out.Name != "Alice Smith" {
		t.Errorf("Expected name extraction, got %q", out.Name)
	}
	if !page.clicked(selConnectButton) {
		t.Error("Expected a direct Connect click")
	}
	if !page.clicked(selAddNoteButton) || !page.clicked(selSendButtons) {
		t.Errorf("Incomplete invite modal flow, clicks: %v", page.clicks)
	}
	if note := page.filled[selNoteTextarea]; note != "Hi Alice, let's connect!" {
		t.Errorf("Expected personalized note, got %q", note)
	}
}

func TestSendConnectionRequestViaMoreMenu(t *testing.T) {
	page := newFakePage(menuConnectPage)
	exec := newTestExecutor(page)

	out := exec.SendConnectionRequest(context.Background(), profileURL, "Hi {first_name}")
	if out.Result != model.OutcomeRequestSent {
		t.Fatalf("Expected request_sent, got %s (%s)", out.Result, out.Detail)
	}
	if !page.clicked(selMoreButton) {
		t.Error("Expected the More menu to be opened")
	}
	if page.clicked(selConnectButton) {
		t.Error("Direct Connect should not be clicked on a menu-only page")
	}
}

func TestSendConnectionRequestReadOnlyStates(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"pending", pendingPage, model.OutcomeAlreadyPending},
		{"connected", connectedPage, model.OutcomeAlreadyConnected},
		{"follow only", followOnlyPage, model.OutcomeSkipped},
		{"cap banner", capBannerPage, model.OutcomeCapReached},
		{"not found", notFoundPage, model.OutcomeError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page := newFakePage(tc.html)
			exec := newTestExecutor(page)

			out := exec.SendConnectionRequest(context.Background(), profileURL, "Hi {first_name}")
			if out.Result != tc.want {
				t.Errorf("Expected %s, got %s", tc.want, out.Result)
			}
			if len(page.clicks) != 0 {
				t.Errorf("Read-only state should never click, clicked %v", page.clicks)
			}
		})
	}
}

func TestSendConnectionRequestRetriesTransientOnce(t *testing.T) {
	page := newFakePage(connectablePage)
	page.waitFail[selAddNoteButton] = 1 // first attempt: modal never shows
	exec := newTestExecutor(page)

	out := exec.SendConnectionRequest(context.Background(), profileURL, "Hi {first_name}")
	if out.Result != model.OutcomeRequestSent {
		t.Fatalf("Expected success after one retry, got %s (%s)", out.Result, out.Detail)
	}
	if page.navigations != 2 {
		t.Errorf("Retry should re-run the full visit, got %d navigations", page.navigations)
	}
}

func TestSendConnectionRequestTransientTwiceFails(t *testing.T) {
	page := newFakePage(connectablePage)
	page.waitFail[selAddNoteButton] = 2
	exec := newTestExecutor(page)

	out := exec.SendConnectionRequest(context.Background(), profileURL, "Hi {first_name}")
	if out.Result != model.OutcomeError {
		t.Fatalf("Expected error after two transient failures, got %s", out.Result)
	}
	if !appErrors.IsTransientUI(out.Err) {
		t.Errorf("Expected a transient UI error, got %v", out.Err)
	}
	if page.navigations != 2 {
		t.Errorf("Expected exactly one retry, got %d navigations", page.navigations)
	}
}

func TestSendConnectionRequestSessionInvalid(t *testing.T) {
	page := newFakePage(connectablePage)
	page.currentURL = "https://www.linkedin.com/uas/login?session_redirect=..."
	exec := newTestExecutor(page)

	out := exec.SendConnectionRequest(context.Background(), profileURL, "Hi {first_name}")
	if out.Result != model.OutcomeError {
		t.Fatalf("Expected error outcome, got %s", out.Result)
	}
	if !errors.Is(out.Err, appErrors.ErrSessionInvalid) {
		t.Errorf("Expected ErrSessionInvalid, got %v", out.Err)
	}
	if page.navigations != 1 {
		t.Errorf("Session death must not be retried, got %d navigations", page.navigations)
	}
}

func TestSendConnectionRequestDryRun(t *testing.T) {
	page := newFakePage(connectablePage)
	exec := newTestExecutor(page)
	exec.DryRun = true

	out := exec.SendConnectionRequest(context.Background(), profileURL, "Hi {first_name}")
	if out.Result != model.OutcomeDryRunPreview {
		t.Fatalf("Expected dry_run_preview, got %s", out.Result)
	}
	if out.Name != "Alice Smith" {
		t.Errorf("Dry run should still classify, got name %q", out.Name)
	}
	if len(page.clicks) != 0 {
		t.Errorf("Dry run must not click, clicked %v", page.clicks)
	}
}

// ====================== Message flow ======================

func TestSendFollowUpMessage(t *testing.T) {
	page := newFakePage(connectedPage)
	exec := newTestExecutor(page)

	out := exec.SendFollowUpMessage(context.Background(), profileURL, "Thanks for connecting, {first_name}!")
	if out.Result != model.OutcomeMessaged {
		t.Fatalf("Expected messaged, got %s (%s)", out.Result, out.Detail)
	}
	if got := page.typed.String(); got != "Thanks for connecting, Dan!" {
		t.Errorf("Expected the full message typed out, got %q", got)
	}
	if !page.clicked(selMessageButton) || !page.clicked(selChatSendButton) {
		t.Errorf("Incomplete chat flow, clicks: %v", page.clicks)
	}
}

func TestSendFollowUpMessageNotConnected(t *testing.T) {
	for _, html := range []string{pendingPage, connectablePage, followOnlyPage} {
		page := newFakePage(html)
		exec := newTestExecutor(page)

		out := exec.SendFollowUpMessage(context.Background(), profileURL, "Hi {first_name}")
		if out.Result != model.OutcomeNotConnected {
			t.Errorf("Expected not_connected without a Message control, got %s", out.Result)
		}
		if page.typed.Len() != 0 {
			t.Error("Nothing should be typed to a non-connection")
		}
	}
}

func TestSendFollowUpMessageRestricted(t *testing.T) {
	page := newFakePage(restrictedPage)
	page.waitFail[selChatBox] = 2 // chat surface never appears
	exec := newTestExecutor(page)

	out := exec.SendFollowUpMessage(context.Background(), profileURL, "Hi {first_name}")
	if out.Result != model.OutcomeSkipped {
		t.Fatalf("Expected skipped for a restricted profile, got %s (%v)", out.Result, out.Err)
	}
	if page.typed.Len() != 0 {
		t.Error("Nothing should be typed to a restricted profile")
	}
}

// A Premium badge in the page chrome is not an upsell dialog: a chat
// surface that fails to open still gets its retry.
func TestSendFollowUpMessageChatOpenRetriesDespitePremiumBadge(t *testing.T) {
	page := newFakePage(premiumBadgePage)
	page.waitFail[selChatBox] = 1
	exec := newTestExecutor(page)

	out := exec.SendFollowUpMessage(context.Background(), profileURL, "Thanks for connecting, {first_name}!")
	if out.Result != model.OutcomeMessaged {
		t.Fatalf("Expected messaged after one retry, got %s (detail=%q err=%v)", out.Result, out.Detail, out.Err)
	}
	if page.navigations != 2 {
		t.Errorf("Expected the flow to retry once, got %d visits", page.navigations)
	}
	if got := page.typed.String(); got != "Thanks for connecting, Dan!" {
		t.Errorf("Expected the message typed on the retry, got %q", got)
	}
}

func TestSendFollowUpMessageChatCloseFailureIsIgnored(t *testing.T) {
	page := newFakePage(connectedPage)
	page.clickFail[selChatClose] = 1
	exec := newTestExecutor(page)

	out := exec.SendFollowUpMessage(context.Background(), profileURL, "Hi {first_name}")
	if out.Result != model.OutcomeMessaged {
		t.Errorf("A stuck chat overlay must not fail the flow, got %s", out.Result)
	}
}

func TestSendFollowUpMessageDryRun(t *testing.T) {
	page := newFakePage(connectedPage)
	exec := newTestExecutor(page)
	exec.DryRun = true

	out := exec.SendFollowUpMessage(context.Background(), profileURL, "Hi {first_name}")
	if out.Result != model.OutcomeDryRunPreview {
		t.Fatalf("Expected dry_run_preview, got %s", out.Result)
	}
	if len(page.clicks) != 0 || page.typed.Len() != 0 {
		t.Error("Dry run must not interact with the page")
	}
}
