// internal/service/executor.go
package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/unclebandit/linkreach-backend/internal/classifier"
	"github.com/unclebandit/linkreach-backend/internal/config"
	appErrors "github.com/unclebandit/linkreach-backend/internal/errors"
	"github.com/unclebandit/linkreach-backend/internal/model"
)

// Page is the browser surface the executor drives. The rod adapter in
// internal/browser implements it; tests use fakes.
type Page interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL() (string, error)
	HTML() (string, error)
	Click(selector string) error
	ClickMatch(selector, pattern string) error
	WaitVisible(selector string, timeout time.Duration) error
	Fill(selector, text string) error
	Focus(selector string) error
	InsertText(text string) error
}

// UI locators, evaluated in the order the flows need them.
const (
	selConnectButton  = `button[aria-label*="to connect"]`
	selMoreButton     = `button[aria-label="More actions"]`
	selMenuItems      = `div[role="menuitem"], li[role="menuitem"]`
	selAddNoteButton  = `button[aria-label="Add a note"]`
	selNoteTextarea   = `textarea[name="message"]`
	selSendButtons    = `button[aria-label="Send now"], button[aria-label="Send invitation"]`
	selMessageButton  = `button[aria-label^="Message"]`
	selChatBox        = `div.msg-form__contenteditable`
	selChatSendButton = `button.msg-form__send-button`
	selChatClose      = `button[data-control-name="overlay.close_conversation_window"]`
	selUpsellDialog   = `div[role="dialog"], .artdeco-modal`
)

// Markers of a messaging-restricted profile. Matched only inside an upsell
// dialog, never against the whole page: profile pages routinely mention
// Premium elsewhere (member badges, nav upsells).
var restrictedMarkers = []string{"inmail", "premium"}

// Outcome is the terminal result of one profile flow.
type Outcome struct {
	Result string
	Name   string
	Detail string
	Err    error
}

// ActionExecutor performs the UI action matching a classified page state.
// It owns retry-once semantics for transient UI failures; persistence stays
// with the campaign driver.
type ActionExecutor struct {
	Page        Page
	Pacer       *Pacer
	NoteLimit   int
	TypingDelay config.Range
	WaitTimeout time.Duration
	DryRun      bool

	// Sleep is injectable for tests. Nil means a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewActionExecutor wires an executor from config.
func NewActionExecutor(page Page, pacer *Pacer, cfg *config.Config, dryRun bool) *ActionExecutor {
	return &ActionExecutor{
		Page:        page,
		Pacer:       pacer,
		NoteLimit:   cfg.NoteCharLimit,
		TypingDelay: cfg.TypingDelay,
		WaitTimeout: cfg.WaitTimeout,
		DryRun:      dryRun,
	}
}

// SendConnectionRequest runs the connect flow for one profile. Transient UI
// failures retry the entire visit-to-submit sequence exactly once.
func (e *ActionExecutor) SendConnectionRequest(ctx context.Context, url, noteTemplate string) *Outcome {
	out, err := e.connectOnce(ctx, url, noteTemplate)
	if err != nil && appErrors.IsTransientUI(err) {
		log.Printf("[EXEC] Transient failure on %s, retrying once: %v", url, err)
		out, err = e.connectOnce(ctx, url, noteTemplate)
	}
	if err != nil {
		return &Outcome{Result: model.OutcomeError, Detail: err.Error(), Err: err}
	}
	return out
}

func (e *ActionExecutor) connectOnce(ctx context.Context, url, noteTemplate string) (*Outcome, error) {
	cls, err := e.visit(ctx, url)
	if err != nil {
		return nil, err
	}

	switch cls.State {
	case classifier.CapBanner:
		return &Outcome{Result: model.OutcomeCapReached, Name: cls.Name}, nil
	case classifier.NotFound:
		return &Outcome{Result: model.OutcomeError, Detail: "profile not found or unavailable"}, nil
	case classifier.AlreadyPending:
		return &Outcome{Result: model.OutcomeAlreadyPending, Name: cls.Name}, nil
	case classifier.AlreadyConnected:
		return &Outcome{Result: model.OutcomeAlreadyConnected, Name: cls.Name}, nil
	case classifier.FollowOnly:
		return &Outcome{
			Result: model.OutcomeSkipped,
			Name:   cls.Name,
			Detail: "no connect control",
			Err:    appErrors.NewPermanentSkip("follow-only profile"),
		}, nil
	}

	note := TruncateNote(RenderPersonal(noteTemplate, cls.Name), e.NoteLimit)

	if e.DryRun {
		log.Printf("[DRY RUN] Would send connection request to %s (%s): %q", cls.Name, url, note)
		return &Outcome{Result: model.OutcomeDryRunPreview, Name: cls.Name, Detail: "would send connection request"}, nil
	}

	if cls.ViaMoreMenu {
		if err := e.Page.Click(selMoreButton); err != nil {
			return nil, appErrors.NewTransientUI("more menu", err)
		}
		if err := e.Pacer.WaitBetweenActions(ctx); err != nil {
			return nil, err
		}
		if err := e.Page.ClickMatch(selMenuItems, "Connect"); err != nil {
			return nil, appErrors.NewTransientUI("menu connect item", err)
		}
	} else {
		if err := e.Page.Click(selConnectButton); err != nil {
			return nil, appErrors.NewTransientUI("connect button", err)
		}
	}
	if err := e.Pacer.WaitBetweenActions(ctx); err != nil {
		return nil, err
	}

	// The invite modal: add a note, fill it, submit.
	if err := e.Page.WaitVisible(selAddNoteButton, e.WaitTimeout); err != nil {
		return nil, appErrors.NewTransientUI("invite modal", err)
	}
	if err := e.Page.Click(selAddNoteButton); err != nil {
		return nil, appErrors.NewTransientUI("add note button", err)
	}
	if err := e.Page.WaitVisible(selNoteTextarea, e.WaitTimeout); err != nil {
		return nil, appErrors.NewTransientUI("note field", err)
	}
	if err := e.Page.Fill(selNoteTextarea, note); err != nil {
		return nil, appErrors.NewTransientUI("note field", err)
	}
	if err := e.Pacer.WaitBetweenActions(ctx); err != nil {
		return nil, err
	}
	if err := e.Page.Click(selSendButtons); err != nil {
		return nil, appErrors.NewTransientUI("send invitation", err)
	}

	return &Outcome{Result: model.OutcomeRequestSent, Name: cls.Name}, nil
}

// SendFollowUpMessage runs the message flow for one profile.
func (e *ActionExecutor) SendFollowUpMessage(ctx context.Context, url, messageTemplate string) *Outcome {
	out, err := e.messageOnce(ctx, url, messageTemplate)
	if err != nil && appErrors.IsTransientUI(err) {
		log.Printf("[EXEC] Transient failure on %s, retrying once: %v", url, err)
		out, err = e.messageOnce(ctx, url, messageTemplate)
	}
	if err != nil {
		return &Outcome{Result: model.OutcomeError, Detail: err.Error(), Err: err}
	}
	return out
}

func (e *ActionExecutor) messageOnce(ctx context.Context, url, messageTemplate string) (*Outcome, error) {
	cls, err := e.visit(ctx, url)
	if err != nil {
		return nil, err
	}

	// Anything but a visible Message control means the invitation hasn't
	// been accepted yet; the profile stays a follow-up candidate.
	if cls.State != classifier.AlreadyConnected {
		return &Outcome{Result: model.OutcomeNotConnected, Name: cls.Name}, nil
	}

	message := RenderPersonal(messageTemplate, cls.Name)

	if e.DryRun {
		log.Printf("[DRY RUN] Would message %s (%s): %q", cls.Name, url, message)
		return &Outcome{Result: model.OutcomeDryRunPreview, Name: cls.Name, Detail: "would send follow-up message"}, nil
	}

	if err := e.Page.Click(selMessageButton); err != nil {
		return nil, appErrors.NewTransientUI("message button", err)
	}
	if err := e.Pacer.WaitBetweenActions(ctx); err != nil {
		return nil, err
	}
	if err := e.Page.WaitVisible(selChatBox, e.WaitTimeout); err != nil {
		// A premium/InMail upsell instead of the chat surface is a
		// permanent, expected condition, not an error.
		if e.messagingRestricted() {
			return &Outcome{
				Result: model.OutcomeSkipped,
				Name:   cls.Name,
				Detail: "messaging restricted",
				Err:    appErrors.NewPermanentSkip("messaging restricted or premium-only"),
			}, nil
		}
		return nil, appErrors.NewTransientUI("chat surface", err)
	}

	if err := e.typeMessage(ctx, message); err != nil {
		return nil, err
	}

	if err := e.Page.Click(selChatSendButton); err != nil {
		return nil, appErrors.NewTransientUI("chat send", err)
	}
	if err := e.Pacer.WaitBetweenActions(ctx); err != nil {
		return nil, err
	}
	// Closing the chat window is best-effort; a stuck overlay is handled by
	// the next navigation anyway.
	if err := e.Page.Click(selChatClose); err != nil {
		log.Printf("[EXEC] Could not close chat window: %v", err)
	}

	return &Outcome{Result: model.OutcomeMessaged, Name: cls.Name}, nil
}

// typeMessage replays a typing plan against the focused chat surface,
// character by character with jittered delays.
func (e *ActionExecutor) typeMessage(ctx context.Context, message string) error {
	if err := e.Page.Focus(selChatBox); err != nil {
		return appErrors.NewTransientUI("chat focus", err)
	}
	for _, ks := range TypingPlan(message, e.TypingDelay) {
		if err := e.Page.InsertText(string(ks.Char)); err != nil {
			return appErrors.NewTransientUI("chat typing", err)
		}
		if err := e.sleep(ctx, ks.Delay); err != nil {
			return err
		}
	}
	return nil
}

// visit navigates to the profile and classifies the landed page. A redirect
// to the login wall means the saved session died: fatal to the run.
func (e *ActionExecutor) visit(ctx context.Context, url string) (*classifier.Classification, error) {
	if err := e.Page.Navigate(ctx, url); err != nil {
		return nil, appErrors.NewTransientUI("navigation", err)
	}
	if err := e.Pacer.WaitBetweenActions(ctx); err != nil {
		return nil, err
	}

	current, err := e.Page.CurrentURL()
	if err != nil {
		return nil, appErrors.NewTransientUI("navigation", err)
	}
	if strings.Contains(current, "/login") ||
		strings.Contains(current, "/authwall") ||
		strings.Contains(current, "uas/login") {
		return nil, appErrors.ErrSessionInvalid
	}

	html, err := e.Page.HTML()
	if err != nil {
		return nil, appErrors.NewTransientUI("page snapshot", err)
	}
	return classifier.Classify(html)
}

// messagingRestricted reports whether an upsell dialog replaced the chat
// surface. Anything short of that is treated as a transient failure so the
// chat open still gets its retry.
func (e *ActionExecutor) messagingRestricted() bool {
	html, err := e.Page.HTML()
	if err != nil {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	restricted := false
	doc.Find(selUpsellDialog).Each(func(_ int, dialog *goquery.Selection) {
		text := strings.ToLower(dialog.Text())
		for _, m := range restrictedMarkers {
			if strings.Contains(text, m) {
				restricted = true
			}
		}
	})
	return restricted
}

func (e *ActionExecutor) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	return ctxSleep(ctx, d)
}
