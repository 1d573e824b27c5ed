// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/unclebandit/linkreach-backend/internal/service"
)

// PageAdapter implements service.Page over a rod page. Every method is a
// thin translation; flow decisions stay in the executor.
type PageAdapter struct {
	page       *rod.Page
	navTimeout time.Duration
}

var _ service.Page = (*PageAdapter)(nil)

func (a *PageAdapter) Navigate(ctx context.Context, url string) error {
	p := a.page.Context(ctx).Timeout(a.navTimeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}
	return nil
}

func (a *PageAdapter) CurrentURL() (string, error) {
	info, err := a.page.Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

func (a *PageAdapter) HTML() (string, error) {
	return a.page.HTML()
}

func (a *PageAdapter) Click(selector string) error {
	el, err := a.page.Element(selector)
	if err != nil {
		return fmt.Errorf("element %s: %w", selector, err)
	}
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("scroll to %s: %w", selector, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// ClickMatch clicks the first element under selector whose text matches the
// pattern. Used for menu entries that carry no stable attributes.
func (a *PageAdapter) ClickMatch(selector, pattern string) error {
	el, err := a.page.ElementR(selector, pattern)
	if err != nil {
		return fmt.Errorf("element %s matching %q: %w", selector, pattern, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (a *PageAdapter) WaitVisible(selector string, timeout time.Duration) error {
	el, err := a.page.Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("element %s: %w", selector, err)
	}
	if err := el.Timeout(timeout).WaitVisible(); err != nil {
		return fmt.Errorf("wait visible %s: %w", selector, err)
	}
	return nil
}

func (a *PageAdapter) Fill(selector, text string) error {
	el, err := a.page.Element(selector)
	if err != nil {
		return fmt.Errorf("element %s: %w", selector, err)
	}
	if err := el.Focus(); err != nil {
		return fmt.Errorf("focus %s: %w", selector, err)
	}
	return el.Input(text)
}

func (a *PageAdapter) Focus(selector string) error {
	el, err := a.page.Element(selector)
	if err != nil {
		return fmt.Errorf("element %s: %w", selector, err)
	}
	return el.Focus()
}

// InsertText emits one chunk of text as if typed. Combined with the
// executor's keystroke plan this produces human-paced typing.
func (a *PageAdapter) InsertText(text string) error {
	return a.page.InsertText(text)
}
