// internal/browser/login.go
package browser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
)

// LoginProvider authenticates a freshly launched session. The console
// provider is the only one shipped; a headless credential flow would be
// another implementation.
type LoginProvider interface {
	Login(ctx context.Context, s *Session) error
}

// ConsoleLoginProvider opens the login page and waits for the operator to
// finish signing in by hand, including any 2FA challenge. The browser must
// be running headful for this to make sense.
type ConsoleLoginProvider struct {
	In io.Reader
}

func NewConsoleLoginProvider() *ConsoleLoginProvider {
	return &ConsoleLoginProvider{In: os.Stdin}
}

func (p *ConsoleLoginProvider) Login(ctx context.Context, s *Session) error {
	if err := s.Navigate(ctx, s.cfg.LoginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}

	log.Println("[LOGIN] Sign in manually in the browser window (including 2FA).")
	fmt.Print("Press Enter here once you are logged in... ")

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(p.In).ReadString('\n')
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil && err != io.EOF {
			return fmt.Errorf("read confirmation: %w", err)
		}
	}
	return nil
}

var _ LoginProvider = (*ConsoleLoginProvider)(nil)
