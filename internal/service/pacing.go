// internal/service/pacing.go
package service

import (
	"context"
	"log"
	"time"

	"github.com/unclebandit/linkreach-backend/internal/config"
	appErrors "github.com/unclebandit/linkreach-backend/internal/errors"
	"github.com/unclebandit/linkreach-backend/internal/repository"
)

// Pacer gates every action behind randomized, bounded delays and checks
// daily caps against the profile store. The inter-profile wait is the
// dominant anti-detection control: it is only ever skipped under dry-run.
type Pacer struct {
	Repo repository.ProfileRepositoryInterface

	ProfileDelay   config.Range
	ActionDelay    config.Range
	LongPauseEvery int
	LongPause      config.Range

	DryRun bool

	// Sleep is injectable for tests. Nil means a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer builds a Pacer from config.
func NewPacer(repo repository.ProfileRepositoryInterface, cfg *config.Config, dryRun bool) *Pacer {
	return &Pacer{
		Repo:           repo,
		ProfileDelay:   cfg.ProfileDelay,
		ActionDelay:    cfg.ActionDelay,
		LongPauseEvery: cfg.LongPauseEvery,
		LongPause:      cfg.LongPause,
		DryRun:         dryRun,
	}
}

// CheckCap consults today's counter against the configured cap. A reached
// cap halts the remainder of the run for that kind only.
func (p *Pacer) CheckCap(kind string, cap int) error {
	reached, err := p.Repo.IsDailyCapReached(kind, cap)
	if err != nil {
		return err
	}
	if reached {
		return appErrors.NewCapReached(kind)
	}
	return nil
}

// WaitBetweenProfiles suspends for a random duration between profile visits.
func (p *Pacer) WaitBetweenProfiles(ctx context.Context) error {
	return p.wait(ctx, p.ProfileDelay)
}

// WaitBetweenActions suspends briefly between in-page micro-actions.
func (p *Pacer) WaitBetweenActions(ctx context.Context) error {
	return p.wait(ctx, p.ActionDelay)
}

// MaybeLongPause takes an extended break every N processed profiles,
// simulating a human rest period. Reports whether a pause was taken.
func (p *Pacer) MaybeLongPause(ctx context.Context, processed int) (bool, error) {
	if p.LongPauseEvery <= 0 || processed <= 0 || processed%p.LongPauseEvery != 0 {
		return false, nil
	}
	if p.DryRun {
		log.Println("[DRY RUN] Would take a long pause here")
		return true, nil
	}

	d := randomDuration(p.LongPause)
	log.Printf("[PACER] Taking a long break (%.1f minutes)...", d.Minutes())
	if err := p.sleep(ctx, d); err != nil {
		return true, err
	}
	log.Println("[PACER] Break over. Resuming...")
	return true, nil
}

func (p *Pacer) wait(ctx context.Context, r config.Range) error {
	if p.DryRun {
		return nil
	}
	return p.sleep(ctx, randomDuration(r))
}

func (p *Pacer) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return ctxSleep(ctx, d)
}

// ctxSleep sleeps for d unless the context is cancelled first.
func ctxSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
