// internal/service/campaign_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	appErrors "github.com/unclebandit/linkreach-backend/internal/errors"
	"github.com/unclebandit/linkreach-backend/internal/model"
	"github.com/unclebandit/linkreach-backend/internal/repository"
)

// Executor is what the driver needs from the action executor.
type Executor interface {
	SendConnectionRequest(ctx context.Context, url, noteTemplate string) *Outcome
	SendFollowUpMessage(ctx context.Context, url, messageTemplate string) *Outcome
}

// Reporter consumes per-profile progress events. The driver never cares how
// they are rendered (console, AMQP, web view).
type Reporter interface {
	Report(ev model.ProgressEvent)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ev model.ProgressEvent)

func (f ReporterFunc) Report(ev model.ProgressEvent) { f(ev) }

// CampaignService drives a full campaign pass: it pulls eligible profiles,
// gates each behind the rate governor, delegates the UI work to the executor,
// persists every outcome, and paces between profiles. One driver runs one
// browser session; all work is strictly sequential.
type CampaignService struct {
	Repo     repository.ProfileRepositoryInterface
	Executor Executor
	Pacer    *Pacer
	Reporter Reporter

	NoteTemplate     string
	FollowUpTemplate string

	ConnectionCap int
	MessageCap    int
	BatchLimit    int
	DryRun        bool
}

// Run executes one campaign pass in the given mode. The returned summary is
// always valid, including on run-level aborts. Cancellation is cooperative:
// it is honored between profiles only, so the in-flight profile always
// finishes cleanly and partial work is never rolled back.
func (s *CampaignService) Run(ctx context.Context, mode string) (*model.RunSummary, error) {
	summary := &model.RunSummary{}

	switch mode {
	case model.ModeConnect:
		return summary, s.runConnect(ctx, summary)
	case model.ModeMessage:
		return summary, s.runMessage(ctx, summary)
	case model.ModeBoth:
		if err := s.runConnect(ctx, summary); err != nil {
			return summary, err
		}
		return summary, s.runMessage(ctx, summary)
	default:
		return summary, fmt.Errorf("unknown mode: %s", mode)
	}
}

// ====================== Connect pass ======================

func (s *CampaignService) runConnect(ctx context.Context, summary *model.RunSummary) error {
	exhausted, err := s.capExhausted(model.CounterConnections, s.ConnectionCap)
	if err != nil {
		return err
	}
	if exhausted {
		log.Printf("[CAP] Daily connection cap already reached (%d). Skipping connect pass.", s.ConnectionCap)
		return nil
	}

	pending, err := s.Repo.GetPendingProfiles(s.batchLimit())
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		log.Println("[DRIVER] No pending profiles to process.")
		return nil
	}
	log.Printf("[DRIVER] Processing %d profiles (connect, cap %d)", len(pending), s.ConnectionCap)

	for i, profile := range pending {
		if cancelled(ctx) {
			log.Println("[DRIVER] Cancelled. Stopping between profiles.")
			return nil
		}
		if err := s.Pacer.CheckCap(model.CounterConnections, s.ConnectionCap); err != nil {
			if appErrors.IsCapReached(err) {
				// The profile that trips the gate is never visited; it
				// stays pending and is reported as the halt point.
				log.Printf("[CAP] Daily connection cap reached (%d). Halting connect pass.", s.ConnectionCap)
				s.report(profile.URL, model.OutcomeCapReached, profile.Status)
				return nil
			}
			return err
		}

		log.Printf("[%d/%d] %s", i+1, len(pending), profile.URL)
		out := s.Executor.SendConnectionRequest(ctx, profile.URL, s.NoteTemplate)

		status, err := s.recordConnectOutcome(profile, out, summary)
		if err != nil {
			return err
		}
		s.report(profile.URL, out.Result, status)

		if out.Result == model.OutcomeCapReached {
			// The banner halt is run-level; the profile was never acted
			// on, so it does not count toward the session tally.
			log.Println("[CAP] Site invitation limit banner. Halting connect pass.")
			return nil
		}
		summary.Processed++
		if out.Err != nil && errors.Is(out.Err, appErrors.ErrSessionInvalid) {
			return appErrors.ErrSessionInvalid
		}

		if i < len(pending)-1 {
			if err := s.pace(ctx, summary.Processed); err != nil {
				return nil // cancelled mid-wait: clean exit
			}
		}
	}
	return nil
}

// recordConnectOutcome maps an executor outcome to a persisted status change.
// Returns the profile's effective status for the progress event.
func (s *CampaignService) recordConnectOutcome(profile model.Profile, out *Outcome, summary *model.RunSummary) (string, error) {
	name := optional(out.Name)

	if s.DryRun {
		// Dry-run records nothing: no status writes, no counters.
		tallyConnect(out.Result, summary)
		return profile.Status, nil
	}

	switch out.Result {
	case model.OutcomeRequestSent:
		if err := s.Repo.UpdateStatus(profile.URL, model.StatusRequestSent, name, nil); err != nil {
			return "", err
		}
		if err := s.Repo.IncrementDailyCounter(model.CounterConnections); err != nil {
			return "", err
		}
		summary.Sent++
		return model.StatusRequestSent, nil

	case model.OutcomeAlreadyPending:
		if err := s.Repo.UpdateStatus(profile.URL, model.StatusRequestSent, name, nil); err != nil {
			return "", err
		}
		summary.Skipped++
		return model.StatusRequestSent, nil

	case model.OutcomeAlreadyConnected:
		if err := s.Repo.UpdateStatus(profile.URL, model.StatusConnected, name, nil); err != nil {
			return "", err
		}
		summary.Skipped++
		return model.StatusConnected, nil

	case model.OutcomeSkipped:
		if err := s.Repo.UpdateStatus(profile.URL, model.StatusSkipped, name, nil); err != nil {
			return "", err
		}
		summary.Skipped++
		return model.StatusSkipped, nil

	case model.OutcomeCapReached:
		// The profile stays pending: it will be retried once the limit
		// clears. The halt itself is run-level, not a profile outcome.
		return profile.Status, nil

	default: // error
		msg := out.Detail
		if err := s.Repo.UpdateStatus(profile.URL, model.StatusError, name, &msg); err != nil {
			return "", err
		}
		summary.Errors++
		return model.StatusError, nil
	}
}

// ====================== Message pass ======================

func (s *CampaignService) runMessage(ctx context.Context, summary *model.RunSummary) error {
	exhausted, err := s.capExhausted(model.CounterMessages, s.MessageCap)
	if err != nil {
		return err
	}
	if exhausted {
		log.Printf("[CAP] Daily message cap already reached (%d). Skipping message pass.", s.MessageCap)
		return nil
	}

	accepted, err := s.Repo.GetAcceptedProfiles(s.batchLimit())
	if err != nil {
		return err
	}
	if len(accepted) == 0 {
		log.Println("[DRIVER] No follow-up candidates to process.")
		return nil
	}
	log.Printf("[DRIVER] Processing %d profiles (message, cap %d)", len(accepted), s.MessageCap)

	for i, profile := range accepted {
		if cancelled(ctx) {
			log.Println("[DRIVER] Cancelled. Stopping between profiles.")
			return nil
		}
		if err := s.Pacer.CheckCap(model.CounterMessages, s.MessageCap); err != nil {
			if appErrors.IsCapReached(err) {
				log.Printf("[CAP] Daily message cap reached (%d). Halting message pass.", s.MessageCap)
				s.report(profile.URL, model.OutcomeCapReached, profile.Status)
				return nil
			}
			return err
		}

		log.Printf("[%d/%d] %s", i+1, len(accepted), profile.URL)
		out := s.Executor.SendFollowUpMessage(ctx, profile.URL, s.FollowUpTemplate)

		status, err := s.recordMessageOutcome(profile, out, summary)
		if err != nil {
			return err
		}
		s.report(profile.URL, out.Result, status)
		summary.Processed++

		if out.Err != nil && errors.Is(out.Err, appErrors.ErrSessionInvalid) {
			return appErrors.ErrSessionInvalid
		}

		if i < len(accepted)-1 {
			if err := s.pace(ctx, summary.Processed); err != nil {
				return nil
			}
		}
	}
	return nil
}

func (s *CampaignService) recordMessageOutcome(profile model.Profile, out *Outcome, summary *model.RunSummary) (string, error) {
	name := optional(out.Name)

	if s.DryRun {
		tallyMessage(out.Result, summary)
		return profile.Status, nil
	}

	switch out.Result {
	case model.OutcomeMessaged:
		if err := s.Repo.UpdateStatus(profile.URL, model.StatusMessaged, name, nil); err != nil {
			return "", err
		}
		if err := s.Repo.IncrementDailyCounter(model.CounterMessages); err != nil {
			return "", err
		}
		summary.Sent++
		return model.StatusMessaged, nil

	case model.OutcomeNotConnected:
		// Invitation not accepted yet: status unchanged, still a candidate.
		summary.Skipped++
		return profile.Status, nil

	case model.OutcomeSkipped:
		if err := s.Repo.UpdateStatus(profile.URL, model.StatusSkipped, name, nil); err != nil {
			return "", err
		}
		summary.Skipped++
		return model.StatusSkipped, nil

	default: // error
		msg := out.Detail
		if err := s.Repo.UpdateStatus(profile.URL, model.StatusError, name, &msg); err != nil {
			return "", err
		}
		summary.Errors++
		return model.StatusError, nil
	}
}

// ====================== Helpers ======================

// capExhausted reports whether today's counter already consumed the cap.
func (s *CampaignService) capExhausted(kind string, cap int) (bool, error) {
	count, err := s.Repo.GetDailyCount(kind)
	if err != nil {
		return false, err
	}
	return count >= cap, nil
}

func (s *CampaignService) batchLimit() int {
	if s.BatchLimit > 0 {
		return s.BatchLimit
	}
	return 100
}

func (s *CampaignService) pace(ctx context.Context, processed int) error {
	paused, err := s.Pacer.MaybeLongPause(ctx, processed)
	if err != nil {
		return err
	}
	if paused {
		return nil
	}
	return s.Pacer.WaitBetweenProfiles(ctx)
}

func (s *CampaignService) report(url, outcome, status string) {
	if s.Reporter == nil {
		return
	}
	s.Reporter.Report(model.ProgressEvent{
		URL:       url,
		Outcome:   outcome,
		Status:    status,
		Timestamp: time.Now(),
	})
}

func tallyConnect(result string, summary *model.RunSummary) {
	switch result {
	case model.OutcomeRequestSent, model.OutcomeDryRunPreview:
		summary.Sent++
	case model.OutcomeError:
		summary.Errors++
	case model.OutcomeCapReached:
		// run-level halt, not a profile outcome
	default:
		summary.Skipped++
	}
}

func tallyMessage(result string, summary *model.RunSummary) {
	switch result {
	case model.OutcomeMessaged, model.OutcomeDryRunPreview:
		summary.Sent++
	case model.OutcomeError:
		summary.Errors++
	default:
		summary.Skipped++
	}
}

func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
