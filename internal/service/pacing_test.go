// internal/service/pacing_test.go
package service

import (
	"context"
	"testing"
	"time"

	"github.com/unclebandit/linkreach-backend/internal/config"
	appErrors "github.com/unclebandit/linkreach-backend/internal/errors"
	"github.com/unclebandit/linkreach-backend/internal/model"
)

// recordingSleep captures requested sleep durations without sleeping.
type recordingSleep struct {
	durations []time.Duration
}

func (r *recordingSleep) fn(_ context.Context, d time.Duration) error {
	r.durations = append(r.durations, d)
	return nil
}

func TestCheckCapBelowCap(t *testing.T) {
	repo := newFakeRepo()
	repo.counts[model.CounterConnections] = 5

	p := &Pacer{Repo: repo}
	if err := p.CheckCap(model.CounterConnections, 20); err != nil {
		t.Errorf("Expected no error below cap, got %v", err)
	}
}

func TestCheckCapAtCap(t *testing.T) {
	repo := newFakeRepo()
	repo.counts[model.CounterConnections] = 20

	p := &Pacer{Repo: repo}
	err := p.CheckCap(model.CounterConnections, 20)
	if err == nil {
		t.Fatal("Expected cap error at cap")
	}
	if !appErrors.IsCapReached(err) {
		t.Errorf("Expected ErrCapReached, got %v", err)
	}
}

func TestWaitBetweenProfilesStaysInRange(t *testing.T) {
	rec := &recordingSleep{}
	p := &Pacer{
		ProfileDelay: config.Range{Min: 45 * time.Second, Max: 90 * time.Second},
		Sleep:        rec.fn,
	}

	for i := 0; i < 20; i++ {
		if err := p.WaitBetweenProfiles(context.Background()); err != nil {
			t.Fatalf("WaitBetweenProfiles failed: %v", err)
		}
	}
	for i, d := range rec.durations {
		if d < 45*time.Second || d > 90*time.Second {
			t.Errorf("Sleep %d: duration %v outside [45s, 90s]", i, d)
		}
	}
}

func TestWaitSkippedInDryRun(t *testing.T) {
	rec := &recordingSleep{}
	p := &Pacer{
		ProfileDelay: config.Range{Min: time.Hour, Max: time.Hour},
		ActionDelay:  config.Range{Min: time.Hour, Max: time.Hour},
		DryRun:       true,
		Sleep:        rec.fn,
	}

	if err := p.WaitBetweenProfiles(context.Background()); err != nil {
		t.Fatalf("WaitBetweenProfiles failed: %v", err)
	}
	if err := p.WaitBetweenActions(context.Background()); err != nil {
		t.Fatalf("WaitBetweenActions failed: %v", err)
	}
	if len(rec.durations) != 0 {
		t.Errorf("Dry run should never sleep, slept %d times", len(rec.durations))
	}
}

func TestMaybeLongPauseEveryN(t *testing.T) {
	rec := &recordingSleep{}
	p := &Pacer{
		LongPauseEvery: 10,
		LongPause:      config.Range{Min: 5 * time.Minute, Max: 10 * time.Minute},
		Sleep:          rec.fn,
	}

	var pauses int
	for processed := 1; processed <= 30; processed++ {
		paused, err := p.MaybeLongPause(context.Background(), processed)
		if err != nil {
			t.Fatalf("MaybeLongPause failed: %v", err)
		}
		if paused {
			pauses++
			if processed%10 != 0 {
				t.Errorf("Paused at processed=%d, expected multiples of 10 only", processed)
			}
		}
	}
	if pauses != 3 {
		t.Errorf("Expected 3 long pauses over 30 profiles, got %d", pauses)
	}
	for i, d := range rec.durations {
		if d < 5*time.Minute || d > 10*time.Minute {
			t.Errorf("Pause %d: duration %v outside [5m, 10m]", i, d)
		}
	}
}

func TestMaybeLongPauseDisabled(t *testing.T) {
	p := &Pacer{LongPauseEvery: 0}
	paused, err := p.MaybeLongPause(context.Background(), 10)
	if err != nil {
		t.Fatalf("MaybeLongPause failed: %v", err)
	}
	if paused {
		t.Error("LongPauseEvery=0 should disable long pauses")
	}
}

func TestCtxSleepCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := ctxSleep(ctx, time.Minute)
	if err == nil {
		t.Fatal("Expected context error from cancelled sleep")
	}
	if time.Since(start) > time.Second {
		t.Error("Cancelled sleep should return immediately")
	}
}
