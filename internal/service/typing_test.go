// internal/service/typing_test.go
package service

import (
	"testing"
	"time"

	"github.com/unclebandit/linkreach-backend/internal/config"
)

func TestTypingPlanCoversEveryRune(t *testing.T) {
	text := "Hey Zoë 👋"
	plan := TypingPlan(text, config.Range{Min: 30 * time.Millisecond, Max: 120 * time.Millisecond})

	runes := []rune(text)
	if len(plan) != len(runes) {
		t.Fatalf("Expected %d keystrokes, got %d", len(runes), len(plan))
	}
	for i, ks := range plan {
		if ks.Char != runes[i] {
			t.Errorf("Keystroke %d: expected %q, got %q", i, runes[i], ks.Char)
		}
	}
}

func TestTypingPlanDelaysWithinRange(t *testing.T) {
	r := config.Range{Min: 30 * time.Millisecond, Max: 120 * time.Millisecond}
	plan := TypingPlan("some longer message to sample the distribution", r)
	for i, ks := range plan {
		if ks.Delay < r.Min || ks.Delay > r.Max {
			t.Errorf("Keystroke %d delay %v outside [%v, %v]", i, ks.Delay, r.Min, r.Max)
		}
	}
}

func TestTypingPlanEmptyText(t *testing.T) {
	plan := TypingPlan("", config.Range{Min: time.Millisecond, Max: time.Millisecond})
	if len(plan) != 0 {
		t.Errorf("Empty text should produce an empty plan, got %d keystrokes", len(plan))
	}
}

func TestRandomDurationDegenerateRange(t *testing.T) {
	d := randomDuration(config.Range{Min: 50 * time.Millisecond, Max: 50 * time.Millisecond})
	if d != 50*time.Millisecond {
		t.Errorf("Degenerate range should return Min, got %v", d)
	}
}
