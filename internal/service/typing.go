// internal/service/typing.go
package service

import (
	"math/rand"
	"time"

	"github.com/unclebandit/linkreach-backend/internal/config"
)

// Keystroke is one character of a typing plan plus the pause taken before
// the next one.
type Keystroke struct {
	Char  rune
	Delay time.Duration
}

// TypingPlan turns a message into a character-by-character plan with a
// uniform-random inter-keystroke delay drawn from r. The jittered typing is
// an anti-detection measure: the executor replays the plan against the chat
// surface, and keeping the policy pure keeps the timing testable.
func TypingPlan(text string, r config.Range) []Keystroke {
	runes := []rune(text)
	plan := make([]Keystroke, len(runes))
	for i, ch := range runes {
		plan[i] = Keystroke{Char: ch, Delay: randomDuration(r)}
	}
	return plan
}

// randomDuration draws uniformly from [r.Min, r.Max].
func randomDuration(r config.Range) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(rand.Int63n(int64(r.Max-r.Min)+1))
}
