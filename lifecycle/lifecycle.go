// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package lifecycle derives a poll's voting window state from its stored
// timestamps. Nothing is persisted; every call recomputes the state.
package lifecycle

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/livepoll/models"
)

type State int

const (
	Scheduled State = iota
	Active
	Ended
)

// String returns the wire form used in poll-state pushes.
func (s State) String() string {
	switch s {
	case Scheduled:
		return models.StatusScheduled
	case Ended:
		return models.StatusEnded
	default:
		return models.StatusActive
	}
}

// Evaluate reports whether poll is open for votes at now. A poll with no
// bounds is always Active. The opening bound is inclusive and the closing
// bound exclusive.
func Evaluate(poll models.Poll, now time.Time) State {
	if poll.ScheduledFor != nil && now.Before(*poll.ScheduledFor) {
		return Scheduled
	}
	if poll.ExpiresAt != nil && !now.Before(*poll.ExpiresAt) {
		return Ended
	}
	return Active
}

// Describe returns a short human message for a poll that is not Active,
// e.g. "voting opens 3 minutes from now". Active polls describe as "".
func Describe(poll models.Poll, now time.Time) string {
	switch Evaluate(poll, now) {
	case Scheduled:
		return "voting opens " + humanize.RelTime(*poll.ScheduledFor, now, "ago", "from now")
	case Ended:
		return "voting ended " + humanize.RelTime(*poll.ExpiresAt, now, "ago", "from now")
	default:
		return ""
	}
}
