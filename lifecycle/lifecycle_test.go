// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package lifecycle

import (
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/livepoll/models"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	tests := []struct {
		name      string
		scheduled *time.Time
		expires   *time.Time
		want      State
	}{
		{"no bounds", nil, nil, Active},
		{"opened earlier", &before, nil, Active},
		{"opens exactly now", &now, nil, Active},
		{"opens later", &after, nil, Scheduled},
		{"expires later", nil, &after, Active},
		{"expires exactly now", nil, &now, Ended},
		{"expired", nil, &before, Ended},
		{"inside window", &before, &after, Active},
		{"before window", &after, &after, Scheduled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poll := models.Poll{ScheduledFor: tt.scheduled, ExpiresAt: tt.expires}
			if got := Evaluate(poll, now); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	if Scheduled.String() != models.StatusScheduled || Active.String() != models.StatusActive || Ended.String() != models.StatusEnded {
		t.Error("state strings do not match wire statuses")
	}
}

func TestDescribe(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	opens := now.Add(3 * time.Minute)
	ended := now.Add(-2 * time.Hour)

	if got := Describe(models.Poll{}, now); got != "" {
		t.Errorf("Describe(active) = %q, want empty", got)
	}

	got := Describe(models.Poll{ScheduledFor: &opens}, now)
	if !strings.HasPrefix(got, "voting opens") || !strings.Contains(got, "from now") {
		t.Errorf("Describe(scheduled) = %q", got)
	}

	got = Describe(models.Poll{ExpiresAt: &ended}, now)
	if got != "voting ended 2 hours ago" {
		t.Errorf("Describe(ended) = %q", got)
	}
}
