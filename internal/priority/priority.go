// Package priority derives effective sort priorities for tasks.
//
// The effective priority combines a user-declared base (trailing '!'
// markers on the title, capped at 5) with time-based boosts as a due
// instant approaches or passes. It is a pure function of the task and a
// supplied "now": never persisted, always re-derivable.
package priority

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/LarryDahl/TODOv2/internal/clock"
	"github.com/LarryDahl/TODOv2/internal/model"
)

// MaxPriority caps the declared base priority.
const MaxPriority = 5

// Urgency weights. Deadlines ramp up over the last day and jump hard once
// overdue; scheduled instants ramp over the last two hours.
const (
	deadlineBase        = 1.0
	deadlineWindow      = 24 * time.Hour
	overdueBoost        = 50.0
	scheduleBase        = 1.0
	scheduleWindow      = 2 * time.Hour
	schedulePassedBoost = 30.0
)

// ParseTitle splits trailing '!' markers off a raw title. Each trailing
// bang adds one priority point, clamped to MaxPriority. Bangs in the middle
// of the title are left alone.
func ParseTitle(raw string) (string, int) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", 0
	}

	bangs := 0
	for bangs < len(text) && text[len(text)-1-bangs] == '!' {
		bangs++
	}

	prio := bangs
	if prio > MaxPriority {
		prio = MaxPriority
	}
	clean := strings.TrimRight(text[:len(text)-bangs], " \t")
	return clean, prio
}

// RenderTitle is the inverse of ParseTitle: it re-attaches the priority
// markers for display and for the lifecycle log.
func RenderTitle(clean string, prio int) string {
	if prio <= 0 {
		return clean
	}
	if prio > MaxPriority {
		prio = MaxPriority
	}
	return clean + strings.Repeat("!", prio)
}

// Score computes the raw effective priority of a task at the given instant.
// Higher means more urgent.
func Score(t model.Task, now time.Time) float64 {
	score := float64(t.Priority)
	if t.DueAt == nil {
		return score
	}
	due, err := clock.ParseUTC(*t.DueAt)
	if err != nil {
		return score
	}

	if t.Kind == model.TaskKindScheduled {
		return score + boost(due, now, scheduleBase, scheduleWindow, schedulePassedBoost)
	}
	return score + boost(due, now, deadlineBase, deadlineWindow, overdueBoost)
}

// boost ramps linearly from base to max inside the urgency window and
// returns max once the instant has passed.
func boost(due, now time.Time, base float64, window time.Duration, max float64) float64 {
	until := due.Sub(now)
	if until <= 0 {
		return max
	}
	if until >= window {
		return base
	}
	factor := 1.0 - float64(until)/float64(window)
	return base + factor*(max-base)
}

// Effective is the integer form of Score used for ordering. Two decimal
// places of the score are preserved so window ramps still separate tasks.
func Effective(t model.Task, now time.Time) int {
	return int(math.Round(Score(t, now) * 100))
}

// Less orders tasks for display: effective priority descending, then due
// instant ascending (sooner wins, tasks without one sort last), then
// creation order, then id. Fully deterministic for equal inputs.
func Less(a, b model.Task, now time.Time) bool {
	sa, sb := Effective(a, now), Effective(b, now)
	if sa != sb {
		return sa > sb
	}
	switch {
	case a.DueAt != nil && b.DueAt != nil && *a.DueAt != *b.DueAt:
		// RFC3339 UTC strings order chronologically.
		return *a.DueAt < *b.DueAt
	case a.DueAt != nil && b.DueAt == nil:
		return true
	case a.DueAt == nil && b.DueAt != nil:
		return false
	}
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return a.ID < b.ID
}

// Sort orders tasks in place by Less.
func Sort(tasks []model.Task, now time.Time) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return Less(tasks[i], tasks[j], now)
	})
}
