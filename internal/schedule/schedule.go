// Package schedule models when a job becomes due. Each schedule kind is a
// concrete Spec with its own next-due computation, so call sites never
// branch on the kind tag themselves.
package schedule

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LarryDahl/TODOv2/internal/clock"
	"github.com/LarryDahl/TODOv2/internal/model"
)

// Schedule kinds as persisted in the scheduled_jobs table.
const (
	KindOnce     = "once"
	KindInterval = "interval"
	KindCron     = "cron"
)

// onceGrace tolerates one-off instants slightly in the past; beyond it the
// schedule can never produce a future instant and enqueueing is rejected.
const onceGrace = 5 * time.Minute

// Spec computes due instants for one schedule kind.
type Spec interface {
	Kind() string
	// FirstDue is the initial due instant, computed at enqueue time.
	FirstDue(now time.Time) (time.Time, error)
	// NextAfter is the due instant following a successful run that was due
	// at due. ok is false when the job does not recur. Recurring kinds must
	// return an instant strictly in the future.
	NextAfter(due, now time.Time) (next time.Time, ok bool)
}

// Once fires a single time at a fixed instant.
type Once struct {
	At time.Time `json:"at"`
}

func (Once) Kind() string { return KindOnce }

func (o Once) FirstDue(now time.Time) (time.Time, error) {
	if o.At.Before(now.Add(-onceGrace)) {
		return time.Time{}, fmt.Errorf("%w: one-off instant %s already passed", model.ErrValidation, clock.FormatUTC(o.At))
	}
	return o.At, nil
}

func (Once) NextAfter(_, _ time.Time) (time.Time, bool) {
	return time.Time{}, false
}

// Interval fires every fixed number of minutes. Advancement steps from the
// previous due instant, not the completion instant, skipping slots that
// went by while the engine was offline.
type Interval struct {
	Minutes int `json:"minutes"`
}

func (Interval) Kind() string { return KindInterval }

func (i Interval) every() time.Duration { return time.Duration(i.Minutes) * time.Minute }

func (i Interval) FirstDue(now time.Time) (time.Time, error) {
	if i.Minutes <= 0 {
		return time.Time{}, fmt.Errorf("%w: interval must be positive", model.ErrValidation)
	}
	return now.Add(i.every()), nil
}

func (i Interval) NextAfter(due, now time.Time) (time.Time, bool) {
	if i.Minutes <= 0 {
		return time.Time{}, false
	}
	next := due.Add(i.every())
	for !next.After(now) {
		next = next.Add(i.every())
	}
	return next, true
}

// Cron fires on a standard five-field cron expression, always at the next
// matching instant strictly after now.
type Cron struct {
	Expr string `json:"expr"`
}

func (Cron) Kind() string { return KindCron }

func (c Cron) parse() (cron.Schedule, error) {
	sched, err := cron.ParseStandard(c.Expr)
	if err != nil {
		return nil, fmt.Errorf("%w: cron expression %q: %v", model.ErrValidation, c.Expr, err)
	}
	return sched, nil
}

func (c Cron) FirstDue(now time.Time) (time.Time, error) {
	sched, err := c.parse()
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(now), nil
}

func (c Cron) NextAfter(_, now time.Time) (time.Time, bool) {
	sched, err := c.parse()
	if err != nil {
		return time.Time{}, false
	}
	return sched.Next(now), true
}

// Encode serializes a spec into its kind tag and JSON parameters for
// storage.
func Encode(s Spec) (kind, params string, err error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", "", fmt.Errorf("encode schedule: %w", err)
	}
	return s.Kind(), string(raw), nil
}

// Decode rebuilds a spec from its stored kind tag and JSON parameters.
func Decode(kind, params string) (Spec, error) {
	switch kind {
	case KindOnce:
		var s Once
		if err := json.Unmarshal([]byte(params), &s); err != nil {
			return nil, fmt.Errorf("decode once schedule: %w", err)
		}
		return s, nil
	case KindInterval:
		var s Interval
		if err := json.Unmarshal([]byte(params), &s); err != nil {
			return nil, fmt.Errorf("decode interval schedule: %w", err)
		}
		return s, nil
	case KindCron:
		var s Cron
		if err := json.Unmarshal([]byte(params), &s); err != nil {
			return nil, fmt.Errorf("decode cron schedule: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown schedule kind %q", model.ErrValidation, kind)
	}
}
