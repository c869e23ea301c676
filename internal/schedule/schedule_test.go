package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LarryDahl/TODOv2/internal/model"
)

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestOnceFirstDue(t *testing.T) {
	at := base.Add(2 * time.Hour)
	due, err := Once{At: at}.FirstDue(base)
	require.NoError(t, err)
	assert.Equal(t, at, due)

	// Slightly in the past is tolerated.
	due, err = Once{At: base.Add(-time.Minute)}.FirstDue(base)
	require.NoError(t, err)
	assert.Equal(t, base.Add(-time.Minute), due)

	// Beyond the grace window the schedule can never fire.
	_, err = Once{At: base.Add(-time.Hour)}.FirstDue(base)
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestOnceDoesNotRecur(t *testing.T) {
	_, ok := Once{At: base}.NextAfter(base, base.Add(time.Minute))
	assert.False(t, ok)
}

func TestIntervalFirstDue(t *testing.T) {
	due, err := Interval{Minutes: 60}.FirstDue(base)
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Hour), due)

	_, err = Interval{Minutes: 0}.FirstDue(base)
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestIntervalAdvancesFromDueInstant(t *testing.T) {
	spec := Interval{Minutes: 60}
	due := base

	// Reported five minutes after becoming due: the grid stays anchored on
	// the due instant, not on the completion instant.
	next, ok := spec.NextAfter(due, base.Add(5*time.Minute))
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Hour), next)
}

func TestIntervalSkipsMissedSlots(t *testing.T) {
	spec := Interval{Minutes: 60}
	due := base

	// Engine slept for 3.5 intervals; past slots are not replayed.
	next, ok := spec.NextAfter(due, base.Add(3*time.Hour+30*time.Minute))
	require.True(t, ok)
	assert.Equal(t, base.Add(4*time.Hour), next)
}

func TestCronNextStrictlyAfterNow(t *testing.T) {
	spec := Cron{Expr: "0 9 * * *"}

	due, err := spec.FirstDue(base)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC), due)

	next, ok := spec.NextAfter(due, time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC), next)
}

func TestCronRejectsBadExpression(t *testing.T) {
	_, err := Cron{Expr: "not cron"}.FirstDue(base)
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestEncodeDecode(t *testing.T) {
	for _, spec := range []Spec{
		Once{At: base},
		Interval{Minutes: 15},
		Cron{Expr: "*/5 * * * *"},
	} {
		kind, params, err := Encode(spec)
		require.NoError(t, err)

		got, err := Decode(kind, params)
		require.NoError(t, err)
		assert.Equal(t, spec, got)
	}

	_, err := Decode("hourly", "{}")
	assert.True(t, errors.Is(err, model.ErrValidation))
}
