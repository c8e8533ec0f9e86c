package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calTrackAPI/internal/challenge"
	"calTrackAPI/internal/workout"
)

func testChallenge(cType challenge.Type, unit challenge.Unit) *challenge.Challenge {
	return &challenge.Challenge{
		Name:      "Test Challenge",
		Type:      cType,
		Unit:      unit,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	}
}

func eventOn(day int) workout.Event {
	return workout.Event{
		Type: "running",
		Date: time.Date(2026, 1, day, 10, 0, 0, 0, time.UTC),
	}
}

func TestIncrementWorkoutCountsOnePerEvent(t *testing.T) {
	ch := testChallenge(challenge.TypeWorkout, challenge.UnitCount)

	inc, err := Increment(ch, eventOn(10))
	require.NoError(t, err)
	assert.Equal(t, 1.0, inc)

	// custom challenges count occurrences the same way
	ch = testChallenge(challenge.TypeCustom, challenge.UnitCount)
	inc, err = Increment(ch, eventOn(10))
	require.NoError(t, err)
	assert.Equal(t, 1.0, inc)
}

func TestIncrementWorkoutIgnoresUntypedEvent(t *testing.T) {
	ch := testChallenge(challenge.TypeWorkout, challenge.UnitCount)

	ev := eventOn(10)
	ev.Type = ""
	inc, err := Increment(ch, ev)
	require.NoError(t, err)
	assert.Zero(t, inc)
}

func TestIncrementCalories(t *testing.T) {
	ch := testChallenge(challenge.TypeCalorie, challenge.UnitCalories)

	ev := eventOn(5)
	ev.Calories = 320
	inc, err := Increment(ch, ev)
	require.NoError(t, err)
	assert.Equal(t, 320.0, inc)

	ev.Calories = 0
	inc, err = Increment(ch, ev)
	require.NoError(t, err)
	assert.Zero(t, inc)
}

func TestIncrementDistanceConversion(t *testing.T) {
	ev := eventOn(5)
	ev.DistanceMiles = 5

	km := testChallenge(challenge.TypeDistance, challenge.UnitKilometers)
	inc, err := Increment(km, ev)
	require.NoError(t, err)
	assert.InDelta(t, 8.04672, inc, 0.0001)

	miles := testChallenge(challenge.TypeDistance, challenge.UnitMiles)
	inc, err = Increment(miles, ev)
	require.NoError(t, err)
	assert.Equal(t, 5.0, inc)
}

func TestIncrementDurationConversion(t *testing.T) {
	ev := eventOn(5)
	ev.DurationMin = 90

	hours := testChallenge(challenge.TypeDuration, challenge.UnitHours)
	inc, err := Increment(hours, ev)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, inc, 0.0001)

	minutes := testChallenge(challenge.TypeDuration, challenge.UnitMinutes)
	inc, err = Increment(minutes, ev)
	require.NoError(t, err)
	assert.Equal(t, 90.0, inc)
}

func TestIncrementInvalidUnitReportsConfigurationError(t *testing.T) {
	ch := testChallenge(challenge.TypeDistance, challenge.UnitCalories)

	ev := eventOn(5)
	ev.DistanceMiles = 3
	inc, err := Increment(ch, ev)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Zero(t, inc)

	ch = testChallenge(challenge.TypeDuration, challenge.UnitCount)
	ev.DurationMin = 30
	inc, err = Increment(ch, ev)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Zero(t, inc)
}

func TestIncrementWindowIsInclusive(t *testing.T) {
	ch := testChallenge(challenge.TypeWorkout, challenge.UnitCount)

	cases := []struct {
		name string
		date time.Time
		want float64
	}{
		{"day before start", time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC), 0},
		{"start date", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 1},
		{"end date, late in the day", time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC), 1},
		{"day after end", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := workout.Event{Type: "running", Date: tc.date}
			inc, err := Increment(ch, ev)
			require.NoError(t, err)
			assert.Equal(t, tc.want, inc)
		})
	}
}

func TestTotalSumsCalorieHistory(t *testing.T) {
	ch := testChallenge(challenge.TypeCalorie, challenge.UnitCalories)

	events := []workout.Event{}
	for i, cals := range []int{200, 200, 150} {
		ev := eventOn(i + 1)
		ev.Calories = cals
		events = append(events, ev)
	}

	total, err := Total(ch, events)
	require.NoError(t, err)
	assert.Equal(t, 550.0, total)
}

func TestTotalSkipsOutOfWindowEvents(t *testing.T) {
	ch := testChallenge(challenge.TypeCalorie, challenge.UnitCalories)

	inWindow := eventOn(15)
	inWindow.Calories = 400

	outside := workout.Event{
		Type:     "running",
		Calories: 999,
		Date:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	total, err := Total(ch, []workout.Event{inWindow, outside})
	require.NoError(t, err)
	assert.Equal(t, 400.0, total)
}

func TestTotalSurfacesConfigurationErrorButKeepsCounting(t *testing.T) {
	ch := testChallenge(challenge.TypeDistance, challenge.UnitHours)

	ev := eventOn(10)
	ev.DistanceMiles = 2

	total, err := Total(ch, []workout.Event{ev, ev})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Zero(t, total)
}
