// Package progress is the single source of truth for turning workout
// events into challenge progress. Both the incremental update path and
// the full recalculation path go through it, so the two can never
// drift apart.
package progress

import (
	"errors"

	"calTrackAPI/internal/challenge"
	"calTrackAPI/internal/workout"
)

// MilesToKm converts the stored distance (miles) to kilometers.
const MilesToKm = 1.609344

// ErrInvalidConfiguration marks a challenge whose unit cannot be
// converted from the stored workout fields. The event still counts as
// zero; callers log the condition and carry on.
var ErrInvalidConfiguration = errors.New("challenge unit is not compatible with its type")

// Increment returns the progress contribution of a single event toward
// a challenge. Events outside the challenge window, events missing the
// contributing field, and challenges with an incompatible unit all
// contribute zero; only the last of these also reports
// ErrInvalidConfiguration.
func Increment(ch *challenge.Challenge, ev workout.Event) (float64, error) {
	if !ch.InWindow(ev.Date) {
		return 0, nil
	}
	switch ch.Type {
	case challenge.TypeWorkout, challenge.TypeCustom:
		if ev.Type == "" {
			return 0, nil
		}
		return 1, nil
	case challenge.TypeCalorie:
		if ev.Calories <= 0 {
			return 0, nil
		}
		return float64(ev.Calories), nil
	case challenge.TypeDistance:
		if ev.DistanceMiles <= 0 {
			return 0, nil
		}
		switch ch.Unit {
		case challenge.UnitKilometers:
			return ev.DistanceMiles * MilesToKm, nil
		case challenge.UnitMiles:
			return ev.DistanceMiles, nil
		default:
			return 0, ErrInvalidConfiguration
		}
	case challenge.TypeDuration:
		if ev.DurationMin <= 0 {
			return 0, nil
		}
		switch ch.Unit {
		case challenge.UnitHours:
			return float64(ev.DurationMin) / 60, nil
		case challenge.UnitMinutes:
			return float64(ev.DurationMin), nil
		default:
			return 0, ErrInvalidConfiguration
		}
	}
	return 0, nil
}

// Total sums the contributions of a full event history. Used by
// recalculation; the result is a total, not a replay, so completion is
// decided once against the final sum.
func Total(ch *challenge.Challenge, events []workout.Event) (float64, error) {
	var sum float64
	var confErr error
	for _, ev := range events {
		inc, err := Increment(ch, ev)
		if err != nil {
			confErr = err
		}
		sum += inc
	}
	return sum, confErr
}
