package challenge

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeWorkout  Type = "workout"
	TypeCalorie  Type = "calorie"
	TypeDistance Type = "distance"
	TypeDuration Type = "duration"
	TypeCustom   Type = "custom"
)

type Unit string

const (
	UnitCount      Unit = "count"
	UnitCalories   Unit = "calories"
	UnitKilometers Unit = "km"
	UnitMiles      Unit = "miles"
	UnitMinutes    Unit = "minutes"
	UnitHours      Unit = "hours"
)

type Challenge struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Type        Type       `json:"type" db:"type"`
	Unit        Unit       `json:"unit" db:"unit"`
	TargetValue float64    `json:"target_value" db:"target_value"`
	StartDate   time.Time  `json:"start_date" db:"start_date"`
	EndDate     time.Time  `json:"end_date" db:"end_date"`
	BadgeID     *uuid.UUID `json:"badge_id,omitempty" db:"badge_id"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

type Participant struct {
	ChallengeID uuid.UUID  `json:"challenge_id" db:"challenge_id"`
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	Progress    float64    `json:"progress" db:"progress"`
	Completed   bool       `json:"completed" db:"completed"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	JoinedAt    time.Time  `json:"joined_at" db:"joined_at"`
}

// ChallengeWithProgress is the API shape for challenge listings: the
// challenge itself plus the requesting user's participation, if any.
type ChallengeWithProgress struct {
	Challenge
	Joined      bool       `json:"joined"`
	Progress    float64    `json:"progress"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type CreateChallengeRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        Type       `json:"type"`
	Unit        Unit       `json:"unit"`
	TargetValue float64    `json:"target_value"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	BadgeID     *uuid.UUID `json:"badge_id,omitempty"`
}

// validUnits lists the units accepted per challenge type. Distance and
// duration each support exactly two; anything else is rejected at
// creation time rather than silently miscounted later.
var validUnits = map[Type][]Unit{
	TypeWorkout:  {UnitCount},
	TypeCalorie:  {UnitCalories},
	TypeDistance: {UnitKilometers, UnitMiles},
	TypeDuration: {UnitMinutes, UnitHours},
	TypeCustom:   {UnitCount},
}

func (r *CreateChallengeRequest) Validate() error {
	units, ok := validUnits[r.Type]
	if !ok {
		return fmt.Errorf("unknown challenge type %q", r.Type)
	}
	unitOK := false
	for _, u := range units {
		if r.Unit == u {
			unitOK = true
			break
		}
	}
	if !unitOK {
		return fmt.Errorf("unit %q is not valid for challenge type %q", r.Unit, r.Type)
	}
	if r.TargetValue < 0 {
		return fmt.Errorf("target value must not be negative")
	}
	if r.EndDate.Before(r.StartDate) {
		return fmt.Errorf("end date must not be before start date")
	}
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// dayOf normalizes a timestamp to its wall-clock date. Components are
// taken in the value's own location, so a workout logged late in the
// evening counts on the day the user saw, not the UTC day.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// InWindow reports whether a workout date falls inside the challenge
// window. The window is inclusive on both ends and date-granular, so a
// workout logged at any time on the end date still counts.
func (c *Challenge) InWindow(date time.Time) bool {
	day := dayOf(date)
	start := dayOf(c.StartDate)
	end := dayOf(c.EndDate)
	return !day.Before(start) && !day.After(end)
}

// TargetMet is the completion predicate shared by the incremental and
// recalculation paths. A non-positive target can never be met: with
// nothing to cross, zero qualifying activity must leave the
// participant active instead of completing on the spot.
func TargetMet(progress, target float64) bool {
	return target > 0 && progress >= target
}
