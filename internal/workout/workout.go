package workout

import (
	"time"

	"github.com/google/uuid"
)

// Workout is the persisted activity record. Distance is stored in
// miles and duration in minutes; challenge units convert from these at
// calculation time.
type Workout struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Type          string    `json:"type" db:"type"`
	Calories      int       `json:"calories" db:"calories"`
	DurationMin   int       `json:"duration_min" db:"duration_min"`
	DistanceMiles float64   `json:"distance_miles" db:"distance_miles"`
	Date          time.Time `json:"date" db:"workout_date"`
	Completed     bool      `json:"completed" db:"completed"`
	Notes         string    `json:"notes" db:"notes"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Event is one normalized workout occurrence as consumed by the
// progress engine.
type Event struct {
	Type          string    `json:"type"`
	Calories      int       `json:"calories"`
	DurationMin   int       `json:"duration_min"`
	DistanceMiles float64   `json:"distance_miles"`
	Date          time.Time `json:"date"`
}

// Event converts a stored workout into the engine's input shape.
func (w *Workout) Event() Event {
	return Event{
		Type:          w.Type,
		Calories:      w.Calories,
		DurationMin:   w.DurationMin,
		DistanceMiles: w.DistanceMiles,
		Date:          w.Date,
	}
}

type CreateWorkoutRequest struct {
	Type          string    `json:"type"`
	Calories      int       `json:"calories"`
	DurationMin   int       `json:"duration_min"`
	DistanceMiles float64   `json:"distance_miles"`
	Date          time.Time `json:"date"`
	Notes         string    `json:"notes"`
}

type UpdateWorkoutRequest struct {
	Type          *string    `json:"type,omitempty"`
	Calories      *int       `json:"calories,omitempty"`
	DurationMin   *int       `json:"duration_min,omitempty"`
	DistanceMiles *float64   `json:"distance_miles,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}
