package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"calTrackAPI/internal/challenge"
	"calTrackAPI/internal/workout"
)

// WorkoutService owns the activity records and feeds the progress
// engine: creating a workout applies its event incrementally, while
// edits, deletions and completion toggles trigger a full
// recalculation, since a cheap delta cannot be derived for those.
type WorkoutService struct {
	db         *pgxpool.Pool
	challenges *ChallengeService
}

func NewWorkoutService(db *pgxpool.Pool, challenges *ChallengeService) *WorkoutService {
	return &WorkoutService{
		db:         db,
		challenges: challenges,
	}
}

func (s *WorkoutService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrUserNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return userID, nil
}

const workoutColumns = `id, user_id, type, calories, duration_min, distance_miles, workout_date, completed, notes, created_at, updated_at`

func scanWorkout(row pgx.Row) (*workout.Workout, error) {
	w := &workout.Workout{}
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Type,
		&w.Calories,
		&w.DurationMin,
		&w.DistanceMiles,
		&w.Date,
		&w.Completed,
		&w.Notes,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// CreateWorkout stores the record and pushes its event through the
// incremental path. The returned challenges are the ones whose
// progress moved.
func (s *WorkoutService) CreateWorkout(ctx context.Context, clerkID string, req *workout.CreateWorkoutRequest) (*workout.Workout, []*challenge.Challenge, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, nil, err
	}

	if req.Type == "" {
		return nil, nil, fmt.Errorf("workout type is required")
	}
	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}

	query := `
	INSERT INTO workouts (id, user_id, type, calories, duration_min, distance_miles, workout_date, completed, notes, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, NOW(), NOW())
	RETURNING ` + workoutColumns

	w, err := scanWorkout(s.db.QueryRow(
		ctx,
		query,
		uuid.New(),
		userID,
		req.Type,
		req.Calories,
		req.DurationMin,
		req.DistanceMiles,
		date,
		req.Notes,
	))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create workout: %w", err)
	}

	updated, err := s.challenges.ApplyEvent(ctx, userID, w.Event())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to apply workout to challenges: %w", err)
	}

	return w, updated, nil
}

func (s *WorkoutService) GetWorkout(ctx context.Context, clerkID string, workoutID uuid.UUID) (*workout.Workout, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	w, err := scanWorkout(s.db.QueryRow(ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE id = $1 AND user_id = $2`,
		workoutID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkoutNotFound
		}
		return nil, fmt.Errorf("failed to get workout: %w", err)
	}
	return w, nil
}

func (s *WorkoutService) ListWorkouts(ctx context.Context, clerkID string, from, to time.Time) ([]*workout.Workout, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+workoutColumns+`
		FROM workouts
		WHERE user_id = $1 AND workout_date BETWEEN $2 AND $3
		ORDER BY workout_date DESC, created_at DESC`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workouts: %w", err)
	}
	defer rows.Close()

	var workouts []*workout.Workout
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workout: %w", err)
		}
		workouts = append(workouts, w)
	}

	return workouts, rows.Err()
}

// UpdateWorkout edits a record in place, then rebuilds the user's
// challenge progress from scratch: the old contribution cannot be
// reversed incrementally once the fields have changed.
func (s *WorkoutService) UpdateWorkout(ctx context.Context, clerkID string, workoutID uuid.UUID, req *workout.UpdateWorkoutRequest) (*workout.Workout, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	UPDATE workouts
	SET
		type = COALESCE($3, type),
		calories = COALESCE($4, calories),
		duration_min = COALESCE($5, duration_min),
		distance_miles = COALESCE($6, distance_miles),
		workout_date = COALESCE($7, workout_date),
		notes = COALESCE($8, notes),
		updated_at = NOW()
	WHERE id = $1 AND user_id = $2
	RETURNING ` + workoutColumns

	w, err := scanWorkout(s.db.QueryRow(
		ctx,
		query,
		workoutID,
		userID,
		req.Type,
		req.Calories,
		req.DurationMin,
		req.DistanceMiles,
		req.Date,
		req.Notes,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkoutNotFound
		}
		return nil, fmt.Errorf("failed to update workout: %w", err)
	}

	if _, err := s.challenges.Recalculate(ctx, userID, nil); err != nil {
		return nil, fmt.Errorf("failed to recalculate challenges: %w", err)
	}

	return w, nil
}

func (s *WorkoutService) DeleteWorkout(ctx context.Context, clerkID string, workoutID uuid.UUID) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx, `DELETE FROM workouts WHERE id = $1 AND user_id = $2`, workoutID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete workout: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}

	if _, err := s.challenges.Recalculate(ctx, userID, nil); err != nil {
		return fmt.Errorf("failed to recalculate challenges: %w", err)
	}

	return nil
}

// ToggleCompletion flips the workout's completed flag and runs a full
// recalculation as a consistency pass.
func (s *WorkoutService) ToggleCompletion(ctx context.Context, clerkID string, workoutID uuid.UUID) (*workout.Workout, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	w, err := scanWorkout(s.db.QueryRow(ctx, `
		UPDATE workouts
		SET completed = NOT completed, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+workoutColumns,
		workoutID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkoutNotFound
		}
		return nil, fmt.Errorf("failed to toggle workout completion: %w", err)
	}

	if _, err := s.challenges.Recalculate(ctx, userID, nil); err != nil {
		return nil, fmt.Errorf("failed to recalculate challenges: %w", err)
	}

	return w, nil
}
