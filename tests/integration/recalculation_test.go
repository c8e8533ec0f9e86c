package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calTrackAPI/internal/challenge"
	"calTrackAPI/internal/workout"
	"calTrackAPI/services"
	"calTrackAPI/tests/helpers"
)

// TestRecalculationAfterWorkoutEdit verifies that editing a workout
// rebuilds progress from the remaining history, including resetting a
// completion that no longer holds.
func TestRecalculationAfterWorkoutEdit(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	defer notificationService.Stop()
	rewardService := services.NewRewardService(pool, notificationService)
	challengeService := services.NewChallengeService(pool, rewardService, notificationService)
	workoutService := services.NewWorkoutService(pool, challengeService)

	ctx := context.Background()
	clerkID := helpers.UniqueClerkID("user_recalc")
	userID := helpers.CreateTestUser(t, pool, clerkID)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	ch, err := challengeService.CreateChallenge(ctx, &challenge.CreateChallengeRequest{
		Name:        "test-8k-week",
		Type:        challenge.TypeDistance,
		Unit:        challenge.UnitKilometers,
		TargetValue: 8,
		StartDate:   today.AddDate(0, 0, -1),
		EndDate:     today.AddDate(0, 0, 6),
	})
	require.NoError(t, err)

	_, err = challengeService.JoinChallenge(ctx, clerkID, ch.ID)
	require.NoError(t, err)

	// a 5 mile run is 8.047 km, just over the 8 km target
	w, updated, err := workoutService.CreateWorkout(ctx, clerkID, &workout.CreateWorkoutRequest{
		Type:          "running",
		DistanceMiles: 5,
		Date:          today,
	})
	require.NoError(t, err)
	require.Len(t, updated, 1)

	progress, completed := participantState(t, pool, ch.ID, userID)
	assert.InDelta(t, 8.047, progress, 0.001)
	assert.True(t, completed)

	// shrinking the run below the target resets the completion
	shorter := 2.0
	_, err = workoutService.UpdateWorkout(ctx, clerkID, w.ID, &workout.UpdateWorkoutRequest{
		DistanceMiles: &shorter,
	})
	require.NoError(t, err)

	progress, completed = participantState(t, pool, ch.ID, userID)
	assert.InDelta(t, 3.219, progress, 0.001)
	assert.False(t, completed)

	// deleting the run drops progress to zero
	err = workoutService.DeleteWorkout(ctx, clerkID, w.ID)
	require.NoError(t, err)

	progress, completed = participantState(t, pool, ch.ID, userID)
	assert.Zero(t, progress)
	assert.False(t, completed)
}

// TestRecalculationIsIdempotent runs an explicit recalculation twice
// against an unchanged history and expects identical state.
func TestRecalculationIsIdempotent(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	defer notificationService.Stop()
	rewardService := services.NewRewardService(pool, notificationService)
	challengeService := services.NewChallengeService(pool, rewardService, notificationService)
	workoutService := services.NewWorkoutService(pool, challengeService)

	ctx := context.Background()
	clerkID := helpers.UniqueClerkID("user_idem")
	userID := helpers.CreateTestUser(t, pool, clerkID)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	ch, err := challengeService.CreateChallenge(ctx, &challenge.CreateChallengeRequest{
		Name:        "test-200-minutes",
		Type:        challenge.TypeDuration,
		Unit:        challenge.UnitMinutes,
		TargetValue: 200,
		StartDate:   today.AddDate(0, 0, -1),
		EndDate:     today.AddDate(0, 0, 6),
	})
	require.NoError(t, err)

	_, err = challengeService.JoinChallenge(ctx, clerkID, ch.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _, err := workoutService.CreateWorkout(ctx, clerkID, &workout.CreateWorkoutRequest{
			Type:        "cycling",
			DurationMin: 45,
			Date:        today,
		})
		require.NoError(t, err)
	}

	_, err = challengeService.Recalculate(ctx, userID, &ch.ID)
	require.NoError(t, err)
	progressA, completedA := participantState(t, pool, ch.ID, userID)

	_, err = challengeService.Recalculate(ctx, userID, &ch.ID)
	require.NoError(t, err)
	progressB, completedB := participantState(t, pool, ch.ID, userID)

	assert.Equal(t, progressA, progressB)
	assert.Equal(t, completedA, completedB)
	assert.Equal(t, 135.0, progressA)
	assert.False(t, completedA)
}

// TestZeroTargetChallengeNeverCompletes pins the crossing semantics: a
// target of zero has nothing to cross, so neither the fast path nor a
// recalculation with or without activity may complete the participant
// or hand out its badge.
func TestZeroTargetChallengeNeverCompletes(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	defer notificationService.Stop()
	userService := services.NewUserService(pool)
	rewardService := services.NewRewardService(pool, notificationService)
	challengeService := services.NewChallengeService(pool, rewardService, notificationService)
	workoutService := services.NewWorkoutService(pool, challengeService)

	ctx := context.Background()
	clerkID := helpers.UniqueClerkID("user_zero")
	userID := helpers.CreateTestUser(t, pool, clerkID)
	badgeID := helpers.CreateTestBadge(t, pool, "zero-target", 50)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	ch, err := challengeService.CreateChallenge(ctx, &challenge.CreateChallengeRequest{
		Name:        "test-zero-target",
		Type:        challenge.TypeWorkout,
		Unit:        challenge.UnitCount,
		TargetValue: 0,
		StartDate:   today.AddDate(0, 0, -1),
		EndDate:     today.AddDate(0, 0, 6),
		BadgeID:     &badgeID,
	})
	require.NoError(t, err)

	_, err = challengeService.JoinChallenge(ctx, clerkID, ch.ID)
	require.NoError(t, err)

	// recalculation with zero qualifying workouts leaves it active
	_, err = challengeService.Recalculate(ctx, userID, &ch.ID)
	require.NoError(t, err)

	progress, completed := participantState(t, pool, ch.ID, userID)
	assert.Zero(t, progress)
	assert.False(t, completed)

	// so does actual activity: progress accrues but nothing completes
	_, _, err = workoutService.CreateWorkout(ctx, clerkID, &workout.CreateWorkoutRequest{
		Type: "running",
		Date: today,
	})
	require.NoError(t, err)

	progress, completed = participantState(t, pool, ch.ID, userID)
	assert.Equal(t, 1.0, progress)
	assert.False(t, completed)

	u, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Zero(t, u.TotalPoints, "no badge may be granted for a target that was never crossed")
}

// TestRecalculationRepairsMissedGrant exercises the self-healing grant
// in the shared completion step: a completed participant whose badge
// row went missing gets it re-issued on the next recalculation.
func TestRecalculationRepairsMissedGrant(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	defer notificationService.Stop()
	userService := services.NewUserService(pool)
	rewardService := services.NewRewardService(pool, notificationService)
	challengeService := services.NewChallengeService(pool, rewardService, notificationService)
	workoutService := services.NewWorkoutService(pool, challengeService)

	ctx := context.Background()
	clerkID := helpers.UniqueClerkID("user_repair")
	userID := helpers.CreateTestUser(t, pool, clerkID)
	badgeID := helpers.CreateTestBadge(t, pool, "repair-me", 40)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	ch, err := challengeService.CreateChallenge(ctx, &challenge.CreateChallengeRequest{
		Name:        "test-repair",
		Type:        challenge.TypeWorkout,
		Unit:        challenge.UnitCount,
		TargetValue: 1,
		StartDate:   today.AddDate(0, 0, -1),
		EndDate:     today.AddDate(0, 0, 6),
		BadgeID:     &badgeID,
	})
	require.NoError(t, err)

	_, err = challengeService.JoinChallenge(ctx, clerkID, ch.ID)
	require.NoError(t, err)

	_, _, err = workoutService.CreateWorkout(ctx, clerkID, &workout.CreateWorkoutRequest{
		Type: "running",
		Date: today,
	})
	require.NoError(t, err)

	_, completed := participantState(t, pool, ch.ID, userID)
	require.True(t, completed)

	// simulate a lost grant
	_, err = pool.Exec(ctx, `DELETE FROM user_badges WHERE user_id = $1 AND badge_id = $2`, userID, badgeID)
	require.NoError(t, err)

	_, err = challengeService.Recalculate(ctx, userID, &ch.ID)
	require.NoError(t, err)

	var held bool
	err = pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM user_badges WHERE user_id = $1 AND badge_id = $2)`,
		userID, badgeID,
	).Scan(&held)
	require.NoError(t, err)
	assert.True(t, held)

	u, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 80, u.TotalPoints, "the repair re-adds points for the re-issued grant")
}

func participantState(t *testing.T, pool *pgxpool.Pool, challengeID, userID uuid.UUID) (float64, bool) {
	t.Helper()

	var progress float64
	var completed bool
	err := pool.QueryRow(context.Background(), `
		SELECT progress, completed FROM challenge_participants
		WHERE challenge_id = $1 AND user_id = $2`,
		challengeID, userID,
	).Scan(&progress, &completed)
	require.NoError(t, err)
	return progress, completed
}
