package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calTrackAPI/internal/badge"
	"calTrackAPI/internal/challenge"
	"calTrackAPI/internal/workout"
	"calTrackAPI/services"
	"calTrackAPI/tests/helpers"
)

// TestChallengeCompletionFlow walks the whole engine: join a calorie
// challenge, log workouts until the target is crossed, and verify the
// completion, the badge grant, and the derived rank.
func TestChallengeCompletionFlow(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	defer notificationService.Stop()
	userService := services.NewUserService(pool)
	rewardService := services.NewRewardService(pool, notificationService)
	challengeService := services.NewChallengeService(pool, rewardService, notificationService)
	workoutService := services.NewWorkoutService(pool, challengeService)

	ctx := context.Background()
	clerkID := helpers.UniqueClerkID("user_flow")
	helpers.CreateTestUser(t, pool, clerkID)

	badgeID := helpers.CreateTestBadge(t, pool, "calorie-crusher", 150)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	ch, err := challengeService.CreateChallenge(ctx, &challenge.CreateChallengeRequest{
		Name:        "test-burn-550",
		Description: "burn 550 calories this week",
		Type:        challenge.TypeCalorie,
		Unit:        challenge.UnitCalories,
		TargetValue: 550,
		StartDate:   today.AddDate(0, 0, -1),
		EndDate:     today.AddDate(0, 0, 6),
		BadgeID:     &badgeID,
	})
	require.NoError(t, err)

	_, err = challengeService.JoinChallenge(ctx, clerkID, ch.ID)
	require.NoError(t, err)

	// joining twice is a conflict, not a reset
	_, err = challengeService.JoinChallenge(ctx, clerkID, ch.ID)
	assert.ErrorIs(t, err, services.ErrAlreadyJoined)

	for _, cals := range []int{200, 200, 150} {
		_, updated, err := workoutService.CreateWorkout(ctx, clerkID, &workout.CreateWorkoutRequest{
			Type:     "running",
			Calories: cals,
			Date:     today,
		})
		require.NoError(t, err)
		require.Len(t, updated, 1, "each workout feeds the joined challenge")
		assert.Equal(t, ch.ID, updated[0].ID)
	}

	listed, err := challengeService.ListChallenges(ctx, clerkID)
	require.NoError(t, err)

	var got *challenge.ChallengeWithProgress
	for _, c := range listed {
		if c.ID == ch.ID {
			got = c
		}
	}
	require.NotNil(t, got)
	assert.True(t, got.Joined)
	assert.True(t, got.Completed)
	assert.Equal(t, 550.0, got.Progress)
	require.NotNil(t, got.CompletedAt)

	// the linked badge was granted and its points reflected in the rank
	badges, err := rewardService.GetBadges(ctx, clerkID)
	require.NoError(t, err)

	earned := false
	for _, b := range badges {
		if b.ID == badgeID {
			earned = b.Earned
		}
	}
	assert.True(t, earned)

	u, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 150, u.TotalPoints)
	assert.Equal(t, badge.RankSilver, u.Rank)

	// workouts logged after completion change nothing
	_, updated, err := workoutService.CreateWorkout(ctx, clerkID, &workout.CreateWorkoutRequest{
		Type:     "running",
		Calories: 300,
		Date:     today,
	})
	require.NoError(t, err)
	assert.Empty(t, updated)

	u, err = userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 150, u.TotalPoints, "no double grant")
}

func TestGrantBadgeIsIdempotent(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	defer notificationService.Stop()
	userService := services.NewUserService(pool)
	rewardService := services.NewRewardService(pool, notificationService)

	ctx := context.Background()
	clerkID := helpers.UniqueClerkID("user_grant")
	userID := helpers.CreateTestUser(t, pool, clerkID)
	badgeID := helpers.CreateTestBadge(t, pool, "early-bird", 50)

	granted, err := rewardService.GrantBadge(ctx, userID, badgeID)
	require.NoError(t, err)
	require.NotNil(t, granted)
	assert.Equal(t, badgeID, granted.BadgeID)

	// second grant is a silent no-op
	_, err = rewardService.GrantBadge(ctx, userID, badgeID)
	require.NoError(t, err)

	u, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 50, u.TotalPoints)
	assert.Equal(t, badge.RankBronze, u.Rank)
}

func TestGrantBadgeUnknownBadge(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	defer notificationService.Stop()
	rewardService := services.NewRewardService(pool, notificationService)

	clerkID := helpers.UniqueClerkID("user_nobadge")
	userID := helpers.CreateTestUser(t, pool, clerkID)

	_, err := rewardService.GrantBadge(context.Background(), userID, uuid.New())
	assert.ErrorIs(t, err, services.ErrBadgeNotFound)
}
