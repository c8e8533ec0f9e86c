package challenge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTargetMet(t *testing.T) {
	assert.False(t, TargetMet(0, 550))
	assert.False(t, TargetMet(549.9, 550))
	assert.True(t, TargetMet(550, 550), "reaching the target exactly completes")
	assert.True(t, TargetMet(600, 550))
}

func TestTargetMetZeroTargetNeverCompletes(t *testing.T) {
	// a zero target has nothing to cross; zero qualifying activity must
	// leave the participant active
	assert.False(t, TargetMet(0, 0))
	assert.False(t, TargetMet(5, 0))
	assert.False(t, TargetMet(0, -1))
}

func TestInWindowIsDateGranular(t *testing.T) {
	c := Challenge{
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, c.InWindow(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, c.InWindow(time.Date(2026, 1, 31, 22, 30, 0, 0, time.UTC)))
	assert.False(t, c.InWindow(time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)))
	assert.False(t, c.InWindow(time.Date(2026, 2, 1, 0, 1, 0, 0, time.UTC)))
}

func TestInWindowUsesWallClockDate(t *testing.T) {
	c := Challenge{
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	// 23:30 on the end date in UTC-5 is already Feb 1 in UTC, but the
	// user logged it on Jan 31
	est := time.FixedZone("EST", -5*60*60)
	assert.True(t, c.InWindow(time.Date(2026, 1, 31, 23, 30, 0, 0, est)))

	// 00:30 on the start date in UTC+10 is still Dec 31 in UTC
	aest := time.FixedZone("AEST", 10*60*60)
	assert.True(t, c.InWindow(time.Date(2026, 1, 1, 0, 30, 0, 0, aest)))

	// a wall-clock day outside the window stays outside regardless of
	// what its UTC instant says
	assert.False(t, c.InWindow(time.Date(2026, 2, 1, 0, 30, 0, 0, est)))
}

func TestCreateChallengeRequestValidate(t *testing.T) {
	base := CreateChallengeRequest{
		Name:        "January Distance",
		Type:        TypeDistance,
		Unit:        UnitKilometers,
		TargetValue: 50,
		StartDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	assert.NoError(t, base.Validate())

	bad := base
	bad.Unit = UnitCalories
	assert.Error(t, bad.Validate(), "calorie unit on a distance challenge")

	bad = base
	bad.Type = "sleep"
	assert.Error(t, bad.Validate())

	bad = base
	bad.TargetValue = -1
	assert.Error(t, bad.Validate())

	bad = base
	bad.EndDate = base.StartDate.AddDate(0, 0, -1)
	assert.Error(t, bad.Validate())

	bad = base
	bad.Name = ""
	assert.Error(t, bad.Validate())
}
