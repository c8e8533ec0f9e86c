package utils

import (
	"fmt"
	"strings"
)

type WorkoutSuggestion struct {
	Goal        string   `json:"goal"`
	Level       string   `json:"level"`
	Type        string   `json:"type"`
	DurationMin int      `json:"durationMin"`
	Exercises   []string `json:"exercises"`
}

var suggestionTable = map[string]map[string]WorkoutSuggestion{
	"endurance": {
		"beginner":     {Type: "running", DurationMin: 20, Exercises: []string{"brisk walk 5min", "easy jog 12min", "cooldown walk 3min"}},
		"intermediate": {Type: "running", DurationMin: 40, Exercises: []string{"warmup jog 10min", "steady run 25min", "cooldown 5min"}},
		"advanced":     {Type: "running", DurationMin: 60, Exercises: []string{"warmup 10min", "tempo run 40min", "strides 4x100m", "cooldown 6min"}},
	},
	"strength": {
		"beginner":     {Type: "strength", DurationMin: 30, Exercises: []string{"bodyweight squats 3x12", "pushups 3x8", "plank 3x30s"}},
		"intermediate": {Type: "strength", DurationMin: 45, Exercises: []string{"goblet squats 4x10", "bench press 4x8", "rows 4x10", "plank 3x45s"}},
		"advanced":     {Type: "strength", DurationMin: 60, Exercises: []string{"back squats 5x5", "deadlifts 5x3", "overhead press 4x6", "pullups 4x8"}},
	},
	"weight_loss": {
		"beginner":     {Type: "cardio", DurationMin: 25, Exercises: []string{"incline walk 15min", "bike 10min easy"}},
		"intermediate": {Type: "hiit", DurationMin: 30, Exercises: []string{"warmup 5min", "intervals 30s on / 60s off x10", "cooldown 5min"}},
		"advanced":     {Type: "hiit", DurationMin: 40, Exercises: []string{"warmup 5min", "intervals 45s on / 45s off x14", "core circuit 8min"}},
	},
	"flexibility": {
		"beginner":     {Type: "stretching", DurationMin: 15, Exercises: []string{"hamstring stretch 2x30s", "hip flexor stretch 2x30s", "cat-cow 2min"}},
		"intermediate": {Type: "yoga", DurationMin: 30, Exercises: []string{"sun salutations x5", "warrior flow 10min", "pigeon pose 2x1min"}},
		"advanced":     {Type: "yoga", DurationMin: 45, Exercises: []string{"vinyasa flow 30min", "deep hip openers 10min", "savasana 5min"}},
	},
}

// SuggestWorkout picks a workout template for a goal and fitness level.
// Unknown goals or levels return an error listing the accepted values.
func SuggestWorkout(goal, level string) (*WorkoutSuggestion, error) {
	goal = strings.ToLower(strings.TrimSpace(goal))
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = "beginner"
	}

	byLevel, ok := suggestionTable[goal]
	if !ok {
		return nil, fmt.Errorf("unknown goal %q: expected one of endurance, strength, weight_loss, flexibility", goal)
	}

	s, ok := byLevel[level]
	if !ok {
		return nil, fmt.Errorf("unknown level %q: expected one of beginner, intermediate, advanced", level)
	}

	s.Goal = goal
	s.Level = level
	return &s, nil
}
