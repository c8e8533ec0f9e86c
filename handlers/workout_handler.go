package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"calTrackAPI/internal/workout"
	"calTrackAPI/middleware"
	"calTrackAPI/services"
	"calTrackAPI/utils"
)

type WorkoutHandler struct {
	workoutService *services.WorkoutService
}

func NewWorkoutHandler(workoutService *services.WorkoutService) *WorkoutHandler {
	return &WorkoutHandler{
		workoutService: workoutService,
	}
}

// CreateWorkout logs a workout and returns it together with the
// challenges whose progress it moved.
func (h *WorkoutHandler) CreateWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req workout.CreateWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, updated, err := h.workoutService.CreateWorkout(ctx, clerkID, &req)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{
		"workout":            created,
		"updated_challenges": updated,
	})
}

func (h *WorkoutHandler) ListWorkouts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	to := time.Now()
	from := to.AddDate(0, -1, 0)
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid 'from' date, expected YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid 'to' date, expected YYYY-MM-DD")
			return
		}
		to = parsed
	}

	workouts, err := h.workoutService.ListWorkouts(ctx, clerkID, from, to)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch workouts")
		return
	}

	respondWithJSON(w, http.StatusOK, workouts)
}

func (h *WorkoutHandler) GetWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	workoutID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid workout id")
		return
	}

	found, err := h.workoutService.GetWorkout(ctx, clerkID, workoutID)
	if err != nil {
		if errors.Is(err, services.ErrWorkoutNotFound) {
			respondWithError(w, http.StatusNotFound, "Workout not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch workout")
		return
	}

	respondWithJSON(w, http.StatusOK, found)
}

// UpdateWorkout edits a workout; challenge progress is rebuilt from
// history afterwards, so back-dated corrections land correctly.
func (h *WorkoutHandler) UpdateWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	workoutID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid workout id")
		return
	}

	var req workout.UpdateWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.workoutService.UpdateWorkout(ctx, clerkID, workoutID, &req)
	if err != nil {
		if errors.Is(err, services.ErrWorkoutNotFound) {
			respondWithError(w, http.StatusNotFound, "Workout not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *WorkoutHandler) DeleteWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	workoutID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid workout id")
		return
	}

	if err := h.workoutService.DeleteWorkout(ctx, clerkID, workoutID); err != nil {
		if errors.Is(err, services.ErrWorkoutNotFound) {
			respondWithError(w, http.StatusNotFound, "Workout not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *WorkoutHandler) ToggleCompletion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	workoutID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid workout id")
		return
	}

	toggled, err := h.workoutService.ToggleCompletion(ctx, clerkID, workoutID)
	if err != nil {
		if errors.Is(err, services.ErrWorkoutNotFound) {
			respondWithError(w, http.StatusNotFound, "Workout not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, toggled)
}

// SuggestWorkout returns a rule-based workout template for the given
// goal and level.
func (h *WorkoutHandler) SuggestWorkout(w http.ResponseWriter, r *http.Request) {
	goal := r.URL.Query().Get("goal")
	level := r.URL.Query().Get("level")

	suggestion, err := utils.SuggestWorkout(goal, level)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, suggestion)
}
