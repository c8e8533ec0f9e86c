package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"calTrackAPI/middleware"
	"calTrackAPI/services"
)

type BadgeHandler struct {
	rewardService *services.RewardService
	userService   *services.UserService
}

func NewBadgeHandler(rewardService *services.RewardService, userService *services.UserService) *BadgeHandler {
	return &BadgeHandler{
		rewardService: rewardService,
		userService:   userService,
	}
}

// GetBadges lists the badge catalog with the caller's earned state.
func (h *BadgeHandler) GetBadges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	badges, err := h.rewardService.GetBadges(ctx, clerkID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch badges")
		return
	}

	respondWithJSON(w, http.StatusOK, badges)
}

type grantBadgeRequest struct {
	UserID  uuid.UUID `json:"user_id"`
	BadgeID uuid.UUID `json:"badge_id"`
}

// GrantBadge is the manual award path, gated on the admin secret so a
// regular authenticated caller cannot award badges to arbitrary users.
// Granting a badge the user already holds returns the existing grant
// unchanged.
func (h *BadgeHandler) GrantBadge(w http.ResponseWriter, r *http.Request) {
	adminSecret := os.Getenv("ADMIN_API_SECRET")
	if adminSecret == "" || r.Header.Get("X-Admin-Secret") != adminSecret {
		respondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req grantBadgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == uuid.Nil || req.BadgeID == uuid.Nil {
		respondWithError(w, http.StatusBadRequest, "user_id and badge_id are required")
		return
	}

	grant, err := h.rewardService.GrantBadge(ctx, req.UserID, req.BadgeID)
	if err != nil {
		if errors.Is(err, services.ErrBadgeNotFound) {
			respondWithError(w, http.StatusNotFound, "Badge not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to grant badge")
		return
	}

	respondWithJSON(w, http.StatusOK, grant)
}
