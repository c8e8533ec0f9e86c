package user

import (
	"time"

	"calTrackAPI/internal/badge"
)

type User struct {
	ID            string     `json:"id" db:"id"`
	ClerkID       string     `json:"clerk_id" db:"clerk_id"`
	Email         string     `json:"email" db:"email"`
	Username      string     `json:"username" db:"username"`
	FirstName     string     `json:"first_name" db:"first_name"`
	LastName      string     `json:"last_name" db:"last_name"`
	ImageURL      string     `json:"image_url" db:"image_url"`
	EmailVerified bool       `json:"email_verified" db:"email_verified"`
	TotalPoints   int        `json:"total_points" db:"total_points"`
	Rank          badge.Rank `json:"rank" db:"rank"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

type CreateUserRequest struct {
	ClerkID   string `json:"clerk_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url"`
}

type UpdateProfileRequest struct {
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	ImageURL  *string `json:"image_url,omitempty"`
}
