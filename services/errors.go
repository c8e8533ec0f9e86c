package services

import "errors"

// Sentinel errors shared across services. Handlers map these onto HTTP
// status codes; everything else surfaces as a storage failure.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrWorkoutNotFound   = errors.New("workout not found")
	ErrBadgeNotFound     = errors.New("badge not found")
	ErrAlreadyJoined     = errors.New("user already joined this challenge")
)
