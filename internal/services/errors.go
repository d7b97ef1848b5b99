package services

import (
	"errors"
	"fmt"
)

// Generic errors
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("conflict")
	ErrRateLimited      = errors.New("too many requests")
	ErrUpstream         = errors.New("upstream service failure")
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrFaceNotRecognized  = errors.New("face not recognized")
	ErrEmailTaken         = fmt.Errorf("%w: email already registered", ErrConflict)
)

// Not found errors
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrNoteNotFound    = errors.New("note not found")
	ErrVersionNotFound = errors.New("note version not found")
	ErrFaceNotEnrolled = errors.New("no face enrolled")
)
