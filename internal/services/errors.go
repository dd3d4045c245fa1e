package services

import (
	"errors"
	"fmt"

	"pair-date-backend/internal/repository"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidInput            = errors.New("invalid input")
	ErrForbidden               = errors.New("forbidden")
	ErrConflict                = errors.New("conflict")
	ErrNotInCouple             = errors.New("user is not in a couple")
	ErrInvalidStatusTransition = errors.New("invalid match status transition")
	ErrPlanNotConfirmable      = errors.New("plan requires a final date and time to be confirmed")
	ErrInviteCodeExhausted     = errors.New("failed to generate a unique invite code")
)

// wrapLookup maps a repository miss onto ErrNotFound with a user-facing message
func wrapLookup(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func invalid(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrInvalidInput)
}
