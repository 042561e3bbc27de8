package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrNoEligibleWork  = errors.New("no eligible work")
	ErrAlreadyInFlight = errors.New("generation already in flight")
	ErrProviderFailure = errors.New("provider failure")
)
