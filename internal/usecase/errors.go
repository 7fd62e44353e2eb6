package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrReauthRequired means the provider rejected the stored credentials.
	// The whole import aborts and the connection flips to expired.
	ErrReauthRequired = errors.New("provider reauthorization required")

	// ErrConnectionFailed means the provider could not be reached at all.
	ErrConnectionFailed = errors.New("provider connection failed")
)
