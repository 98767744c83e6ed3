package auth

import "errors"

var (
	// ErrTokenInvalid is returned for tokens that fail signature, expiry or claim checks.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrUnknownRole is returned when issuing a token for a role with no permissions.
	ErrUnknownRole = errors.New("auth: unknown role")

	// ErrSecretTooShort is returned when the signing secret is shorter than MinSecretLength.
	ErrSecretTooShort = errors.New("auth: secret too short")
)
