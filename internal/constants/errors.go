package constants

import "errors"

// Configuration errors.
var (
	ErrNoAPIKeyConfigured = errors.New("no API key configured, use 'ten99policy config set-key' or set TEN99POLICY_API_KEY")
	ErrUnknownConfigKey   = errors.New("unknown configuration key")
	ErrEmptyAPIKey        = errors.New("API key cannot be empty")
	ErrNotATerminal       = errors.New("standard input is not a terminal, pass the key as an argument")
)

// Validation errors.
var (
	ErrInvalidAssignment = errors.New("expected key=value")
	ErrNothingToUpdate   = errors.New("no changes given, use --set or --unset")
	ErrInvalidOutput     = errors.New("invalid output format")
)

// ErrEmptyJQResult is returned when a --jq expression yields nothing.
var ErrEmptyJQResult = errors.New("jq expression produced no result")
