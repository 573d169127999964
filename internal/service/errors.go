package service

import "errors"

var (
	// ErrInvalidPhone is returned when a login candidate does not match the
	// 11-digit mobile number pattern.
	ErrInvalidPhone = errors.New("invalid phone number")

	// ErrInvalidInput is returned for malformed generation input: a shop name
	// that is empty after sanitization, or non-positive dimensions.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientCredits is returned when an account balance cannot cover
	// a generation. Recoverable; the caller should prompt a top-up.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrCodeInvalid is returned for a redemption code outside the configured
	// set.
	ErrCodeInvalid = errors.New("redemption code invalid")

	// ErrCodeAlreadyUsed is returned when a valid code was already consumed,
	// by any identity. Codes are single-use system-wide.
	ErrCodeAlreadyUsed = errors.New("redemption code already used")

	// ErrGenerationInFlight is returned when an identity submits while its
	// previous generation is still outstanding.
	ErrGenerationInFlight = errors.New("generation already in flight")

	// ErrGenerationFailed wraps external backend failures: transport errors,
	// timeouts and empty result sets. The ledger is never touched.
	ErrGenerationFailed = errors.New("generation failed")
)
