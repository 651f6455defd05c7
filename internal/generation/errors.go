package generation

import "errors"

// Common errors returned by generation backends. They form the error
// taxonomy the pipeline's failure policy is built on: rate limiting is
// retryable, quota exhaustion and malformed responses are terminal.
var (
	// ErrGenerationFailed is returned when generation fails for a general reason.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrRateLimited is returned when the backend rejects the call due to
	// rate limiting. The same unit of work may be retried later.
	ErrRateLimited = errors.New("rate limited by generation backend")

	// ErrQuotaExhausted is returned when the account's quota is spent.
	// Retrying is pointless until the quota resets.
	ErrQuotaExhausted = errors.New("generation quota exhausted")

	// ErrInvalidResponse is returned when the backend response cannot be
	// parsed or violates the expected schema.
	ErrInvalidResponse = errors.New("invalid response from generation backend")

	// ErrContentBlocked is returned when the backend blocks the content
	// due to safety filters.
	ErrContentBlocked = errors.New("content blocked by generation backend safety filters")

	// ErrInvalidConfig is returned when a generator's configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generator configuration")
)

// IsRetryable reports whether the error represents a transient condition
// worth retrying. Unknown errors are considered retryable at the caller's
// discretion; the terminal taxonomy members are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrQuotaExhausted),
		errors.Is(err, ErrInvalidResponse),
		errors.Is(err, ErrContentBlocked),
		errors.Is(err, ErrInvalidConfig):
		return false
	default:
		return true
	}
}
