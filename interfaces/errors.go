package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigMissing is returned when a required process secret or
	// configuration value is absent. Not retryable until an operator
	// fixes configuration.
	ErrConfigMissing = errors.New("required configuration value is missing")

	// ErrKeyFormat is returned when key material is malformed: an
	// unrecognized private key encoding, invalid base64, or wrong-length
	// key bytes. Client-caused, not retryable without corrected input.
	ErrKeyFormat = errors.New("malformed key material")

	// ErrValidation is returned when a request is missing required fields
	// or carries malformed values. Client-caused.
	ErrValidation = errors.New("invalid request")

	// ErrQuotaExceeded is returned when an identity has exhausted its
	// sponsorship allowance. Expected and user-facing, not a system fault.
	ErrQuotaExceeded = errors.New("sponsorship quota exceeded")

	// ErrProofService is the sentinel all proving-service failures unwrap
	// to. See ProofServiceError for the structured form.
	ErrProofService = errors.New("proving service error")

	// ErrNetwork is returned when an RPC or balance query fails. Transient
	// and safe to retry at the caller's discretion.
	ErrNetwork = errors.New("network error")

	// ErrDecryption is returned when content cannot be decrypted: wrong
	// password or corrupted ciphertext. Decryption failure is always
	// explicit; garbled plaintext is never returned.
	ErrDecryption = errors.New("cannot decrypt content")
)

// ProofServiceError carries the upstream proving service's error verbatim so
// callers can surface the most specific available diagnostic. It unwraps to
// ErrProofService for classification.
type ProofServiceError struct {
	// StatusCode is the HTTP status reported by the proving service, or 0
	// when the request never reached it.
	StatusCode int

	// Code is the machine-readable error code reported upstream, if any.
	Code string

	// Message is the upstream error message, propagated unmodified.
	Message string
}

// Error renders the upstream status and message.
func (e *ProofServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("proving service error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("proving service error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap classifies every upstream failure under the ErrProofService sentinel.
func (e *ProofServiceError) Unwrap() error {
	return ErrProofService
}
