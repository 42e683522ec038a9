// Package interfaces defines core interfaces and types for the sponsorship
// service, separating interface definitions from implementations.
//
// The package provides the contracts for the key components of the system:
//
// # Sponsorship Types
//
// Identity: A user's on-chain address, used as the quota key. Identities are
// issued externally (by wallet or zkLogin derivation) and are opaque to this
// service beyond basic format validation.
//
// SponsorshipRecord: Per-identity consumption counters for the two sponsored
// resource kinds (campaign creation, response submission). Records are created
// lazily and only ever incremented.
//
// SponsorshipLimits: Process-wide ceilings applied identically to every
// identity.
//
// # Quota Store
//
// QuotaStore: Durable counter storage with an atomic check-and-increment
// contract. Implementations must serialize concurrent increments for the same
// identity while letting unrelated identities proceed without contention.
//
// # Identity Proof Types
//
// ProofRequest: The inputs of a zkLogin proving round: an OAuth JWT, the
// ephemeral public key bound to the login session, the maximum epoch the
// ephemeral key is valid for, and single-use randomness.
//
// ProofArtifact: The opaque proof returned by the external proving service,
// passed through to callers unmodified.
//
// # Error Taxonomy
//
// Every failure mode of the core is classified by a sentinel error so callers
// can render a specific user-facing message: ErrConfigMissing, ErrKeyFormat,
// ErrValidation, ErrQuotaExceeded, ErrProofService, ErrNetwork and
// ErrDecryption. ProofServiceError additionally carries the upstream proving
// service's status and message verbatim for diagnostics.
package interfaces
