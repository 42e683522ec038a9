package interfaces

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Identity is a user's on-chain address, used as the stable quota key.
// Identities are supplied externally and never generated by this service.
type Identity string

// NewIdentity validates and normalizes an identity string. Addresses are
// 32-byte values rendered as 0x-prefixed lowercase hex.
func NewIdentity(addr string) (Identity, error) {
	clean := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(addr)), "0x")
	if clean == "" {
		return "", errors.New("empty identity")
	}

	if len(clean) != 64 {
		return "", fmt.Errorf("invalid identity length: hex string must be 64 characters, got %d", len(clean))
	}

	if _, err := hex.DecodeString(clean); err != nil {
		return "", fmt.Errorf("invalid identity format: %w", err)
	}

	return Identity("0x" + clean), nil
}

// String returns the normalized 0x-prefixed representation.
func (id Identity) String() string {
	return string(id)
}

// ResourceKind selects which sponsorship counter an operation consumes.
type ResourceKind int

const (
	// CampaignResource counts sponsored campaign creations.
	CampaignResource ResourceKind = iota

	// ResponseResource counts sponsored response submissions.
	ResponseResource
)

// String returns the canonical name of the resource kind.
func (k ResourceKind) String() string {
	switch k {
	case CampaignResource:
		return "campaign"
	case ResponseResource:
		return "response"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// SponsorshipRecord holds per-identity consumption counters. Counters are
// monotonic: they are created at zero and only ever incremented.
type SponsorshipRecord struct {
	CampaignsSponsored uint64 `json:"campaigns_sponsored"`
	ResponsesSponsored uint64 `json:"responses_sponsored"`
}

// Used returns the consumed count for the given resource kind.
func (r SponsorshipRecord) Used(kind ResourceKind) uint64 {
	if kind == CampaignResource {
		return r.CampaignsSponsored
	}
	return r.ResponsesSponsored
}

// SponsorshipLimits is the process-wide quota configuration, fixed at startup
// and identical for all identities.
type SponsorshipLimits struct {
	MaxCampaigns uint64 `json:"max_campaigns"`
	MaxResponses uint64 `json:"max_responses"`
}

// Limit returns the ceiling for the given resource kind.
func (l SponsorshipLimits) Limit(kind ResourceKind) uint64 {
	if kind == CampaignResource {
		return l.MaxCampaigns
	}
	return l.MaxResponses
}

// QuotaStore provides durable per-identity sponsorship counters.
//
// Implementations must guarantee that Increment is an atomic
// check-and-increment with respect to concurrent callers for the same
// identity: no two concurrent increments may both observe "under limit" and
// both commit. Callers for different identities must not contend on a global
// lock. The backing medium (memory, Badger, Vault) is an implementation
// detail; the contract is the atomicity guarantee.
type QuotaStore interface {
	// Get returns the record for an identity, or a zeroed record if the
	// identity has never been seen. Absence is not an error.
	Get(ctx context.Context, identity Identity) (SponsorshipRecord, error)

	// Increment atomically increments the counter for the given resource
	// kind if and only if it is below limit. At or above the limit it
	// returns ErrQuotaExceeded and leaves the record unchanged. On success
	// it returns the post-increment record.
	Increment(ctx context.Context, identity Identity, kind ResourceKind, limit uint64) (SponsorshipRecord, error)

	// Close releases any resources held by the store.
	Close() error
}

// ProofRequest carries the inputs of one zkLogin proving round. It is
// consumed once per IssueProof call and never stored.
type ProofRequest struct {
	// JWT is the OAuth-issued identity token, passed through opaquely.
	JWT string `json:"jwt"`

	// EphemeralPublicKey is the base64-encoded session public key the
	// proof binds to.
	EphemeralPublicKey string `json:"ephemeralPublicKeyBase64"`

	// MaxEpoch is the last epoch the ephemeral key remains valid for.
	MaxEpoch uint64 `json:"maxEpoch"`

	// Randomness is the single-use randomness the JWT nonce committed to.
	// A request retried with the same randomness is not idempotent.
	Randomness string `json:"randomness"`
}

// ProofArtifact is the opaque proof structure returned by the external
// proving service. This service never inspects or caches it.
type ProofArtifact []byte

// ProofIssuer converts a federated identity token plus an ephemeral keypair
// into a blockchain-verifiable zero-knowledge signature artifact.
type ProofIssuer interface {
	IssueProof(ctx context.Context, req ProofRequest) (ProofArtifact, error)
}

// BalanceReader queries on-chain account balances.
type BalanceReader interface {
	Balance(ctx context.Context, address string) (uint64, error)
}
