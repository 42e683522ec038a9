package treasury

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/blake2b"

	"github.com/opencampaigns/sponsord/interfaces"
	"github.com/opencampaigns/sponsord/metrics"
	"github.com/opencampaigns/sponsord/policy"
)

// mistPerToken is the smallest-unit scale of the native token.
const mistPerToken = 1_000_000_000

// transactionIntent is the intent prefix signed alongside transaction bytes
// (scope: transaction data, version 0, app id 0).
var transactionIntent = []byte{0, 0, 0}

// SubmitFunc hands a signed transaction to the submission layer. It returns
// nil only once the transaction has been accepted for broadcast.
type SubmitFunc func(ctx context.Context, txBytes []byte, sponsorSignature string) error

// Signer co-signs and funds user transactions with the treasury keypair once
// the sponsorship policy has approved the request. The keypair is read-only
// after initialization, so concurrent signing needs no synchronization.
type Signer struct {
	keypair *Keypair
	rpc     interfaces.BalanceReader
	policy  *policy.SponsorshipPolicy
	log     *slog.Logger
}

// NewSigner creates a treasury signer.
func NewSigner(keypair *Keypair, rpc interfaces.BalanceReader, sponsorPolicy *policy.SponsorshipPolicy, log *slog.Logger) *Signer {
	return &Signer{
		keypair: keypair,
		rpc:     rpc,
		policy:  sponsorPolicy,
		log:     log,
	}
}

// Address returns the treasury's derived address. Deterministic, no I/O.
func (s *Signer) Address() string {
	return s.keypair.Address()
}

// Balance queries the treasury's current on-chain balance in the smallest
// unit. Failures are transient and wrapped as ErrNetwork; no local state is
// mutated.
func (s *Signer) Balance(ctx context.Context) (uint64, error) {
	balance, err := s.rpc.Balance(ctx, s.keypair.Address())
	if err != nil {
		metrics.IncBalanceQueryFailed()
		return 0, fmt.Errorf("%w: balance query failed: %v", interfaces.ErrNetwork, err)
	}
	return balance, nil
}

// SignTransaction produces the treasury's serialized signature over the given
// transaction bytes: base64(flag || signature || pubkey), signing the blake2b
// digest of the transaction intent and payload.
func (s *Signer) SignTransaction(txBytes []byte) string {
	message := make([]byte, 0, len(transactionIntent)+len(txBytes))
	message = append(message, transactionIntent...)
	message = append(message, txBytes...)
	digest := blake2b.Sum256(message)

	signature := ed25519.Sign(s.keypair.privateKey, digest[:])

	serialized := make([]byte, 0, 1+ed25519.SignatureSize+ed25519.PublicKeySize)
	serialized = append(serialized, ed25519Flag)
	serialized = append(serialized, signature...)
	serialized = append(serialized, s.keypair.publicKey...)

	return base64.StdEncoding.EncodeToString(serialized)
}

// SponsorTransaction runs one sponsored action end to end in the required
// order: approve, sign, confirm, increment.
//
// Eligibility is checked first; an identity out of allowance fails with
// ErrQuotaExceeded before anything is signed. The signed transaction is then
// handed to submit, and quota is charged only after submit reports the
// transaction accepted for broadcast. A submit failure or an abandoned flow
// therefore never consumes quota.
func (s *Signer) SponsorTransaction(ctx context.Context, identity interfaces.Identity, kind interfaces.ResourceKind, txBytes []byte, submit SubmitFunc) (interfaces.SponsorshipRecord, error) {
	ok, err := s.policy.CanSponsor(ctx, identity, kind)
	if err != nil {
		return interfaces.SponsorshipRecord{}, fmt.Errorf("sponsorship eligibility check failed: %w", err)
	}
	if !ok {
		return interfaces.SponsorshipRecord{}, interfaces.ErrQuotaExceeded
	}

	signature := s.SignTransaction(txBytes)

	if err := submit(ctx, txBytes, signature); err != nil {
		s.log.Info("Sponsored transaction not accepted, quota not charged",
			slog.String("identity", identity.String()),
			slog.String("kind", kind.String()),
			"err", err)
		return interfaces.SponsorshipRecord{}, fmt.Errorf("transaction submission failed: %w", err)
	}

	record, err := s.policy.RecordUsage(ctx, identity, kind)
	if errors.Is(err, interfaces.ErrQuotaExceeded) {
		// The advisory check passed but a concurrent confirmation took the
		// last slot before this increment. The transaction is already out;
		// surface the exhaustion so the caller can stop offering sponsorship.
		return record, err
	}

	return record, err
}

// DisplayBalance renders a smallest-unit balance as a human-scaled token
// amount, e.g. 1500000000 -> "1.500000000".
func DisplayBalance(mist uint64) string {
	return fmt.Sprintf("%d.%09d", mist/mistPerToken, mist%mistPerToken)
}
