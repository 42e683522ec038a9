// Package policy implements the sponsorship decision logic: given an
// identity's consumption record and the process-wide limits, it answers
// whether the treasury may pay for another action and records usage once an
// action is confirmed.
//
// Status queries are side-effect free and safe to call arbitrarily often; a
// positive CanSponsor answer is advisory only. Quota is charged exclusively
// through RecordUsage, which callers invoke after the sponsored action has
// been accepted for broadcast, so abandoned flows never consume allowance.
// The underlying store enforces the ceiling atomically, which is what keeps
// concurrent confirmations for one identity from overshooting the limit.
package policy

import (
	"context"
	"errors"
	"log/slog"

	"github.com/opencampaigns/sponsord/interfaces"
	"github.com/opencampaigns/sponsord/metrics"
)

// Remaining is the allowance left for each resource kind, never negative.
type Remaining struct {
	CampaignsRemaining uint64 `json:"campaigns_remaining"`
	ResponsesRemaining uint64 `json:"responses_remaining"`
}

// SponsorshipPolicy decides sponsorship eligibility over a QuotaStore.
type SponsorshipPolicy struct {
	store  interfaces.QuotaStore
	limits interfaces.SponsorshipLimits
	log    *slog.Logger
}

// New creates a policy over the given store and fixed limits.
func New(store interfaces.QuotaStore, limits interfaces.SponsorshipLimits, log *slog.Logger) *SponsorshipPolicy {
	return &SponsorshipPolicy{
		store:  store,
		limits: limits,
		log:    log,
	}
}

// Limits returns the process-wide sponsorship limits.
func (p *SponsorshipPolicy) Limits() interfaces.SponsorshipLimits {
	return p.limits
}

// Used returns the raw consumption record for an identity.
func (p *SponsorshipPolicy) Used(ctx context.Context, identity interfaces.Identity) (interfaces.SponsorshipRecord, error) {
	return p.store.Get(ctx, identity)
}

// CheckRemaining computes max(0, limit-used) per resource kind. Identities
// never seen before get the full configured limits.
func (p *SponsorshipPolicy) CheckRemaining(ctx context.Context, identity interfaces.Identity) (Remaining, error) {
	record, err := p.store.Get(ctx, identity)
	if err != nil {
		return Remaining{}, err
	}

	return Remaining{
		CampaignsRemaining: saturatingSub(p.limits.MaxCampaigns, record.CampaignsSponsored),
		ResponsesRemaining: saturatingSub(p.limits.MaxResponses, record.ResponsesSponsored),
	}, nil
}

// CanSponsor reports whether the identity has allowance left for the given
// resource kind. Advisory only; the binding check happens in RecordUsage.
func (p *SponsorshipPolicy) CanSponsor(ctx context.Context, identity interfaces.Identity, kind interfaces.ResourceKind) (bool, error) {
	record, err := p.store.Get(ctx, identity)
	if err != nil {
		return false, err
	}

	return record.Used(kind) < p.limits.Limit(kind), nil
}

// RecordUsage charges one unit of quota for a confirmed sponsored action.
// Must only be called after the action has been accepted for broadcast. The
// store's atomic check-and-increment guarantees the ceiling holds even when
// confirmations for the same identity race.
func (p *SponsorshipPolicy) RecordUsage(ctx context.Context, identity interfaces.Identity, kind interfaces.ResourceKind) (interfaces.SponsorshipRecord, error) {
	record, err := p.store.Increment(ctx, identity, kind, p.limits.Limit(kind))
	if errors.Is(err, interfaces.ErrQuotaExceeded) {
		metrics.IncSponsorshipDenied(kind)
		p.log.Info("Sponsorship denied",
			slog.String("identity", identity.String()),
			slog.String("kind", kind.String()))
		return record, err
	}
	if err != nil {
		return record, err
	}

	metrics.IncSponsorshipGranted(kind)
	p.log.Debug("Sponsorship usage recorded",
		slog.String("identity", identity.String()),
		slog.String("kind", kind.String()),
		slog.Uint64("campaigns", record.CampaignsSponsored),
		slog.Uint64("responses", record.ResponsesSponsored))

	return record, nil
}

func saturatingSub(limit, used uint64) uint64 {
	if used >= limit {
		return 0
	}
	return limit - used
}
