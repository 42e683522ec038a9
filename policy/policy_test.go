package policy

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampaigns/sponsord/interfaces"
	"github.com/opencampaigns/sponsord/quota"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testIdentity(t *testing.T, fill byte) interfaces.Identity {
	t.Helper()

	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = fill
	}
	identity, err := interfaces.NewIdentity("0x" + hex.EncodeToString(raw))
	require.NoError(t, err)
	return identity
}

func newTestPolicy(t *testing.T, limits interfaces.SponsorshipLimits) *SponsorshipPolicy {
	t.Helper()
	return New(quota.NewMemoryStore(testLogger()), limits, testLogger())
}

func TestCheckRemaining_FreshIdentity(t *testing.T) {
	p := newTestPolicy(t, interfaces.SponsorshipLimits{MaxCampaigns: 3, MaxResponses: 10})

	remaining, err := p.CheckRemaining(context.Background(), testIdentity(t, 0x01))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), remaining.CampaignsRemaining)
	assert.Equal(t, uint64(10), remaining.ResponsesRemaining)
}

func TestCheckRemaining_PartialConsumption(t *testing.T) {
	p := newTestPolicy(t, interfaces.SponsorshipLimits{MaxCampaigns: 3, MaxResponses: 10})
	ctx := context.Background()
	identity := testIdentity(t, 0x02)

	for i := 0; i < 3; i++ {
		_, err := p.RecordUsage(ctx, identity, interfaces.CampaignResource)
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := p.RecordUsage(ctx, identity, interfaces.ResponseResource)
		require.NoError(t, err)
	}

	remaining, err := p.CheckRemaining(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), remaining.CampaignsRemaining)
	assert.Equal(t, uint64(8), remaining.ResponsesRemaining)

	canCampaign, err := p.CanSponsor(ctx, identity, interfaces.CampaignResource)
	require.NoError(t, err)
	assert.False(t, canCampaign)

	canResponse, err := p.CanSponsor(ctx, identity, interfaces.ResponseResource)
	require.NoError(t, err)
	assert.True(t, canResponse)
}

func TestRecordUsage_EnforcesCeiling(t *testing.T) {
	p := newTestPolicy(t, interfaces.SponsorshipLimits{MaxCampaigns: 1, MaxResponses: 10})
	ctx := context.Background()
	identity := testIdentity(t, 0x03)

	record, err := p.RecordUsage(ctx, identity, interfaces.CampaignResource)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), record.CampaignsSponsored)

	_, err = p.RecordUsage(ctx, identity, interfaces.CampaignResource)
	assert.ErrorIs(t, err, interfaces.ErrQuotaExceeded)

	// Denied attempts never bump the counter
	record, err = p.Used(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), record.CampaignsSponsored)
}

func TestRecordUsage_KindsAreIndependent(t *testing.T) {
	p := newTestPolicy(t, interfaces.SponsorshipLimits{MaxCampaigns: 1, MaxResponses: 2})
	ctx := context.Background()
	identity := testIdentity(t, 0x04)

	_, err := p.RecordUsage(ctx, identity, interfaces.CampaignResource)
	require.NoError(t, err)
	_, err = p.RecordUsage(ctx, identity, interfaces.CampaignResource)
	require.ErrorIs(t, err, interfaces.ErrQuotaExceeded)

	// Exhausted campaigns do not block responses
	record, err := p.RecordUsage(ctx, identity, interfaces.ResponseResource)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), record.ResponsesSponsored)
}

func TestLimits(t *testing.T) {
	limits := interfaces.SponsorshipLimits{MaxCampaigns: 7, MaxResponses: 21}
	p := newTestPolicy(t, limits)
	assert.Equal(t, limits, p.Limits())
}

func TestZeroLimitsDenyEverything(t *testing.T) {
	p := newTestPolicy(t, interfaces.SponsorshipLimits{})
	ctx := context.Background()
	identity := testIdentity(t, 0x05)

	can, err := p.CanSponsor(ctx, identity, interfaces.CampaignResource)
	require.NoError(t, err)
	assert.False(t, can)

	_, err = p.RecordUsage(ctx, identity, interfaces.ResponseResource)
	assert.ErrorIs(t, err, interfaces.ErrQuotaExceeded)
}
