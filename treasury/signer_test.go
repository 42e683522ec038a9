package treasury

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/opencampaigns/sponsord/interfaces"
	"github.com/opencampaigns/sponsord/policy"
	"github.com/opencampaigns/sponsord/quota"
	"github.com/opencampaigns/sponsord/suirpc"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testIdentity(t *testing.T) interfaces.Identity {
	t.Helper()
	identity, err := interfaces.NewIdentity("0x" + hex.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)
	return identity
}

func newTestSigner(t *testing.T, rpc interfaces.BalanceReader, limits interfaces.SponsorshipLimits) (*Signer, *policy.SponsorshipPolicy) {
	t.Helper()

	keypair, err := LoadKeypair(hex.EncodeToString(testSeed(t)))
	require.NoError(t, err)

	logger := testLogger()
	sponsorPolicy := policy.New(quota.NewMemoryStore(logger), limits, logger)
	return NewSigner(keypair, rpc, sponsorPolicy, logger), sponsorPolicy
}

func TestSigner_Address(t *testing.T) {
	signer, _ := newTestSigner(t, nil, interfaces.SponsorshipLimits{MaxCampaigns: 3, MaxResponses: 10})

	keypair, err := LoadKeypair(hex.EncodeToString(testSeed(t)))
	require.NoError(t, err)
	assert.Equal(t, keypair.Address(), signer.Address())
}

func TestSigner_SignTransaction(t *testing.T) {
	signer, _ := newTestSigner(t, nil, interfaces.SponsorshipLimits{MaxCampaigns: 3, MaxResponses: 10})

	txBytes := []byte("campaign transaction payload")
	serialized := signer.SignTransaction(txBytes)

	raw, err := base64.StdEncoding.DecodeString(serialized)
	require.NoError(t, err)
	require.Len(t, raw, 1+ed25519.SignatureSize+ed25519.PublicKeySize)
	assert.Equal(t, ed25519Flag, raw[0])

	// The signature must verify over blake2b(intent || txBytes) with the
	// embedded public key.
	publicKey := ed25519.PublicKey(raw[1+ed25519.SignatureSize:])
	message := append(append([]byte{}, transactionIntent...), txBytes...)
	digest := blake2b.Sum256(message)
	assert.True(t, ed25519.Verify(publicKey, digest[:], raw[1:1+ed25519.SignatureSize]))
}

func TestSigner_Balance(t *testing.T) {
	mockRPC := new(suirpc.MockBalanceReader)
	signer, _ := newTestSigner(t, mockRPC, interfaces.SponsorshipLimits{MaxCampaigns: 3, MaxResponses: 10})

	mockRPC.On("Balance", mock.Anything, signer.Address()).Return(uint64(1_500_000_000), nil)

	balance, err := signer.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), balance)
	mockRPC.AssertExpectations(t)
}

func TestSigner_BalanceFailureIsNetworkError(t *testing.T) {
	mockRPC := new(suirpc.MockBalanceReader)
	signer, _ := newTestSigner(t, mockRPC, interfaces.SponsorshipLimits{MaxCampaigns: 3, MaxResponses: 10})

	mockRPC.On("Balance", mock.Anything, mock.Anything).Return(uint64(0), errors.New("connection refused"))

	_, err := signer.Balance(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrNetwork)
}

func TestSponsorTransaction_ChargesQuotaOnlyAfterAcceptance(t *testing.T) {
	signer, sponsorPolicy := newTestSigner(t, nil, interfaces.SponsorshipLimits{MaxCampaigns: 1, MaxResponses: 10})
	identity := testIdentity(t)
	ctx := context.Background()

	submitted := false
	record, err := signer.SponsorTransaction(ctx, identity, interfaces.CampaignResource, []byte("tx"), func(ctx context.Context, txBytes []byte, sig string) error {
		// Quota must not be charged before submission succeeds
		current, err := sponsorPolicy.Used(ctx, identity)
		require.NoError(t, err)
		assert.Zero(t, current.CampaignsSponsored)
		submitted = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, submitted)
	assert.Equal(t, uint64(1), record.CampaignsSponsored)
}

func TestSponsorTransaction_SubmitFailureDoesNotCharge(t *testing.T) {
	signer, sponsorPolicy := newTestSigner(t, nil, interfaces.SponsorshipLimits{MaxCampaigns: 1, MaxResponses: 10})
	identity := testIdentity(t)
	ctx := context.Background()

	_, err := signer.SponsorTransaction(ctx, identity, interfaces.CampaignResource, []byte("tx"), func(ctx context.Context, txBytes []byte, sig string) error {
		return errors.New("broadcast rejected")
	})
	require.Error(t, err)

	record, err := sponsorPolicy.Used(ctx, identity)
	require.NoError(t, err)
	assert.Zero(t, record.CampaignsSponsored)
}

func TestSponsorTransaction_ExhaustedQuotaNeverSigns(t *testing.T) {
	signer, sponsorPolicy := newTestSigner(t, nil, interfaces.SponsorshipLimits{MaxCampaigns: 1, MaxResponses: 10})
	identity := testIdentity(t)
	ctx := context.Background()

	_, err := sponsorPolicy.RecordUsage(ctx, identity, interfaces.CampaignResource)
	require.NoError(t, err)

	_, err = signer.SponsorTransaction(ctx, identity, interfaces.CampaignResource, []byte("tx"), func(ctx context.Context, txBytes []byte, sig string) error {
		t.Fatal("submit must not be called for an exhausted identity")
		return nil
	})
	assert.ErrorIs(t, err, interfaces.ErrQuotaExceeded)
}

func TestDisplayBalance(t *testing.T) {
	assert.Equal(t, "1.500000000", DisplayBalance(1_500_000_000))
	assert.Equal(t, "0.000000001", DisplayBalance(1))
	assert.Equal(t, "0.000000000", DisplayBalance(0))
	assert.Equal(t, "42.000000000", DisplayBalance(42_000_000_000))
}
