package interfaces

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdentity(t *testing.T) {
	canonical := "0x" + strings.Repeat("ab", 32)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"canonical", canonical, canonical, false},
		{"no prefix", strings.Repeat("ab", 32), canonical, false},
		{"uppercase normalized", "0x" + strings.Repeat("AB", 32), canonical, false},
		{"surrounding whitespace", "  " + canonical + "  ", canonical, false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"too short", "0x1234", "", true},
		{"too long", canonical + "ff", "", true},
		{"not hex", "0x" + strings.Repeat("zz", 32), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := NewIdentity(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, identity.String())
		})
	}
}

func TestResourceKindString(t *testing.T) {
	assert.Equal(t, "campaign", CampaignResource.String())
	assert.Equal(t, "response", ResponseResource.String())
	assert.Equal(t, "unknown(7)", ResourceKind(7).String())
}

func TestRecordAndLimitsSelectors(t *testing.T) {
	record := SponsorshipRecord{CampaignsSponsored: 2, ResponsesSponsored: 5}
	assert.Equal(t, uint64(2), record.Used(CampaignResource))
	assert.Equal(t, uint64(5), record.Used(ResponseResource))

	limits := SponsorshipLimits{MaxCampaigns: 3, MaxResponses: 10}
	assert.Equal(t, uint64(3), limits.Limit(CampaignResource))
	assert.Equal(t, uint64(10), limits.Limit(ResponseResource))
}

func TestProofServiceErrorUnwrapsToSentinel(t *testing.T) {
	err := &ProofServiceError{StatusCode: 422, Code: "InvalidInput", Message: "jwt audience mismatch"}

	assert.ErrorIs(t, err, ErrProofService)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "InvalidInput")
	assert.Contains(t, err.Error(), "jwt audience mismatch")

	var svcErr *ProofServiceError
	assert.True(t, errors.As(err, &svcErr))

	// Without a code the rendering stays readable
	bare := &ProofServiceError{StatusCode: 503, Message: "overloaded"}
	assert.Equal(t, "proving service error (status 503): overloaded", bare.Error())
}
