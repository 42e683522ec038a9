package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opencampaigns/sponsord/interfaces"
	"github.com/opencampaigns/sponsord/policy"
	"github.com/opencampaigns/sponsord/treasury"
)

// maxBodySize is the maximum allowed request body size (1MB). zkLogin JWTs
// and randomness fit comfortably; anything larger is abuse.
const maxBodySize = 1024 * 1024

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

// EpochReader queries the chain's current epoch.
type EpochReader interface {
	CurrentEpoch(ctx context.Context) (uint64, error)
}

// Handler processes HTTP requests for the sponsorship service. It integrates
// the treasury signer, the sponsorship policy, and the proof bridge.
type Handler struct {
	signer *treasury.Signer
	policy *policy.SponsorshipPolicy
	proofs interfaces.ProofIssuer
	epochs EpochReader
	log    *slog.Logger
}

// NewHandler creates a new HTTP request handler with the specified dependencies.
//
// Parameters:
//   - signer: Treasury signer for address and balance queries
//   - sponsorPolicy: Sponsorship policy backed by the quota store
//   - proofs: zkLogin proof bridge
//   - epochs: Current-epoch reader, may be nil when no fullnode is configured
//   - log: Structured logger for operational insights
//
// Returns a configured Handler instance.
func NewHandler(signer *treasury.Signer, sponsorPolicy *policy.SponsorshipPolicy, proofs interfaces.ProofIssuer, epochs EpochReader, log *slog.Logger) *Handler {
	return &Handler{
		signer: signer,
		policy: sponsorPolicy,
		proofs: proofs,
		epochs: epochs,
		log:    log,
	}
}

// treasuryResponse is the body of GET /api/v1/treasury.
type treasuryResponse struct {
	Address        string  `json:"address"`
	Balance        uint64  `json:"balance"`
	BalanceDisplay string  `json:"balance_display"`
	Epoch          *uint64 `json:"epoch,omitempty"`
}

// HandleTreasury reports the treasury address, its live balance in the
// smallest unit and human-scaled form, and the current epoch when a fullnode
// is configured.
//
// URL format: GET /api/v1/treasury
func (h *Handler) HandleTreasury(w http.ResponseWriter, r *http.Request) {
	balance, err := h.signer.Balance(r.Context())
	if err != nil {
		h.log.Error("Treasury balance query failed", "err", err)
		http.Error(w, "Failed to query treasury balance", http.StatusInternalServerError)
		return
	}

	response := treasuryResponse{
		Address:        h.signer.Address(),
		Balance:        balance,
		BalanceDisplay: treasury.DisplayBalance(balance),
	}

	// Epoch is best-effort; the treasury endpoint stays useful without it.
	if h.epochs != nil {
		if epoch, err := h.epochs.CurrentEpoch(r.Context()); err == nil {
			response.Epoch = &epoch
		} else {
			h.log.Warn("Epoch query failed", "err", err)
		}
	}

	h.writeJSON(w, response)
}

// sponsorshipResponse is the body of GET /api/v1/sponsorship/{identity}.
type sponsorshipResponse struct {
	Limits             interfaces.SponsorshipLimits `json:"limits"`
	Used               usedCounts                   `json:"used"`
	Remaining          policy.Remaining             `json:"remaining"`
	CanSponsorCampaign bool                         `json:"can_sponsor_campaign"`
	CanSponsorResponse bool                         `json:"can_sponsor_response"`
}

type usedCounts struct {
	Campaigns uint64 `json:"campaigns"`
	Responses uint64 `json:"responses"`
}

// HandleSponsorshipStatus reports the sponsorship allowance of one identity.
// Side-effect free and safe to poll; quota is never charged here.
//
// URL format: GET /api/v1/sponsorship/{identity}
func (h *Handler) HandleSponsorshipStatus(w http.ResponseWriter, r *http.Request) {
	identityParam := chi.URLParam(r, "identity")
	if identityParam == "" {
		http.Error(w, "Missing identity in URL", http.StatusBadRequest)
		return
	}

	identity, err := interfaces.NewIdentity(identityParam)
	if err != nil {
		h.log.Debug("Rejected malformed identity", "err", err, slog.String("identity", identityParam))
		http.Error(w, "Invalid identity format", http.StatusBadRequest)
		return
	}

	record, err := h.policy.Used(r.Context(), identity)
	if err != nil {
		h.log.Error("Sponsorship status lookup failed", "err", err, slog.String("identity", identity.String()))
		http.Error(w, "Failed to read sponsorship status", http.StatusInternalServerError)
		return
	}

	remaining, err := h.policy.CheckRemaining(r.Context(), identity)
	if err != nil {
		h.log.Error("Sponsorship status lookup failed", "err", err, slog.String("identity", identity.String()))
		http.Error(w, "Failed to read sponsorship status", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, sponsorshipResponse{
		Limits: h.policy.Limits(),
		Used: usedCounts{
			Campaigns: record.CampaignsSponsored,
			Responses: record.ResponsesSponsored,
		},
		Remaining:          remaining,
		CanSponsorCampaign: remaining.CampaignsRemaining > 0,
		CanSponsorResponse: remaining.ResponsesRemaining > 0,
	})
}

// HandleIssueProof forwards a zkLogin proof request to the proving service
// and returns the opaque artifact.
//
// URL format: POST /api/v1/proof
// Request body: JSON ProofRequest {jwt, ephemeralPublicKeyBase64, maxEpoch, randomness}
//
// Responses map the error taxonomy: 400 for missing fields or malformed key
// material, the upstream status (or 502) for proving-service failures.
func (h *Handler) HandleIssueProof(w http.ResponseWriter, r *http.Request) {
	var req interfaces.ProofRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		h.log.Debug("Rejected unparseable proof request", "err", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	artifact, err := h.proofs.IssueProof(r.Context(), req)
	if err != nil {
		reqErr := classifyProofError(err)
		h.log.Error("Proof issuance failed", "err", err, slog.Int("status", reqErr.StatusCode))
		http.Error(w, reqErr.Error(), reqErr.StatusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(artifact)
}

// classifyProofError maps bridge failures onto HTTP statuses, preserving the
// most specific upstream detail available.
func classifyProofError(err error) *RequestError {
	var svcErr *interfaces.ProofServiceError
	switch {
	case errors.Is(err, interfaces.ErrValidation), errors.Is(err, interfaces.ErrKeyFormat):
		return &RequestError{StatusCode: http.StatusBadRequest, Err: err}
	case errors.As(err, &svcErr):
		status := svcErr.StatusCode
		if status < 400 {
			status = http.StatusBadGateway
		}
		return &RequestError{StatusCode: status, Err: err}
	default:
		return &RequestError{StatusCode: http.StatusInternalServerError, Err: err}
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
