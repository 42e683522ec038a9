package zklogin

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/opencampaigns/sponsord/interfaces"
	"github.com/opencampaigns/sponsord/metrics"
)

// ed25519Flag is the signature scheme flag prepended to the ephemeral public
// key when building the extended key the proving service expects.
const ed25519Flag byte = 0x00

// Config holds the proving service endpoint and its access credential, both
// process-wide and loaded once.
type Config struct {
	// ProverURL is the proving service endpoint.
	ProverURL string

	// AuthToken authenticates this service to the prover. Optional for
	// self-hosted provers.
	AuthToken string
}

// Bridge issues zkLogin proofs through an external proving service.
type Bridge struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

// NewBridge creates a proof bridge. Fails with ErrConfigMissing when the
// prover endpoint is not configured.
func NewBridge(cfg Config, log *slog.Logger) (*Bridge, error) {
	if cfg.ProverURL == "" {
		return nil, fmt.Errorf("%w: proving service URL", interfaces.ErrConfigMissing)
	}

	return &Bridge{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second, // proving rounds are slow
		},
		log: log,
	}, nil
}

// proverRequest is the wire format the proving service accepts.
type proverRequest struct {
	JWT                        string `json:"jwt"`
	ExtendedEphemeralPublicKey string `json:"extendedEphemeralPublicKey"`
	MaxEpoch                   uint64 `json:"maxEpoch"`
	JWTRandomness              string `json:"jwtRandomness"`
}

// proverErrorBody is the error shape the proving service reports.
type proverErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// IssueProof validates the request and forwards it to the proving service,
// returning the proof artifact unmodified.
//
// Validation failures (missing fields, malformed JWT) fail with
// ErrValidation and malformed ephemeral keys with ErrKeyFormat; in both
// cases the proving service is never contacted. All other failures classify
// as ProofServiceError carrying the upstream status and message.
func (b *Bridge) IssueProof(ctx context.Context, req interfaces.ProofRequest) (interfaces.ProofArtifact, error) {
	extendedKey, err := b.validate(req)
	if err != nil {
		metrics.IncProofFailed("validation")
		return nil, err
	}

	requestID := uuid.New().String()

	body, err := json.Marshal(proverRequest{
		JWT:                        req.JWT,
		ExtendedEphemeralPublicKey: extendedKey,
		MaxEpoch:                   req.MaxEpoch,
		JWTRandomness:              req.Randomness,
	})
	if err != nil {
		return nil, fmt.Errorf("could not encode prover request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.ProverURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not build prover request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Request-Id", requestID)
	if b.cfg.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.cfg.AuthToken)
	}

	start := time.Now()
	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		metrics.IncProofFailed("transport")
		b.log.Error("Proving service unreachable", "err", err, slog.String("requestID", requestID))
		return nil, &interfaces.ProofServiceError{Message: fmt.Sprintf("proving service unreachable: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncProofFailed("transport")
		return nil, &interfaces.ProofServiceError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("could not read prover response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.IncProofFailed("upstream")
		svcErr := &interfaces.ProofServiceError{StatusCode: resp.StatusCode, Message: string(respBody)}

		// Prefer the structured error shape when the prover sends one.
		var parsed proverErrorBody
		if err := json.Unmarshal(respBody, &parsed); err == nil && parsed.Message != "" {
			svcErr.Code = parsed.Code
			svcErr.Message = parsed.Message
		}

		b.log.Error("Proving service rejected request",
			slog.String("requestID", requestID),
			slog.Int("status", resp.StatusCode),
			slog.String("message", svcErr.Message))
		return nil, svcErr
	}

	metrics.IncProofIssued()
	b.log.Debug("Proof issued",
		slog.String("requestID", requestID),
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("artifactSize", len(respBody)))

	return interfaces.ProofArtifact(respBody), nil
}

// validate checks presence of all four fields, the JWT's structure, and the
// ephemeral key encoding, returning the extended ephemeral public key to
// forward upstream.
func (b *Bridge) validate(req interfaces.ProofRequest) (string, error) {
	switch {
	case req.JWT == "":
		return "", fmt.Errorf("%w: missing jwt", interfaces.ErrValidation)
	case req.EphemeralPublicKey == "":
		return "", fmt.Errorf("%w: missing ephemeralPublicKeyBase64", interfaces.ErrValidation)
	case req.MaxEpoch == 0:
		return "", fmt.Errorf("%w: missing maxEpoch", interfaces.ErrValidation)
	case req.Randomness == "":
		return "", fmt.Errorf("%w: missing randomness", interfaces.ErrValidation)
	}

	// Structural check only. Signature verification belongs to the proving
	// service, which validates the JWT against the provider's JWKS.
	if _, _, err := jwt.NewParser().ParseUnverified(req.JWT, jwt.MapClaims{}); err != nil {
		return "", fmt.Errorf("%w: malformed jwt: %v", interfaces.ErrValidation, err)
	}

	return extendEphemeralKey(req.EphemeralPublicKey)
}

// extendEphemeralKey reconstructs the ephemeral public key from base64 and
// re-encodes it in the flag-prefixed form the proving service expects.
// Accepts the raw 32-byte key or the already flag-prefixed 33-byte form.
func extendEphemeralKey(encoded string) (string, error) {
	keyBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: ephemeral public key is not valid base64: %v", interfaces.ErrKeyFormat, err)
	}

	switch len(keyBytes) {
	case ed25519.PublicKeySize:
		extended := make([]byte, 0, 1+ed25519.PublicKeySize)
		extended = append(extended, ed25519Flag)
		extended = append(extended, keyBytes...)
		return base64.StdEncoding.EncodeToString(extended), nil
	case 1 + ed25519.PublicKeySize:
		if keyBytes[0] != ed25519Flag {
			return "", fmt.Errorf("%w: unsupported ephemeral key scheme flag 0x%02x", interfaces.ErrKeyFormat, keyBytes[0])
		}
		return base64.StdEncoding.EncodeToString(keyBytes), nil
	default:
		return "", fmt.Errorf("%w: ephemeral public key must be %d bytes, got %d", interfaces.ErrKeyFormat, ed25519.PublicKeySize, len(keyBytes))
	}
}
