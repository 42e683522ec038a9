package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/opencampaigns/sponsord/interfaces"
)

// vaultMaxRetries bounds the check-and-set retry loop.
const vaultMaxRetries = 32

// VaultStore is a QuotaStore backed by HashiCorp Vault's KV v2 secret engine.
// Each identity maps to one KV entry; atomicity of check-and-increment comes
// from KV v2's check-and-set: writes name the version they read, and Vault
// rejects the write if another increment committed in between.
//
// Vault authentication follows the standard client environment (VAULT_TOKEN
// and friends), matching how the rest of the deployment talks to Vault.
type VaultStore struct {
	client    *api.Client
	mountPath string
	dataPath  string
	log       *slog.Logger
}

// NewVaultStore creates a Vault-backed quota store.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: path within the mount (e.g. "sponsord/quota")
//   - log: structured logger
func NewVaultStore(address, mountPath, dataPath string, log *slog.Logger) (*VaultStore, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	mountPath = strings.TrimSuffix(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultStore{
		client:    client,
		mountPath: mountPath,
		dataPath:  dataPath,
		log:       log,
	}, nil
}

// Get returns the stored record for an identity, zeroed if unseen.
func (s *VaultStore) Get(ctx context.Context, identity interfaces.Identity) (interfaces.SponsorshipRecord, error) {
	record, _, err := s.read(ctx, identity)
	return record, err
}

// Increment performs a check-and-set loop: read record and version, verify
// the ceiling, write back naming the version read. A CAS rejection means a
// concurrent increment won the race; re-read and retry.
func (s *VaultStore) Increment(ctx context.Context, identity interfaces.Identity, kind interfaces.ResourceKind, limit uint64) (interfaces.SponsorshipRecord, error) {
	for attempt := 0; attempt < vaultMaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return interfaces.SponsorshipRecord{}, err
		}

		record, version, err := s.read(ctx, identity)
		if err != nil {
			return interfaces.SponsorshipRecord{}, err
		}

		if record.Used(kind) >= limit {
			return record, interfaces.ErrQuotaExceeded
		}

		switch kind {
		case interfaces.CampaignResource:
			record.CampaignsSponsored++
		case interfaces.ResponseResource:
			record.ResponsesSponsored++
		}

		payload := map[string]interface{}{
			"data": map[string]interface{}{
				"campaigns_sponsored": strconv.FormatUint(record.CampaignsSponsored, 10),
				"responses_sponsored": strconv.FormatUint(record.ResponsesSponsored, 10),
			},
			"options": map[string]interface{}{
				"cas": version,
			},
		}

		_, err = s.client.Logical().WriteWithContext(ctx, s.entryPath(identity), payload)
		if err == nil {
			return record, nil
		}

		if isCASViolation(err) {
			s.log.Debug("Quota check-and-set rejected, retrying",
				slog.String("identity", identity.String()),
				slog.Int("attempt", attempt))
			continue
		}

		return interfaces.SponsorshipRecord{}, fmt.Errorf("quota write failed: %w", err)
	}

	return interfaces.SponsorshipRecord{}, fmt.Errorf("quota increment for %s did not commit after %d check-and-set retries", identity, vaultMaxRetries)
}

// Close is a no-op; the Vault client holds no persistent connections.
func (s *VaultStore) Close() error {
	return nil
}

// read returns the record and the KV v2 version to use for check-and-set.
// Version 0 means the entry does not exist yet; a cas=0 write only succeeds
// if it creates the entry, which keeps first-increments atomic too.
func (s *VaultStore) read(ctx context.Context, identity interfaces.Identity) (interfaces.SponsorshipRecord, int, error) {
	secret, err := s.client.Logical().ReadWithContext(ctx, s.entryPath(identity))
	if err != nil {
		return interfaces.SponsorshipRecord{}, 0, fmt.Errorf("quota read failed: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return interfaces.SponsorshipRecord{}, 0, nil
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		// Deleted entry: KV v2 keeps metadata around. Treat as unseen.
		return interfaces.SponsorshipRecord{}, 0, nil
	}

	record := interfaces.SponsorshipRecord{
		CampaignsSponsored: parseCounter(data["campaigns_sponsored"]),
		ResponsesSponsored: parseCounter(data["responses_sponsored"]),
	}

	version := 0
	if meta, ok := secret.Data["metadata"].(map[string]interface{}); ok {
		if v, ok := meta["version"].(json.Number); ok {
			if parsed, err := v.Int64(); err == nil {
				version = int(parsed)
			}
		}
	}

	return record, version, nil
}

func (s *VaultStore) entryPath(identity interfaces.Identity) string {
	return fmt.Sprintf("%s/data/%s/%s", s.mountPath, s.dataPath, identity.String())
}

func parseCounter(v interface{}) uint64 {
	str, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// isCASViolation reports whether a write failed because the check-and-set
// version no longer matched.
func isCASViolation(err error) bool {
	var respErr *api.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusBadRequest {
		for _, msg := range respErr.Errors {
			if strings.Contains(msg, "check-and-set") {
				return true
			}
		}
	}
	return false
}
