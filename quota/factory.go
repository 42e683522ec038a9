package quota

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/opencampaigns/sponsord/interfaces"
)

// StoreFor creates a quota store from a backend URI.
// The URI format is [scheme]://[host][/path].
//
// Supported schemes:
//   - mem:// - In-process counters (lost on restart)
//   - badger:// - Durable embedded Badger database, path names the directory
//   - vault:// - HashiCorp Vault KV v2; host is the Vault address, the first
//     path segment the mount, the rest the data path
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func StoreFor(backendURI string, log *slog.Logger) (interfaces.QuotaStore, error) {
	u, err := url.Parse(backendURI)
	if err != nil {
		return nil, fmt.Errorf("invalid quota backend URI: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "mem":
		return NewMemoryStore(log), nil
	case "badger":
		return createBadgerStore(u, log)
	case "vault":
		return createVaultStore(u, log)
	default:
		return nil, fmt.Errorf("unsupported quota backend scheme: %s", u.Scheme)
	}
}

// createBadgerStore resolves the database directory from the URI.
// URI format: badger:///var/lib/sponsord/quota or badger://./relative/path
func createBadgerStore(u *url.URL, log *slog.Logger) (interfaces.QuotaStore, error) {
	log.Debug("Creating Badger quota store", slog.String("uri", u.String()))

	path := u.Path
	if u.Host != "" {
		path = u.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("empty path in badger URI: %s", u.String())
	}

	return NewBadgerStore(path, log)
}

// createVaultStore resolves the Vault address and KV paths from the URI.
// URI format: vault://vault.example.com:8200/secret/sponsord/quota?scheme=https
func createVaultStore(u *url.URL, log *slog.Logger) (interfaces.QuotaStore, error) {
	log.Debug("Creating Vault quota store", slog.String("uri", u.String()))

	if u.Host == "" {
		return nil, fmt.Errorf("missing Vault address in URI: %s", u.String())
	}

	scheme := u.Query().Get("scheme")
	if scheme == "" {
		scheme = "https"
	}
	address := fmt.Sprintf("%s://%s", scheme, u.Host)

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("vault URI must include mount and data path: %s", u.String())
	}

	return NewVaultStore(address, parts[0], parts[1], log)
}
