// Package quota provides durable per-identity sponsorship counters behind the
// interfaces.QuotaStore contract, with pluggable backends selected by URI.
//
// # Backend URI Format
//
// Backends are specified using URI format, mirroring the rest of the system's
// pluggable-backend convention:
//
//   - mem://                                  in-process store, striped per-identity locks
//   - badger:///var/lib/sponsord/quota        durable embedded store (Badger)
//   - vault://vault.example.com:8200/secret/sponsord   HashiCorp Vault KV v2
//
// # Atomicity
//
// Every backend implements Increment as an atomic check-and-increment against
// the caller-supplied ceiling: concurrent increments for the same identity are
// serialized (per-identity mutex, transaction conflict retry, or KV
// check-and-set), so a counter can never exceed its configured maximum, while
// increments for distinct identities proceed without shared locking.
package quota
