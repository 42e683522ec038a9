// Package treasury custodies the sponsor signing key and pays for user
// transactions with it.
//
// # Key Material
//
// The treasury key is an Ed25519 keypair loaded once from configuration.
// Two encodings are accepted transparently:
//
//   - the network's canonical bech32 private-key encoding
//     (suiprivkey1... with a scheme flag byte and 32-byte seed), and
//   - a raw 32-byte hex seed, optionally 0x-prefixed.
//
// Both encodings of the same seed produce the same keypair and the same
// derived address (blake2b-256 over the scheme flag and public key). The key
// is decoded exactly once per process; the decoded keypair is immutable and
// safe for concurrent signing, since signing is a pure function of the key
// and the transaction payload.
//
// # Sponsorship Ordering
//
// SponsorTransaction enforces the approve, sign, confirm, increment ordering:
// eligibility is checked first, the transaction is signed and handed to the
// caller's submitter, and quota is charged only after the submitter reports
// the transaction accepted. Abandoned or rejected flows never consume quota.
package treasury
