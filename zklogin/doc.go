// Package zklogin bridges federated identity logins to blockchain-verifiable
// zero-knowledge proofs.
//
// The bridge accepts an OAuth JWT, the base64 ephemeral public key of the
// login session, a maximum-epoch bound, and single-use randomness, and
// forwards them to an external proving service. The returned proof artifact
// stands in for a conventional wallet signature and is passed through to the
// caller opaquely.
//
// Input failures are classified before anything leaves the process: missing
// fields and structurally invalid JWTs fail with ErrValidation, malformed or
// wrong-length ephemeral keys with ErrKeyFormat, and in neither case is the
// proving service contacted. Upstream failures surface as ProofServiceError
// with the service's status and message verbatim.
//
// The bridge never retries. Proof requests are bound to single-use
// randomness: the proving service may reject a replay outright, and even an
// accepted replay must not be treated as idempotent. Callers that want to
// retry must regenerate randomness and the JWT nonce derived from it.
package zklogin
