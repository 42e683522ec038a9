package treasury

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/blake2b"

	"github.com/opencampaigns/sponsord/interfaces"
)

const (
	// privateKeyHRP is the human-readable prefix of the network's canonical
	// bech32 private-key encoding.
	privateKeyHRP = "suiprivkey"

	// ed25519Flag is the signature scheme flag for Ed25519, used both in
	// the bech32 encoding and in address derivation.
	ed25519Flag byte = 0x00
)

// Keypair is the decoded treasury signing key with its derived address.
// Immutable after construction and safe for concurrent use.
type Keypair struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	address    string
}

// LoadKeypair decodes a configured private key into a usable keypair.
//
// The value may be the canonical bech32 encoding (suiprivkey1...) or a raw
// 32-byte hex seed with an optional 0x prefix. An absent value fails with
// ErrConfigMissing; anything that is neither recognized encoding fails with
// ErrKeyFormat.
func LoadKeypair(rawConfigValue string) (*Keypair, error) {
	raw := strings.TrimSpace(rawConfigValue)
	if raw == "" {
		return nil, fmt.Errorf("%w: treasury private key", interfaces.ErrConfigMissing)
	}

	var seed []byte
	var err error
	if strings.HasPrefix(raw, privateKeyHRP) {
		seed, err = decodeBech32Key(raw)
	} else {
		seed, err = decodeHexKey(raw)
	}
	if err != nil {
		return nil, err
	}

	privateKey := ed25519.NewKeyFromSeed(seed)
	publicKey := privateKey.Public().(ed25519.PublicKey)

	return &Keypair{
		privateKey: privateKey,
		publicKey:  publicKey,
		address:    deriveAddress(publicKey),
	}, nil
}

// Address returns the 0x-prefixed hex address derived from the public key.
func (k *Keypair) Address() string {
	return k.address
}

// PublicKey returns the raw Ed25519 public key.
func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.publicKey
}

var (
	sharedMu      sync.Mutex
	sharedKeypair *Keypair
)

// Load returns the process-wide treasury keypair, decoding it on first use
// and memoizing the result. Subsequent calls return the cached keypair
// without re-decoding, regardless of the argument.
func Load(rawConfigValue string) (*Keypair, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedKeypair != nil {
		return sharedKeypair, nil
	}

	keypair, err := LoadKeypair(rawConfigValue)
	if err != nil {
		return nil, err
	}

	sharedKeypair = keypair
	return sharedKeypair, nil
}

// Reload discards the memoized keypair and decodes the given value anew.
func Reload(rawConfigValue string) (*Keypair, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	keypair, err := LoadKeypair(rawConfigValue)
	if err != nil {
		return nil, err
	}

	sharedKeypair = keypair
	return sharedKeypair, nil
}

// decodeBech32Key decodes the canonical suiprivkey encoding: bech32 with a
// 33-byte payload of scheme flag followed by the 32-byte seed.
func decodeBech32Key(encoded string) ([]byte, error) {
	hrp, data, err := bech32.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid bech32 encoding: %v", interfaces.ErrKeyFormat, err)
	}

	if hrp != privateKeyHRP {
		return nil, fmt.Errorf("%w: unexpected key prefix %q", interfaces.ErrKeyFormat, hrp)
	}

	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid bech32 payload: %v", interfaces.ErrKeyFormat, err)
	}

	if len(payload) != 1+ed25519.SeedSize {
		return nil, fmt.Errorf("%w: key payload must be %d bytes, got %d", interfaces.ErrKeyFormat, 1+ed25519.SeedSize, len(payload))
	}

	if payload[0] != ed25519Flag {
		return nil, fmt.Errorf("%w: unsupported signature scheme flag 0x%02x", interfaces.ErrKeyFormat, payload[0])
	}

	return payload[1:], nil
}

// decodeHexKey decodes a raw hex seed, accepting an optional 0x prefix.
func decodeHexKey(raw string) ([]byte, error) {
	clean := strings.TrimPrefix(raw, "0x")

	seed, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex encoding: %v", interfaces.ErrKeyFormat, err)
	}

	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes, got %d", interfaces.ErrKeyFormat, ed25519.SeedSize, len(seed))
	}

	return seed, nil
}

// deriveAddress computes the account address: blake2b-256 over the signature
// scheme flag and the public key, rendered as 0x-prefixed hex.
func deriveAddress(publicKey ed25519.PublicKey) string {
	material := make([]byte, 0, 1+ed25519.PublicKeySize)
	material = append(material, ed25519Flag)
	material = append(material, publicKey...)

	digest := blake2b.Sum256(material)
	return "0x" + hex.EncodeToString(digest[:])
}
