// Package contentcipher implements password-derived encryption for gated
// campaign content. Keys are derived client-side from a user-chosen password;
// neither the password nor the derived key ever leaves the caller.
//
// Blobs are authenticated: a wrong password or tampered ciphertext fails
// explicitly with ErrDecryption instead of yielding garbled plaintext. Each
// encryption uses a fresh salt and nonce, so repeated encryptions of the same
// plaintext produce different ciphertext while key derivation stays
// deterministic for a fixed (password, salt) pair.
package contentcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"

	"github.com/opencampaigns/sponsord/interfaces"
)

const (
	// blobVersion identifies the KDF and cipher parameters baked into a
	// blob, so parameters can evolve without breaking stored content.
	blobVersion byte = 0x01

	saltSize  = 16
	nonceSize = 12
	keySize   = 32

	// Argon2id parameters: time=1, memory=64MiB, threads=4.
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// Encrypt derives a key from the password with Argon2id and seals the
// plaintext with AES-256-GCM. The returned blob is
// base64(version || salt || nonce || ciphertext).
func Encrypt(plaintext, password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesGCM, err := newGCM(password, salt)
	if err != nil {
		return "", err
	}

	ciphertext := aesGCM.Seal(nil, nonce, []byte(plaintext), nil)

	blob := make([]byte, 0, 1+saltSize+nonceSize+len(ciphertext))
	blob = append(blob, blobVersion)
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt reverses Encrypt. A malformed blob, an unknown version, or a wrong
// password all fail with ErrDecryption; corrupted plaintext is never
// returned, since GCM authenticates the ciphertext.
func Decrypt(encodedBlob, password string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(encodedBlob)
	if err != nil {
		return "", fmt.Errorf("%w: blob is not valid base64", interfaces.ErrDecryption)
	}

	if len(blob) < 1+saltSize+nonceSize {
		return "", fmt.Errorf("%w: blob too short", interfaces.ErrDecryption)
	}

	if blob[0] != blobVersion {
		return "", fmt.Errorf("%w: unknown blob version 0x%02x", interfaces.ErrDecryption, blob[0])
	}

	salt := blob[1 : 1+saltSize]
	nonce := blob[1+saltSize : 1+saltSize+nonceSize]
	ciphertext := blob[1+saltSize+nonceSize:]

	aesGCM, err := newGCM(password, salt)
	if err != nil {
		return "", err
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", interfaces.ErrDecryption)
	}

	return string(plaintext), nil
}

// newGCM derives the AES key from (password, salt) and builds the AEAD.
// Derivation is deterministic for a fixed pair, which is what makes stored
// blobs recoverable from the password alone.
func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, keySize)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return aesGCM, nil
}
