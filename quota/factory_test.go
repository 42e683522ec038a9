package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreFor_Memory(t *testing.T) {
	store, err := StoreFor("mem://", testLogger())
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &MemoryStore{}, store)
}

func TestStoreFor_Badger(t *testing.T) {
	store, err := StoreFor("badger://"+t.TempDir(), testLogger())
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &BadgerStore{}, store)
}

func TestStoreFor_BadgerEmptyPath(t *testing.T) {
	_, err := StoreFor("badger://", testLogger())
	assert.Error(t, err)
}

func TestStoreFor_VaultURIValidation(t *testing.T) {
	// Missing host
	_, err := StoreFor("vault:///secret/quota", testLogger())
	assert.Error(t, err)

	// Missing data path after the mount
	_, err = StoreFor("vault://vault.example.com:8200/secret", testLogger())
	assert.Error(t, err)
}

func TestStoreFor_UnsupportedScheme(t *testing.T) {
	_, err := StoreFor("redis://localhost:6379", testLogger())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported quota backend scheme")
}
