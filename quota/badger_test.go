package quota

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/opencampaigns/sponsord/interfaces"
)

func newTestBadgerStore(t *testing.T, dir string) *BadgerStore {
	t.Helper()

	store, err := NewBadgerStore(dir, testLogger())
	require.NoError(t, err)
	return store
}

func TestBadgerStore_IncrementAndGet(t *testing.T) {
	store := newTestBadgerStore(t, t.TempDir())
	defer store.Close()

	ctx := context.Background()
	identity := testIdentity(t, 0x21)

	record, err := store.Get(ctx, identity)
	require.NoError(t, err)
	assert.Zero(t, record.CampaignsSponsored)

	record, err = store.Increment(ctx, identity, interfaces.CampaignResource, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), record.CampaignsSponsored)

	record, err = store.Increment(ctx, identity, interfaces.ResponseResource, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), record.CampaignsSponsored)
	assert.Equal(t, uint64(1), record.ResponsesSponsored)
}

func TestBadgerStore_IncrementAtLimit(t *testing.T) {
	store := newTestBadgerStore(t, t.TempDir())
	defer store.Close()

	ctx := context.Background()
	identity := testIdentity(t, 0x22)

	_, err := store.Increment(ctx, identity, interfaces.CampaignResource, 1)
	require.NoError(t, err)

	record, err := store.Increment(ctx, identity, interfaces.CampaignResource, 1)
	assert.ErrorIs(t, err, interfaces.ErrQuotaExceeded)
	assert.Equal(t, uint64(1), record.CampaignsSponsored)
}

func TestBadgerStore_RecordsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	identity := testIdentity(t, 0x23)

	store := newTestBadgerStore(t, dir)
	_, err := store.Increment(ctx, identity, interfaces.CampaignResource, 3)
	require.NoError(t, err)
	_, err = store.Increment(ctx, identity, interfaces.ResponseResource, 10)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := newTestBadgerStore(t, dir)
	defer reopened.Close()

	record, err := reopened.Get(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), record.CampaignsSponsored)
	assert.Equal(t, uint64(1), record.ResponsesSponsored)
}

func TestBadgerStore_ConcurrentIncrementsRespectLimit(t *testing.T) {
	store := newTestBadgerStore(t, t.TempDir())
	defer store.Close()

	ctx := context.Background()
	identity := testIdentity(t, 0x24)
	const limit = uint64(5)
	const attempts = 20

	var granted atomic.Uint64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Increment(ctx, identity, interfaces.ResponseResource, limit); err == nil {
				granted.Inc()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, granted.Load())

	record, err := store.Get(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, limit, record.ResponsesSponsored)
}

func TestBadgerStore_CancelledContext(t *testing.T) {
	store := newTestBadgerStore(t, t.TempDir())
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Increment(ctx, testIdentity(t, 0x25), interfaces.CampaignResource, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecordCodec(t *testing.T) {
	record := interfaces.SponsorshipRecord{CampaignsSponsored: 3, ResponsesSponsored: 7}

	decoded, err := decodeRecord(encodeRecord(record))
	require.NoError(t, err)
	assert.Equal(t, record, decoded)

	_, err = decodeRecord([]byte{0x01, 0x02})
	assert.Error(t, err)
}
