package quota

import (
	"context"
	"log/slog"
	"sync"

	"github.com/opencampaigns/sponsord/interfaces"
)

// MemoryStore is an in-process QuotaStore. Counters live in a map guarded by
// a read-write mutex for map access; each identity carries its own mutex so
// check-and-increment serializes per identity rather than globally.
//
// Counts do not survive a restart. Intended for development, testing, and
// single-instance deployments where quota loss on restart is acceptable.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[interfaces.Identity]*memoryRecord
	log     *slog.Logger
}

type memoryRecord struct {
	mu     sync.Mutex
	record interfaces.SponsorshipRecord
}

// NewMemoryStore creates an empty in-process quota store.
func NewMemoryStore(log *slog.Logger) *MemoryStore {
	return &MemoryStore{
		records: make(map[interfaces.Identity]*memoryRecord),
		log:     log,
	}
}

// Get returns the record for an identity, zeroed if unseen.
func (s *MemoryStore) Get(ctx context.Context, identity interfaces.Identity) (interfaces.SponsorshipRecord, error) {
	s.mu.RLock()
	entry, ok := s.records[identity]
	s.mu.RUnlock()

	if !ok {
		return interfaces.SponsorshipRecord{}, nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.record, nil
}

// Increment performs an atomic check-and-increment for (identity, kind).
// Returns ErrQuotaExceeded and leaves the record unchanged when the counter
// has reached limit.
func (s *MemoryStore) Increment(ctx context.Context, identity interfaces.Identity, kind interfaces.ResourceKind, limit uint64) (interfaces.SponsorshipRecord, error) {
	entry := s.entryFor(identity)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.record.Used(kind) >= limit {
		return entry.record, interfaces.ErrQuotaExceeded
	}

	switch kind {
	case interfaces.CampaignResource:
		entry.record.CampaignsSponsored++
	case interfaces.ResponseResource:
		entry.record.ResponsesSponsored++
	}

	return entry.record, nil
}

// Close is a no-op for the in-process store.
func (s *MemoryStore) Close() error {
	return nil
}

// entryFor returns the per-identity entry, creating it lazily. Double-checked
// under the write lock so two concurrent first queries share one entry.
func (s *MemoryStore) entryFor(identity interfaces.Identity) *memoryRecord {
	s.mu.RLock()
	entry, ok := s.records[identity]
	s.mu.RUnlock()
	if ok {
		return entry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok = s.records[identity]; ok {
		return entry
	}

	entry = &memoryRecord{}
	s.records[identity] = entry
	return entry
}
