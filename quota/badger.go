package quota

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v3"

	"github.com/opencampaigns/sponsord/interfaces"
)

// badgerMaxRetries bounds the transaction conflict retry loop. Conflicts only
// occur between concurrent increments for the same identity, so a handful of
// retries is always enough to drain a burst.
const badgerMaxRetries = 32

// BadgerStore is a durable QuotaStore backed by an embedded Badger database.
// Each identity maps to a 16-byte value holding both counters. Atomicity of
// check-and-increment comes from Badger's serializable transactions: when two
// increments for the same identity race, one commits and the other retries on
// ErrConflict.
type BadgerStore struct {
	db  *badger.DB
	log *slog.Logger
}

// NewBadgerStore opens (or creates) a Badger database at dir.
func NewBadgerStore(dir string, log *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Badger's own logger is too chatty for a counter store

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open quota database: %w", err)
	}

	return &BadgerStore{db: db, log: log}, nil
}

// Get returns the stored record for an identity, zeroed if unseen.
func (s *BadgerStore) Get(ctx context.Context, identity interfaces.Identity) (interfaces.SponsorshipRecord, error) {
	var record interfaces.SponsorshipRecord

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(identity))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			record, err = decodeRecord(val)
			return err
		})
	})
	if err != nil {
		return interfaces.SponsorshipRecord{}, fmt.Errorf("quota read failed: %w", err)
	}

	return record, nil
}

// Increment atomically increments the counter for (identity, kind) if below
// limit, retrying on transaction conflicts with concurrent increments.
func (s *BadgerStore) Increment(ctx context.Context, identity interfaces.Identity, kind interfaces.ResourceKind, limit uint64) (interfaces.SponsorshipRecord, error) {
	var record interfaces.SponsorshipRecord

	for attempt := 0; attempt < badgerMaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return interfaces.SponsorshipRecord{}, err
		}

		err := s.db.Update(func(txn *badger.Txn) error {
			key := recordKey(identity)

			record = interfaces.SponsorshipRecord{}
			item, err := txn.Get(key)
			if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err == nil {
				if err := item.Value(func(val []byte) error {
					record, err = decodeRecord(val)
					return err
				}); err != nil {
					return err
				}
			}

			if record.Used(kind) >= limit {
				return interfaces.ErrQuotaExceeded
			}

			switch kind {
			case interfaces.CampaignResource:
				record.CampaignsSponsored++
			case interfaces.ResponseResource:
				record.ResponsesSponsored++
			}

			return txn.Set(key, encodeRecord(record))
		})

		if errors.Is(err, badger.ErrConflict) {
			s.log.Debug("Quota increment conflict, retrying",
				slog.String("identity", identity.String()),
				slog.Int("attempt", attempt))
			continue
		}
		if errors.Is(err, interfaces.ErrQuotaExceeded) {
			return record, interfaces.ErrQuotaExceeded
		}
		if err != nil {
			return interfaces.SponsorshipRecord{}, fmt.Errorf("quota increment failed: %w", err)
		}

		return record, nil
	}

	return interfaces.SponsorshipRecord{}, fmt.Errorf("quota increment for %s did not commit after %d conflict retries", identity, badgerMaxRetries)
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func recordKey(identity interfaces.Identity) []byte {
	return []byte("quota/" + identity.String())
}

// encodeRecord packs both counters as big-endian uint64s.
func encodeRecord(r interfaces.SponsorshipRecord) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], r.CampaignsSponsored)
	binary.BigEndian.PutUint64(buf[8:16], r.ResponsesSponsored)
	return buf
}

func decodeRecord(val []byte) (interfaces.SponsorshipRecord, error) {
	if len(val) != 16 {
		return interfaces.SponsorshipRecord{}, fmt.Errorf("corrupt quota record: %d bytes", len(val))
	}

	return interfaces.SponsorshipRecord{
		CampaignsSponsored: binary.BigEndian.Uint64(val[0:8]),
		ResponsesSponsored: binary.BigEndian.Uint64(val[8:16]),
	}, nil
}
