package storage

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"tokenmesh/core/store"
)

var attestationBucket = []byte("attestations")

// AttestationStore adapts a bbolt database to core/store.AttestationStore.
// Attestation lookups are rare compared to token reads/writes and benefit
// from bbolt's single-file, ACID-transaction model more than from
// LevelDB's write-optimized log-structured layout, so it gets its own
// backend rather than reusing TokenStore's Database.
type AttestationStore struct {
	db *bolt.DB
}

// OpenAttestationStore opens (creating if necessary) a bbolt-backed
// AttestationStore at path.
func OpenAttestationStore(path string) (*AttestationStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open attestation store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(attestationBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: init attestation bucket: %w", err)
	}
	return &AttestationStore{db: db}, nil
}

// Close releases the underlying bbolt file handle.
func (s *AttestationStore) Close() error {
	return s.db.Close()
}

// Lookup returns the trust level on file for partyID, TrustUnknown if none.
func (s *AttestationStore) Lookup(ctx context.Context, partyID string) (store.TrustLevel, error) {
	var level store.TrustLevel
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(attestationBucket)
		raw := bucket.Get([]byte(partyID))
		if raw == nil {
			level = store.TrustUnknown
			return nil
		}
		if len(raw) != 1 {
			return fmt.Errorf("storage: corrupt attestation record for %s", partyID)
		}
		level = store.TrustLevel(raw[0])
		return nil
	})
	return level, err
}

// Record stores the trust level for partyID.
func (s *AttestationStore) Record(ctx context.Context, partyID string, level store.TrustLevel) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(attestationBucket)
		return bucket.Put([]byte(partyID), []byte{byte(level)})
	})
}
