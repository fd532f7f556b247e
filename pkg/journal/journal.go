package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/paceline/paceline/pkg/types"
)

var (
	// Bucket names
	bucketRuns    = []byte("runs")
	bucketEntries = []byte("entries")
)

// Entry is one step in a run's record trajectory
type Entry struct {
	Seq     uint64            `json:"seq"`
	Time    time.Time         `json:"time"`
	Type    string            `json:"type"`
	Value   float64           `json:"value,omitempty"`
	Message string            `json:"message,omitempty"`
	Labels  map[string]string `json:"labels,omitempty"`
}

// Store is the BoltDB-backed run journal
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) a journal database
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketRuns,
			bucketEntries,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun upserts a run's identity and outcome
func (s *Store) SaveRun(info *types.RunInfo) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		data, err := json.Marshal(info)
		if err != nil {
			return err
		}
		return b.Put([]byte(info.ID), data)
	})
}

// GetRun retrieves a run by ID
func (s *Store) GetRun(id string) (*types.RunInfo, error) {
	var info types.RunInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("run not found: %s", id)
		}
		return json.Unmarshal(data, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ListRuns returns every journaled run
func (s *Store) ListRuns() ([]*types.RunInfo, error) {
	var runs []*types.RunInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		return b.ForEach(func(k, v []byte) error {
			var info types.RunInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return err
			}
			runs = append(runs, &info)
			return nil
		})
	})
	return runs, err
}

// Append adds one entry to a run's trajectory, assigning its sequence
// number. Entries for different runs live in separate sub-buckets.
func (s *Store) Append(runID string, entry *Entry) error {
	if runID == "" {
		return fmt.Errorf("journal entry without a run id")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket(bucketEntries)
		b, err := runs.CreateBucketIfNotExists([]byte(runID))
		if err != nil {
			return fmt.Errorf("failed to create entry bucket for %s: %w", runID, err)
		}

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		entry.Seq = seq

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
}

// Entries returns a run's trajectory in append order
func (s *Store) Entries(runID string) ([]*Entry, error) {
	var entries []*Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries).Bucket([]byte(runID))
		if b == nil {
			return nil // no entries journaled for this run
		}
		return b.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, &entry)
			return nil
		})
	})
	return entries, err
}

// itob encodes a sequence number as a sortable big-endian key
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
