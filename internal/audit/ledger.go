// Package audit keeps an append-only ledger of record-manager mutations
// in an embedded bbolt database. Entries are written outside the SQLite
// transaction; the ledger is an operator trail, not a source of truth.
package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketEntries = []byte("entries")

// Actions recorded in the ledger.
const (
	ActionCreate            = "create"
	ActionUpdate            = "update"
	ActionRollback          = "rollback"
	ActionSubmitForReview   = "submit_for_review"
	ActionSubmitForApproval = "submit_for_approval"
	ActionApprove           = "approve"
	ActionReject            = "reject"
	ActionRetire            = "retire"
	ActionAcknowledge       = "acknowledge"
	ActionSeed              = "seed"
)

// Entry is one ledger record.
type Entry struct {
	Seq        uint64    `json:"seq"`
	Timestamp  time.Time `json:"timestamp"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	DocumentID string    `json:"document_id"`
	Detail     string    `json:"detail,omitempty"`
}

// Ledger is the bbolt-backed audit trail.
type Ledger struct {
	db *bolt.DB
}

// Open opens or creates the ledger database at the given path.
func Open(dbPath string) (*Ledger, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create audit directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Ledger{db: db}, nil
}

// Close releases the ledger database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// entryKey builds the bbolt key "{document_id}:{seq:012d}" so a prefix scan
// yields one document's trail in order.
func entryKey(documentID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s:%012d", documentID, seq))
}

// Append writes an entry to the ledger. Safe to call on a nil ledger.
func (l *Ledger) Append(actor, action, documentID, detail string) error {
	if l == nil {
		return nil
	}
	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		e := &Entry{
			Seq:        seq,
			Timestamp:  time.Now().UTC(),
			Actor:      actor,
			Action:     action,
			DocumentID: documentID,
			Detail:     detail,
		}
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal audit entry: %w", err)
		}
		return b.Put(entryKey(documentID, seq), data)
	})
}

// ByDocument returns a document's trail, oldest first.
func (l *Ledger) ByDocument(documentID string) ([]*Entry, error) {
	var entries []*Entry
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()
		prefix := []byte(documentID + ":")

		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("unmarshal audit entry: %w", err)
			}
			entries = append(entries, &e)
		}
		return nil
	})
	return entries, err
}

// Recent returns the most recent entries across all documents, newest first.
// A limit of 0 returns everything.
func (l *Ledger) Recent(limit int) ([]*Entry, error) {
	var entries []*Entry
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("unmarshal audit entry: %w", err)
			}
			entries = append(entries, &e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Keys are grouped by document; order by the global sequence instead.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq > entries[j].Seq })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
