package expense

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "line_items"

// LineItemWriter inserts line items, one write per item
type LineItemWriter interface {
	InsertLineItem(ctx context.Context, item *LineItem) error
}

// DB defines the interface for line item persistence
type DB interface {
	LineItemWriter

	// ListLineItems returns all stored line items in insertion order
	ListLineItems(ctx context.Context) ([]*StoredLineItem, error)

	// WithinTx runs fn with a writer whose inserts commit together or not at all
	WithinTx(ctx context.Context, fn func(w LineItemWriter) error) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// InsertLineItem stores a single line item in its own transaction
func (b *BoltDB) InsertLineItem(ctx context.Context, item *LineItem) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return (&boltTxWriter{tx: tx}).InsertLineItem(ctx, item)
	})
}

// WithinTx runs fn inside a single read-write transaction
func (b *BoltDB) WithinTx(_ context.Context, fn func(w LineItemWriter) error) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return fn(&boltTxWriter{tx: tx})
	})
}

// ListLineItems returns all line items ordered by key
func (b *BoltDB) ListLineItems(_ context.Context) ([]*StoredLineItem, error) {
	items := make([]*StoredLineItem, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var item LineItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshaling line item: %w", err)
			}
			items = append(items, &StoredLineItem{ID: binary.BigEndian.Uint64(k), LineItem: item})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}

// boltTxWriter inserts line items within an open bbolt transaction
type boltTxWriter struct {
	tx *bbolt.Tx
}

func (w *boltTxWriter) InsertLineItem(ctx context.Context, item *LineItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bucket := w.tx.Bucket([]byte(bucketName))
	id, err := bucket.NextSequence()
	if err != nil {
		return fmt.Errorf("allocating id: %w", err)
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshaling line item: %w", err)
	}

	// big endian keys keep ForEach in insertion order
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return bucket.Put(key, data)
}
