package db

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const boltFileName = "remit.db"

var boltBucket = []byte("remit")

// BoltProvider implements DatabaseProvider on a single bbolt bucket. Every
// batch is one read-write transaction.
type BoltProvider struct {
	db *bolt.DB
}

// NewBoltProvider opens the bbolt file inside directory, creating it if needed
func NewBoltProvider(directory string) (DatabaseProvider, error) {
	path := filepath.Join(directory, boltFileName)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt at %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &BoltProvider{db: db}, nil
}

func (p *BoltProvider) Get(key []byte) ([]byte, error) {
	var value []byte
	err := p.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get(key)
		if v != nil {
			// bbolt memory is only valid inside the transaction
			value = bytes.Clone(v)
		}
		return nil
	})
	return value, err
}

func (p *BoltProvider) Put(key, value []byte) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(key, value)
	})
}

func (p *BoltProvider) Delete(key []byte) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete(key)
	})
}

func (p *BoltProvider) Has(key []byte) (bool, error) {
	value, err := p.Get(key)
	return value != nil, err
}

func (p *BoltProvider) IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error {
	return p.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if !callback(bytes.Clone(k), bytes.Clone(v)) {
				break
			}
		}
		return nil
	})
}

func (p *BoltProvider) Close() error {
	return p.db.Close()
}

func (p *BoltProvider) Batch() DatabaseBatch {
	return &BoltBatch{db: p.db}
}

type boltOp struct {
	key    []byte
	value  []byte
	delete bool
}

// BoltBatch buffers operations and replays them inside one Update.
type BoltBatch struct {
	db  *bolt.DB
	ops []boltOp
}

func (b *BoltBatch) Put(key, value []byte) {
	b.ops = append(b.ops, boltOp{key: bytes.Clone(key), value: bytes.Clone(value)})
}

func (b *BoltBatch) Delete(key []byte) {
	b.ops = append(b.ops, boltOp{key: bytes.Clone(key), delete: true})
}

func (b *BoltBatch) Write() error {
	if len(b.ops) == 0 {
		return nil
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		for _, op := range b.ops {
			var err error
			if op.delete {
				err = bucket.Delete(op.key)
			} else {
				err = bucket.Put(op.key, op.value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BoltBatch) Reset() {
	b.ops = b.ops[:0]
}

func (b *BoltBatch) Close() error {
	b.ops = nil
	return nil
}
