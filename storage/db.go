package storage

import (
	"os"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrKeyNotFound is returned by point lookups for absent keys.
var ErrKeyNotFound = badger.ErrKeyNotFound

type Config struct {
	Path string
}

// Txn is the capability handed to View/Update closures. Everything performed
// through it belongs to one storage transaction: either all of it commits or
// none of it is visible to other readers.
type Txn interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error

	GetByPrefix(prefix []byte) ([]*KeyValueItem, error)
	KeysByPrefix(prefix []byte) ([][]byte, error)
	HasPrefix(prefix []byte) (bool, error)
	CountByPrefix(prefix []byte) (int64, error)
	DeleteByPrefix(prefix []byte) error
}

// Storage is the embedded key-value engine the mempool persists into. Tables
// are modelled as key prefixes; multi-value keys as composite prefix keys
// enumerated with the prefix cursors below.
type Storage interface {
	Setup() error
	Close() error

	Exist(key []byte) (bool, error)
	GetKey(key []byte) ([]byte, error)
	GetByPrefix(prefix []byte) ([]*KeyValueItem, error)
	CountKeysByPrefix(prefix []byte) (int64, error)

	Set(key, value []byte) error
	Delete(key []byte) error

	// View runs fn inside a read-only snapshot transaction.
	View(fn func(Txn) error) error
	// Update runs fn inside a read-write transaction and commits it. Badger
	// serializes writers, so multi-key mutations made here are atomic.
	Update(fn func(Txn) error) error

	Vacuum() error
	DbPath() string
}

type KeyValueItem struct {
	Key   []byte
	Value []byte
}

type BadgerStorage struct {
	config *Config
	db     *badger.DB
}

// Create storage pool at the particular path
func NewWithPath(path string) (Storage, error) {
	return New(&Config{
		Path: path,
	})
}

// Create storage pool with the given config. Writes are flushed durably on
// every commit: the pool is the authoritative record of pending operations
// and must survive a crash.
func New(c *Config) (Storage, error) {
	opts := badger.DefaultOptions(c.Path)
	db, err := badger.Open(
		opts.
			WithSyncWrites(true).
			WithBlockSize(defaultBlockSize()),
	)

	if err != nil {
		return nil, err
	}

	return &BadgerStorage{
		config: c,
		db:     db,
	}, nil
}

// defaultBlockSize clamps the host memory page size between 4 KiB and the
// largest block size the engine supports, so on-disk blocks line up with
// memory pages.
func defaultBlockSize() int {
	const (
		minBlockSize = 4096
		maxBlockSize = 0x10000
	)

	size := os.Getpagesize()
	if size < minBlockSize {
		return minBlockSize
	}
	if size > maxBlockSize {
		return maxBlockSize
	}
	return size
}

func (s *BadgerStorage) Setup() error {
	return nil
}

func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

func (s *BadgerStorage) View(fn func(Txn) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

func (s *BadgerStorage) Update(fn func(Txn) error) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

func (s *BadgerStorage) Set(key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *BadgerStorage) Delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (s *BadgerStorage) Exist(key []byte) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		found = true
		return nil
	})

	return found, err
}

func (s *BadgerStorage) GetKey(key []byte) ([]byte, error) {
	var value []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})

	return value, err
}

// GetByPrefix return a list of key/value item whose key prefix matches
func (s *BadgerStorage) GetByPrefix(prefix []byte) ([]*KeyValueItem, error) {
	var result []*KeyValueItem

	err := s.View(func(txn Txn) error {
		items, err := txn.GetByPrefix(prefix)
		if err != nil {
			return err
		}
		result = items
		return nil
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

// CountKeysByPrefix return total key under a specific prefix, only operating
// on keys so values are never fetched
func (s *BadgerStorage) CountKeysByPrefix(prefix []byte) (int64, error) {
	var total int64

	err := s.View(func(txn Txn) error {
		n, err := txn.CountByPrefix(prefix)
		if err != nil {
			return err
		}
		total = n
		return nil
	})

	if err != nil {
		return 0, err
	}

	return total, nil
}

func (s *BadgerStorage) Vacuum() error {
	return s.db.RunValueLogGC(0.7)
}

func (s *BadgerStorage) DbPath() string {
	return s.config.Path
}

// Destroy is destructive action that shutdown a database, and wipe out its entire data directory
func Destroy(s *BadgerStorage) error {
	s.Close()
	return os.RemoveAll(s.config.Path)
}

type badgerTxn struct {
	txn *badger.Txn
}

func (t *badgerTxn) Get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *badgerTxn) Set(key, value []byte) error {
	return t.txn.Set(key, value)
}

func (t *badgerTxn) Delete(key []byte) error {
	return t.txn.Delete(key)
}

func (t *badgerTxn) GetByPrefix(prefix []byte) ([]*KeyValueItem, error) {
	var result []*KeyValueItem

	opts := badger.DefaultIteratorOptions
	opts.PrefetchSize = 30
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()

		k := item.KeyCopy(nil)
		v, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}

		result = append(result, &KeyValueItem{
			Key:   k,
			Value: v,
		})
	}

	return result, nil
}

func (t *badgerTxn) KeysByPrefix(prefix []byte) ([][]byte, error) {
	var result [][]byte

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		result = append(result, it.Item().KeyCopy(nil))
	}

	return result, nil
}

func (t *badgerTxn) HasPrefix(prefix []byte) (bool, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	defer it.Close()

	it.Seek(prefix)
	return it.ValidForPrefix(prefix), nil
}

func (t *badgerTxn) CountByPrefix(prefix []byte) (int64, error) {
	var total int64

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		total += 1
	}

	return total, nil
}

func (t *badgerTxn) DeleteByPrefix(prefix []byte) error {
	keys, err := t.KeysByPrefix(prefix)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := t.txn.Delete(key); err != nil {
			return err
		}
	}

	return nil
}
