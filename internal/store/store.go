// Package store wraps goleveldb as the ordered key/value engine behind the
// chain-index. It adds a batched-transaction layer on top.
package store

import (
	"os"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Techspire/neutron/internal/errcode"
)

// Options is the recognized option set for opening a Store.
type Options struct {
	CreateIfMissing bool
	CacheBytes      int
	BloomBitsPerKey int
	// Wipe removes any pre-existing database at Path before opening — used
	// by the schema-migration path.
	Wipe bool
}

const (
	defaultCacheBytes = 25 << 20
	defaultBloomBits  = 10
)

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{CreateIfMissing: true, CacheBytes: defaultCacheBytes, BloomBitsPerKey: defaultBloomBits}
}

// Store is the KV engine adapter. A single Store is a process-singleton
// handle onto one goleveldb database.
type Store struct {
	db   *leveldb.DB
	path string

	txnMu   sync.Mutex
	txnOpen bool
}

func leveldbOptions(o Options) *opt.Options {
	cache := o.CacheBytes
	if cache <= 0 {
		cache = defaultCacheBytes
	}
	bloom := o.BloomBitsPerKey
	if bloom <= 0 {
		bloom = defaultBloomBits
	}
	return &opt.Options{
		BlockCacheCapacity: cache / 2,
		WriteBuffer:        cache / 4,
		Filter:             filter.NewBloomFilter(bloom),
		OpenFilesCacheCapacity: 64,
	}
}

// wipe removes every file belonging to the database at path, without
// assuming the path itself is removable (some storage layers refuse to
// delete their own directory).
func wipe(path string) error {
	st, err := storage.OpenFile(path, false)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer st.Close()
	fds, err := st.List(storage.TypeAll)
	if err != nil {
		return err
	}
	for _, fd := range fds {
		if err := st.Remove(fd); err != nil {
			return err
		}
	}
	return nil
}

// Open opens (creating if requested) the database at path.
func Open(path string, o Options) (*Store, error) {
	if o.Wipe {
		if err := wipe(path); err != nil {
			return nil, errcode.Wrap(errcode.StoreErr, "wipe before open", err)
		}
	}
	if err := os.MkdirAll(path, 0740); err != nil && !os.IsExist(err) {
		return nil, errcode.Wrap(errcode.StoreErr, "mkdir datadir", err)
	}
	opts := leveldbOptions(o)
	opts.ErrorIfMissing = !o.CreateIfMissing
	db, err := leveldb.OpenFile(path, opts)
	if err != nil {
		return nil, errcode.Wrap(errcode.StoreErr, "open leveldb", err)
	}
	return &Store{db: db, path: path}, nil
}

// Get returns (nil, nil) for an absent key, matching the Option<bytes>
// contract.
func (s *Store) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errcode.Wrap(errcode.StoreErr, "get", err)
	}
	return v, nil
}

// Put writes key/val as a one-entry batch so every mutation goes through
// the same WriteBatch code path as a multi-entry Txn commit.
func (s *Store) Put(key, val []byte) error {
	b := new(leveldb.Batch)
	b.Put(key, val)
	return s.writeBatch(b)
}

// Delete of an absent key succeeds.
func (s *Store) Delete(key []byte) error {
	b := new(leveldb.Batch)
	b.Delete(key)
	return s.writeBatch(b)
}

func (s *Store) writeBatch(b *leveldb.Batch) error {
	if err := s.db.Write(b, nil); err != nil {
		return errcode.Wrap(errcode.StoreErr, "write batch", err)
	}
	return nil
}

// Iterator yields (key, value) pairs in ascending key order starting from
// the first key >= from (nil means the very first key).
type Iterator struct {
	it iterator.Iterator
}

func (s *Store) Iterate(from []byte) *Iterator {
	it := s.db.NewIterator(&util.Range{Start: from}, nil)
	return &Iterator{it: it}
}

func (it *Iterator) Next() bool    { return it.it.Next() }
func (it *Iterator) Key() []byte   { return it.it.Key() }
func (it *Iterator) Value() []byte { return it.it.Value() }
func (it *Iterator) Close()        { it.it.Release() }
func (it *Iterator) Err() error {
	if err := it.it.Error(); err != nil {
		return errcode.Wrap(errcode.StoreErr, "iterate", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return errcode.Wrap(errcode.StoreErr, "close", err)
	}
	return nil
}

// Path returns the directory this store was opened from.
func (s *Store) Path() string { return s.path }

// CompactAll forces a full-range compaction; exposed for callers that want
// to reclaim space after a large delete (e.g. tx-index pruning).
func (s *Store) CompactAll() error {
	if err := s.db.CompactRange(util.Range{}); err != nil {
		return errcode.Wrap(errcode.StoreErr, "compact", err)
	}
	return nil
}
