package store

import (
	"bytes"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/Techspire/neutron/internal/errcode"
)

// ReadResult is the outcome of scanning a Txn's pending log for a key,
// matching the three-way read a pending write log supports.
type ReadResult int

const (
	NotInBatch ReadResult = iota
	Found
	Tombstoned
)

type logKind int

const (
	logPut logKind = iota
	logDelete
)

type logEntry struct {
	kind logKind
	key  []byte
	val  []byte
}

// Txn accumulates puts and deletes in an in-memory ordered log until
// Commit or Abort. At most one Txn may be open per Store at a time;
// beginning a second is a fatal invariant violation.
type Txn struct {
	store *Store
	log   []logEntry
}

// TxnBegin starts a new transaction on s. Panics if one is already open.
func (s *Store) TxnBegin() *Txn {
	s.txnMu.Lock()
	defer s.txnMu.Unlock()
	if s.txnOpen {
		panic("store: TxnBegin called with a transaction already open")
	}
	s.txnOpen = true
	return &Txn{store: s}
}

// Put stages a write; visible to this Txn's own reads immediately, and to
// the store only after Commit.
func (t *Txn) Put(key, val []byte) {
	t.log = append(t.log, logEntry{kind: logPut, key: append([]byte(nil), key...), val: append([]byte(nil), val...)})
}

func (t *Txn) Delete(key []byte) {
	t.log = append(t.log, logEntry{kind: logDelete, key: append([]byte(nil), key...)})
}

// scan walks the pending log from most-recent to oldest entry so the last
// write to a key wins, mirroring CBatchScanner's behavior under forward
// iteration (later Put/Delete calls overwrite the scan result).
func (t *Txn) scan(key []byte) (ReadResult, []byte) {
	for i := len(t.log) - 1; i >= 0; i-- {
		e := t.log[i]
		if !bytes.Equal(e.key, key) {
			continue
		}
		if e.kind == logDelete {
			return Tombstoned, nil
		}
		return Found, e.val
	}
	return NotInBatch, nil
}

// Get implements read-your-writes: the pending log is consulted first; if
// the key isn't mentioned in the batch, the read falls through to the
// underlying store.
func (t *Txn) Get(key []byte) ([]byte, error) {
	switch res, val := t.scan(key); res {
	case Found:
		return val, nil
	case Tombstoned:
		return nil, nil
	default:
		return t.store.Get(key)
	}
}

// Commit flushes the pending log atomically via a single WriteBatch. The
// log is discarded whether or not the write succeeds — a failed commit
// leaves the Store usable but the caller must retry the whole transaction
// from scratch.
func (t *Txn) Commit() error {
	defer t.release()

	batch := new(leveldb.Batch)
	for _, e := range t.log {
		switch e.kind {
		case logPut:
			batch.Put(e.key, e.val)
		case logDelete:
			batch.Delete(e.key)
		}
	}
	if err := t.store.writeBatch(batch); err != nil {
		return errcode.Wrap(errcode.StoreErr, "txn commit", err)
	}
	return nil
}

// Abort discards the pending log without writing anything.
func (t *Txn) Abort() {
	t.release()
}

func (t *Txn) release() {
	t.store.txnMu.Lock()
	defer t.store.txnMu.Unlock()
	t.log = nil
	t.store.txnOpen = false
}
