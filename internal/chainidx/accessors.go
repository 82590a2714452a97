package chainidx

import (
	"bytes"
	"math/big"

	"github.com/Techspire/neutron/internal/codec"
	"github.com/Techspire/neutron/internal/errcode"
	"github.com/Techspire/neutron/internal/store"
)

// ReadTxIndex looks up a transaction's disk position and spend map.
// Returns (nil, nil) if the transaction is unknown.
func ReadTxIndex(s *store.Store, hash codec.Hash) (*TxIndex, error) {
	data, err := s.Get(txKey(hash))
	if err != nil || data == nil {
		return nil, err
	}
	idx := &TxIndex{}
	if err := decodeRecord(data, idx); err != nil {
		return nil, err
	}
	return idx, nil
}

// WriteTxIndex stages a tx-index write inside an open Txn.
func WriteTxIndex(t *store.Txn, hash codec.Hash, idx *TxIndex) error {
	data, err := encodeRecord(idx)
	if err != nil {
		return err
	}
	t.Put(txKey(hash), data)
	return nil
}

// AddTxIndex builds a fresh TxIndex for a transaction that has just been
// connected to the chain, with one null spend entry per output, and stages
// its write.
func AddTxIndex(t *store.Txn, txHash codec.Hash, pos DiskTxPos, numOutputs int) (*TxIndex, error) {
	idx := NewTxIndex(pos, numOutputs)
	if err := WriteTxIndex(t, txHash, idx); err != nil {
		return nil, err
	}
	return idx, nil
}

// EraseTxIndex stages removal of a tx-index record, used when a block is
// disconnected.
func EraseTxIndex(t *store.Txn, hash codec.Hash) {
	t.Delete(txKey(hash))
}

// ReadBlockIndex looks up the on-disk form of a block's index record.
// Returns (nil, nil) if the block is unknown.
func ReadBlockIndex(s *store.Store, hash codec.Hash) (*DiskBlockIndex, error) {
	data, err := s.Get(blockIndexKey(hash))
	if err != nil || data == nil {
		return nil, err
	}
	d := &DiskBlockIndex{}
	if err := decodeRecord(data, d); err != nil {
		return nil, err
	}
	return d, nil
}

// WriteBlockIndex stages a block-index write; the key is derived from the
// block hash, which the caller supplies since DiskBlockIndex itself does
// not carry its own identity (it is looked up by a hash key, per the
// key-space's "owned elsewhere" convention).
func WriteBlockIndex(t *store.Txn, hash codec.Hash, d *DiskBlockIndex) error {
	data, err := encodeRecord(d)
	if err != nil {
		return err
	}
	t.Put(blockIndexKey(hash), data)
	return nil
}

// --- Singletons ---

func readHashSingleton(s *store.Store, tag string) (codec.Hash, bool, error) {
	data, err := s.Get(singletonKey(tag))
	if err != nil || data == nil {
		return codec.ZeroHash, false, err
	}
	if len(data) != codec.HashSize {
		return codec.ZeroHash, false, errcode.New(errcode.Malformed, "singleton hash has wrong length")
	}
	var h codec.Hash
	copy(h[:], data)
	return h, true, nil
}

func writeHashSingleton(t *store.Txn, tag string, h codec.Hash) {
	t.Put(singletonKey(tag), append([]byte(nil), h[:]...))
}

func ReadBestChainHash(s *store.Store) (codec.Hash, bool, error) {
	return readHashSingleton(s, tagHashBestChain)
}

func WriteBestChainHash(t *store.Txn, h codec.Hash) {
	writeHashSingleton(t, tagHashBestChain, h)
}

func ReadSyncCheckpoint(s *store.Store) (codec.Hash, bool, error) {
	return readHashSingleton(s, tagHashSyncCheckpoint)
}

func WriteSyncCheckpoint(t *store.Txn, h codec.Hash) {
	writeHashSingleton(t, tagHashSyncCheckpoint, h)
}

// ReadBestInvalidTrust returns the informational best-known-invalid-branch
// trust, defaulting to zero when absent.
func ReadBestInvalidTrust(s *store.Store) (*big.Int, error) {
	data, err := s.Get(singletonKey(tagBestInvalidTrust))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return chainTrustZero(), nil
	}
	return decodeBigUint(data)
}

func WriteBestInvalidTrust(t *store.Txn, v *big.Int) error {
	data, err := encodeBigUint(v)
	if err != nil {
		return err
	}
	t.Put(singletonKey(tagBestInvalidTrust), data)
	return nil
}

func ReadCheckpointPubKey(s *store.Store) (string, bool, error) {
	data, err := s.Get(singletonKey(tagCheckpointPubKey))
	if err != nil || data == nil {
		return "", false, err
	}
	return string(data), true, nil
}

func WriteCheckpointPubKey(t *store.Txn, key string) {
	t.Put(singletonKey(tagCheckpointPubKey), []byte(key))
}

func ReadVersion(s *store.Store) (uint32, bool, error) {
	data, err := s.Get(singletonKey(tagVersion))
	if err != nil || data == nil {
		return 0, false, err
	}
	if len(data) != 4 {
		return 0, false, errcode.New(errcode.Malformed, "version record has wrong length")
	}
	return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24, true, nil
}

func WriteVersion(t *store.Txn, v uint32) {
	data := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	t.Put(singletonKey(tagVersion), data)
}

// ReadDiskTx composes a tx-index lookup with the external block-file
// store's read-at-position contract.
func ReadDiskTx(s *store.Store, files BlockFileStore, hash codec.Hash) ([]byte, *TxIndex, error) {
	idx, err := ReadTxIndex(s, hash)
	if err != nil || idx == nil {
		return nil, idx, err
	}
	raw, err := files.ReadTx(idx.Pos)
	if err != nil {
		return nil, idx, err
	}
	return raw, idx, nil
}

// encodeBigUint/decodeBigUint store an unsigned trust value as a
// varint-length-prefixed big-endian magnitude with no sign byte, reusing
// the codec's blob primitive rather than inventing a bespoke bignum format.
func encodeBigUint(v *big.Int) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := codec.WriteBytes(buf, v.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeBigUint(data []byte) (*big.Int, error) {
	mag, err := codec.ReadBytes(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(mag), nil
}
