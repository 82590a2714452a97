// Package chainidx holds the typed tx/block-index accessors and the index
// loader & verifier that rebuilds the in-memory block tree from the KV
// store and runs the tiered self-check.
package chainidx

import (
	"bytes"

	"github.com/Techspire/neutron/internal/codec"
)

// Key tags, one per row of the key-space. Canonical encoding
// of a key is WriteString(tag) followed by the payload's own encoding (for
// hash-keyed rows) or nothing (for singleton rows) — this is the same
// "tag + payload" shape the Bitcoin-lineage (string, uint256) pair key uses,
// expressed as an explicit byte-oriented codec instead of a reflective
// pair-serializer.
const (
	tagTx                 = "tx"
	tagBlockIndex         = "blockindex"
	tagVersion            = "version"
	tagHashBestChain      = "hashBestChain"
	tagHashSyncCheckpoint = "hashSyncCheckpoint"
	tagBestInvalidTrust   = "bnBestInvalidTrust"
	tagCheckpointPubKey   = "strCheckpointPubKey"
)

func encodeKey(tag string, payload []byte) []byte {
	buf := &bytes.Buffer{}
	_ = codec.WriteString(buf, tag)
	buf.Write(payload)
	return buf.Bytes()
}

func txKey(h codec.Hash) []byte         { return encodeKey(tagTx, h[:]) }
func blockIndexKey(h codec.Hash) []byte { return encodeKey(tagBlockIndex, h[:]) }
func singletonKey(tag string) []byte    { return encodeKey(tag, nil) }

// blockIndexPrefix is the key that sorts immediately before every
// ("blockindex", hash) key — the seek target for streaming load: the zero
// hash is the smallest possible payload for the tag.
func blockIndexPrefix() []byte { return blockIndexKey(codec.ZeroHash) }

// hasBlockIndexTag reports whether key starts with the ("blockindex", ...)
// tag, used to detect the end of the streaming scan.
func hasBlockIndexTag(key []byte) bool {
	want := &bytes.Buffer{}
	_ = codec.WriteString(want, tagBlockIndex)
	prefix := want.Bytes()
	return len(key) >= len(prefix) && bytes.Equal(key[:len(prefix)], prefix)
}
