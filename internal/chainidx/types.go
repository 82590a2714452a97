package chainidx

import (
	"bytes"
	"io"
	"math/big"

	"github.com/Techspire/neutron/internal/codec"
	"github.com/Techspire/neutron/internal/errcode"
)

// OutPoint is a (Hash, index) pair identifying a transaction output.
type OutPoint struct {
	Hash codec.Hash
	N    uint32
}

func (o OutPoint) Serialize(w io.Writer) error {
	if err := o.Hash.Serialize(w); err != nil {
		return err
	}
	return codec.WriteUint32(w, o.N)
}

func (o *OutPoint) Unserialize(r io.Reader) error {
	if err := o.Hash.Unserialize(r); err != nil {
		return err
	}
	n, err := codec.ReadUint32(r)
	if err != nil {
		return err
	}
	o.N = n
	return nil
}

// DiskTxPos locates a transaction on disk: which block file, the byte
// offset of the containing block within it, and the transaction's own
// offset within the block. The null variant (no spend recorded yet) is
// carried as an explicit leading flag rather than a magic offset value, so
// the codec stays total and the zero value is never ambiguous with a
// genuine position at offset zero.
type DiskTxPos struct {
	Null      bool
	File      uint32
	BlockPos  uint32
	TxOffset  uint32
}

func NullDiskTxPos() DiskTxPos { return DiskTxPos{Null: true} }

func (p DiskTxPos) Serialize(w io.Writer) error {
	if err := codec.WriteBool(w, p.Null); err != nil {
		return err
	}
	if p.Null {
		return nil
	}
	if err := codec.WriteUint32(w, p.File); err != nil {
		return err
	}
	if err := codec.WriteUint32(w, p.BlockPos); err != nil {
		return err
	}
	return codec.WriteUint32(w, p.TxOffset)
}

func (p *DiskTxPos) Unserialize(r io.Reader) error {
	null, err := codec.ReadBool(r)
	if err != nil {
		return err
	}
	p.Null = null
	if null {
		p.File, p.BlockPos, p.TxOffset = 0, 0, 0
		return nil
	}
	if p.File, err = codec.ReadUint32(r); err != nil {
		return err
	}
	if p.BlockPos, err = codec.ReadUint32(r); err != nil {
		return err
	}
	if p.TxOffset, err = codec.ReadUint32(r); err != nil {
		return err
	}
	return nil
}

// SameBlock reports whether p is non-null and lies in the block at
// (file, blockPos) — the comparison self-check levels 2/3 perform.
func (p DiskTxPos) SameBlock(file, blockPos uint32) bool {
	return !p.Null && p.File == file && p.BlockPos == blockPos
}

// TxIndex locates a transaction on disk plus, per output, where the
// spending transaction lives (or DiskTxPos{Null:true} if unspent).
type TxIndex struct {
	Pos    DiskTxPos
	VSpent []DiskTxPos
}

// NewTxIndex builds a TxIndex for a freshly connected transaction: vSpent
// has one null entry per output, preserving the invariant
// len(vSpent) == len(tx.outputs).
func NewTxIndex(pos DiskTxPos, numOutputs int) *TxIndex {
	spent := make([]DiskTxPos, numOutputs)
	for i := range spent {
		spent[i] = NullDiskTxPos()
	}
	return &TxIndex{Pos: pos, VSpent: spent}
}

func (t *TxIndex) Serialize(w io.Writer) error {
	if err := t.Pos.Serialize(w); err != nil {
		return err
	}
	if err := codec.WriteVarInt(w, uint64(len(t.VSpent))); err != nil {
		return err
	}
	for _, s := range t.VSpent {
		if err := s.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func (t *TxIndex) Unserialize(r io.Reader) error {
	if err := t.Pos.Unserialize(r); err != nil {
		return err
	}
	n, err := codec.ReadVarInt(r)
	if err != nil {
		return err
	}
	t.VSpent = make([]DiskTxPos, n)
	for i := range t.VSpent {
		if err := t.VSpent[i].Unserialize(r); err != nil {
			return err
		}
	}
	return nil
}

// Flags bit-set for BlockIndex.
const (
	FlagProofOfStake uint32 = 1 << iota
	FlagStakeEntropy
	FlagModifierWasSet
)

// DiskBlockIndex is the on-disk record for ("blockindex", hash): the same
// per-block fields as the in-memory BlockIndex except parent/forward
// pointers are explicit hashes rather than live references. The block's own
// hash (carried by the key), the skip pointer and the accumulated chain
// trust are not stored.
type DiskBlockIndex struct {
	PrevHash   codec.Hash
	NextHash   codec.Hash
	Height     uint32
	File       uint32
	BlockPos   uint32
	Version    uint32
	Nonce      uint32
	Time       uint32
	Bits       uint32
	MerkleRoot codec.Hash
	Mint       int64
	MoneySupply int64
	Flags      uint32
	StakeModifier         uint64
	StakeModifierChecksum uint32
	ProofHash  codec.Hash
	PrevoutStake OutPoint
	StakeTime  uint32
}

func (d *DiskBlockIndex) Serialize(w io.Writer) error {
	fields := []func() error{
		func() error { return d.PrevHash.Serialize(w) },
		func() error { return d.NextHash.Serialize(w) },
		func() error { return codec.WriteUint32(w, d.Height) },
		func() error { return codec.WriteUint32(w, d.File) },
		func() error { return codec.WriteUint32(w, d.BlockPos) },
		func() error { return codec.WriteUint32(w, d.Version) },
		func() error { return codec.WriteUint32(w, d.Nonce) },
		func() error { return codec.WriteUint32(w, d.Time) },
		func() error { return codec.WriteUint32(w, d.Bits) },
		func() error { return d.MerkleRoot.Serialize(w) },
		func() error { return codec.WriteInt64(w, d.Mint) },
		func() error { return codec.WriteInt64(w, d.MoneySupply) },
		func() error { return codec.WriteUint32(w, d.Flags) },
		func() error { return codec.WriteUint64(w, d.StakeModifier) },
		func() error { return codec.WriteUint32(w, d.StakeModifierChecksum) },
		func() error { return d.ProofHash.Serialize(w) },
		func() error { return d.PrevoutStake.Serialize(w) },
		func() error { return codec.WriteUint32(w, d.StakeTime) },
	}
	for _, f := range fields {
		if err := f(); err != nil {
			return err
		}
	}
	return nil
}

func (d *DiskBlockIndex) Unserialize(r io.Reader) error {
	var err error
	if err = d.PrevHash.Unserialize(r); err != nil {
		return err
	}
	if err = d.NextHash.Unserialize(r); err != nil {
		return err
	}
	if d.Height, err = codec.ReadUint32(r); err != nil {
		return err
	}
	if d.File, err = codec.ReadUint32(r); err != nil {
		return err
	}
	if d.BlockPos, err = codec.ReadUint32(r); err != nil {
		return err
	}
	if d.Version, err = codec.ReadUint32(r); err != nil {
		return err
	}
	if d.Nonce, err = codec.ReadUint32(r); err != nil {
		return err
	}
	if d.Time, err = codec.ReadUint32(r); err != nil {
		return err
	}
	if d.Bits, err = codec.ReadUint32(r); err != nil {
		return err
	}
	if err = d.MerkleRoot.Unserialize(r); err != nil {
		return err
	}
	if d.Mint, err = codec.ReadInt64(r); err != nil {
		return err
	}
	if d.MoneySupply, err = codec.ReadInt64(r); err != nil {
		return err
	}
	if d.Flags, err = codec.ReadUint32(r); err != nil {
		return err
	}
	if d.StakeModifier, err = codec.ReadUint64(r); err != nil {
		return err
	}
	if d.StakeModifierChecksum, err = codec.ReadUint32(r); err != nil {
		return err
	}
	if err = d.ProofHash.Unserialize(r); err != nil {
		return err
	}
	if err = d.PrevoutStake.Unserialize(r); err != nil {
		return err
	}
	if d.StakeTime, err = codec.ReadUint32(r); err != nil {
		return err
	}
	return nil
}

// IsProofOfStake reports the proof-of-stake flag bit.
func (d *DiskBlockIndex) IsProofOfStake() bool { return d.Flags&FlagProofOfStake != 0 }

// FromBlockIndex converts a live tree node to its disk form. The parent and
// forward pointers become hashes: a nil Prev or Next encodes as the zero
// hash sentinel.
func FromBlockIndex(b *BlockIndex) *DiskBlockIndex {
	d := &DiskBlockIndex{
		Height:                uint32(b.Height),
		File:                  b.File,
		BlockPos:              b.BlockPos,
		Version:               b.Version,
		Nonce:                 b.Nonce,
		Time:                  b.Time,
		Bits:                  b.Bits,
		MerkleRoot:            b.MerkleRoot,
		Mint:                  b.Mint,
		MoneySupply:           b.MoneySupply,
		Flags:                 b.Flags,
		StakeModifier:         b.StakeModifier,
		StakeModifierChecksum: b.StakeModifierChecksum,
		ProofHash:             b.ProofHash,
		PrevoutStake:          b.PrevoutStake,
		StakeTime:             b.StakeTime,
	}
	if b.Prev != nil {
		d.PrevHash = b.Prev.BlockHash
	}
	if b.Next != nil {
		d.NextHash = b.Next.BlockHash
	}
	return d
}

// encodeRecord/decodeRecord are small helpers shared by the typed
// accessors to go from a Serialize/Unserialize implementation to the raw
// bytes the KV store traffics in.
func encodeRecord(s interface{ Serialize(io.Writer) error }) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := s.Serialize(buf); err != nil {
		return nil, errcode.Wrap(errcode.Malformed, "encode record", err)
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte, s interface{ Unserialize(io.Reader) error }) error {
	if err := s.Unserialize(bytes.NewReader(data)); err != nil {
		return errcode.Wrap(errcode.Malformed, "decode record", err)
	}
	return nil
}

// chainTrustZero is the additive identity for the 256-bit chain-trust
// accumulator.
func chainTrustZero() *big.Int { return new(big.Int) }
