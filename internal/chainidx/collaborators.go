package chainidx

import (
	"math/big"

	"github.com/Techspire/neutron/internal/codec"
)

// Consensus is the validation engine this subsystem defers to. It is an
// external collaborator: the loader calls it, never implements it.
type Consensus interface {
	// CheckIndex validates a single loaded node's self-consistency (proof
	// of work/stake, height arithmetic) independent of its neighbors.
	CheckIndex(b *BlockIndex) error
	// BlockTrust returns this block's own contribution to chain trust; the
	// loader adds it to the parent's accumulated trust.
	BlockTrust(b *BlockIndex) *big.Int
	// StakeModifierChecksum computes the running stake-modifier checksum
	// for b given its already-populated StakeModifier/flags.
	StakeModifierChecksum(b *BlockIndex) uint32
	// VerifyCheckpoint reports whether checksum is the agreed checkpoint
	// value for height, per the network's hardcoded checkpoint list.
	VerifyCheckpoint(height int, checksum uint32) bool
	// CheckBlock re-validates a full block read from disk. checkSig gates
	// the most expensive signature-verification pass (self-check level 7).
	CheckBlock(b *BlockIndex, full bool, checkSig bool) error
	// CheckTransaction re-validates a transaction read from disk.
	CheckTransaction(rawTx []byte) error
	// SetBestChain rewinds the active tip to fork. Called at most once per
	// load, only if the self-check flagged a defect.
	SetBestChain(fork *BlockIndex) error
}

// BlockFileStore reads raw block and transaction bytes off disk by
// position. The on-disk block file format itself is out of scope here;
// this subsystem only ever needs byte spans at known offsets, plus the two
// small structural facts the self-check tiers compare against
// (a block's transaction ids, and a transaction's own input prevouts) —
// both are things the collaborator already has parsed while reading.
type BlockFileStore interface {
	ReadBlock(fileID, offset uint32) ([]byte, error)
	ReadTx(pos DiskTxPos) ([]byte, error)
	BlockTxHashes(fileID, offset uint32) ([]codec.Hash, error)
	TxInputs(pos DiskTxPos) ([]OutPoint, error)
}
