package chainidx

import (
	"math/big"

	"github.com/Techspire/neutron/internal/codec"
)

// BlockIndex is the live, in-memory tree node: parent and forward links are
// pointers into the same owning Tree rather than hashes, and ChainTrust is
// the running accumulation rather than a per-block delta.
type BlockIndex struct {
	BlockHash codec.Hash

	Prev *BlockIndex
	Next *BlockIndex
	// Skip points at an earlier ancestor, letting GetAncestor walk back in
	// O(log height) instead of O(height).
	Skip *BlockIndex

	Height int

	File     uint32
	BlockPos uint32

	Version    uint32
	Nonce      uint32
	Time       uint32
	Bits       uint32
	MerkleRoot codec.Hash

	Mint        int64
	MoneySupply int64

	Flags uint32

	StakeModifier         uint64
	StakeModifierChecksum uint32
	ProofHash             codec.Hash
	PrevoutStake          OutPoint
	StakeTime             uint32

	// ChainTrust is the accumulated proof weight from genesis through this
	// block, computed during the load's second pass.
	ChainTrust *big.Int
}

func newBlockIndex(hash codec.Hash) *BlockIndex {
	return &BlockIndex{BlockHash: hash, File: ^uint32(0), ChainTrust: chainTrustZero()}
}

func (b *BlockIndex) IsProofOfStake() bool { return b.Flags&FlagProofOfStake != 0 }

// BuildSkip fills in Skip from Prev for amortized ancestor lookups.
func (b *BlockIndex) BuildSkip() {
	if b.Prev != nil {
		b.Skip = b.Prev.GetAncestor(getSkipHeight(b.Height))
	}
}

func invertLowestOne(n int) int { return n & (n - 1) }

// getSkipHeight picks which height the skip pointer should jump back to;
// any height strictly below b.Height is a legal choice, this expression
// just keeps the walk short (at most ~110 steps for a height of 2^18).
func getSkipHeight(height int) int {
	if height < 2 {
		return 0
	}
	if height&1 > 0 {
		return invertLowestOne(invertLowestOne(height-1)) + 1
	}
	return invertLowestOne(height)
}

// GetAncestor walks Prev/Skip links to find the node at the given height.
// Returns nil if height is out of [0, b.Height].
func (b *BlockIndex) GetAncestor(height int) *BlockIndex {
	if height > b.Height || height < 0 {
		return nil
	}
	walk := b
	atHeight := b.Height
	for atHeight > height {
		skipHeight := getSkipHeight(atHeight)
		skipPrevHeight := getSkipHeight(atHeight - 1)
		if walk.Skip != nil && (skipHeight == height ||
			(skipHeight > height && !(skipPrevHeight < skipHeight-2 && skipPrevHeight >= height))) {
			walk = walk.Skip
			atHeight = skipHeight
		} else {
			if walk.Prev == nil {
				return nil
			}
			walk = walk.Prev
			atHeight--
		}
	}
	return walk
}
