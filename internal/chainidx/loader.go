package chainidx

import (
	"math/big"
	"sync/atomic"

	"github.com/Techspire/neutron/internal/codec"
	"github.com/Techspire/neutron/internal/errcode"
	"github.com/Techspire/neutron/internal/log"
	"github.com/Techspire/neutron/internal/store"
)

// Loader rebuilds the in-memory block tree from the KV store at startup
// and runs the tiered self-check. A Loader is used once: Load refuses to
// run twice if the tree it owns is already populated.
type Loader struct {
	store     *store.Store
	tree      *Tree
	consensus Consensus
	files     BlockFileStore
	shutdown  *int32

	// Session state set by Load on success.
	Best             *BlockIndex
	BestHeight       int
	SyncCheckpoint   codec.Hash
	BestInvalidTrust *big.Int

	// StakeSeen records every (prevout, time) pair claimed by a
	// proof-of-stake block encountered during phase 1, so a proof-of-stake
	// aware Consensus collaborator can reject a later block that reuses
	// the same stake kernel.
	StakeSeen map[stakeSeenKey]struct{}
}

func NewLoader(s *store.Store, tree *Tree, consensus Consensus, files BlockFileStore, shutdown *int32) *Loader {
	return &Loader{store: s, tree: tree, consensus: consensus, files: files, shutdown: shutdown}
}

func (l *Loader) shuttingDown() bool {
	return l.shutdown != nil && atomic.LoadInt32(l.shutdown) != 0
}

// HasSeenStake reports whether a proof-of-stake block spending prevout at
// time has already been loaded, i.e. the kernel is already claimed.
func (l *Loader) HasSeenStake(prevout OutPoint, time uint32) bool {
	_, ok := l.StakeSeen[stakeSeenKey{prevout, time}]
	return ok
}

// LoadOptions parameterizes the tiered self-check.
type LoadOptions struct {
	CheckLevel  int // 0..7, default 1
	CheckBlocks int // depth from tip, default 500; 0 means unbounded
}

func DefaultLoadOptions() LoadOptions {
	return LoadOptions{CheckLevel: 1, CheckBlocks: 500}
}

// Load runs all four phases. It is idempotent: calling it again once the
// tree is non-empty is a silent no-op success.
func (l *Loader) Load(opts LoadOptions) error {
	if !l.tree.Empty() {
		return nil
	}
	if err := l.phase1StreamingLoad(); err != nil {
		return err
	}
	if err := l.phase2ChainTrust(); err != nil {
		return err
	}
	if err := l.phase3TipResolution(); err != nil {
		return err
	}
	if l.Best == nil {
		return nil // fresh node: nothing to self-check.
	}
	return l.phase4SelfCheck(opts)
}

// phase1StreamingLoad seeks to the first "blockindex" key and decodes
// every record until the tag changes or shutdown is requested, resolving
// prev/next hashes into live tree nodes as it goes.
func (l *Loader) phase1StreamingLoad() error {
	it := l.store.Iterate(blockIndexPrefix())
	defer it.Close()

	l.StakeSeen = make(map[stakeSeenKey]struct{})

	for it.Next() {
		if l.shuttingDown() {
			break
		}
		key := it.Key()
		if !hasBlockIndexTag(key) {
			break
		}

		disk := &DiskBlockIndex{}
		if err := decodeRecord(it.Value(), disk); err != nil {
			return err
		}

		hash, err := blockHashFromKey(key)
		if err != nil {
			return err
		}

		node := l.tree.insertOrGet(hash)
		node.Height = int(disk.Height)
		node.File = disk.File
		node.BlockPos = disk.BlockPos
		node.Version = disk.Version
		node.Nonce = disk.Nonce
		node.Time = disk.Time
		node.Bits = disk.Bits
		node.MerkleRoot = disk.MerkleRoot
		node.Mint = disk.Mint
		node.MoneySupply = disk.MoneySupply
		node.Flags = disk.Flags
		node.StakeModifier = disk.StakeModifier
		node.StakeModifierChecksum = disk.StakeModifierChecksum
		node.ProofHash = disk.ProofHash
		node.PrevoutStake = disk.PrevoutStake
		node.StakeTime = disk.StakeTime

		node.Prev = l.tree.insertOrGet(disk.PrevHash)
		node.Next = l.tree.insertOrGet(disk.NextHash)
		if node.Prev != nil {
			node.BuildSkip()
		}

		if l.consensus != nil {
			if err := l.consensus.CheckIndex(node); err != nil {
				return errcode.AtHeight(errcode.IndexCorrupt, int32(node.Height), err.Error())
			}
		}

		if node.IsProofOfStake() {
			l.StakeSeen[stakeSeenKey{node.PrevoutStake, node.StakeTime}] = struct{}{}
		}
	}
	return it.Err()
}

type stakeSeenKey struct {
	prevout OutPoint
	time    uint32
}

func blockHashFromKey(key []byte) (codec.Hash, error) {
	// key is WriteString("blockindex") || 32 raw bytes: the hash is always
	// the trailing HashSize bytes regardless of the tag's own length prefix.
	if len(key) < codec.HashSize {
		return codec.ZeroHash, errcode.New(errcode.Malformed, "block-index key too short")
	}
	var h codec.Hash
	copy(h[:], key[len(key)-codec.HashSize:])
	return h, nil
}

// phase2ChainTrust walks every node in (height, hash) order so a child is
// always processed after its parent, rebuilding skip pointers, accumulating
// chain trust and validating the stake-modifier checkpoint.
func (l *Loader) phase2ChainTrust() error {
	for _, node := range l.tree.byHeightThenHash() {
		if l.shuttingDown() {
			return nil
		}
		// Phase 1 visits records in key order, so a parent may still have been
		// a height-0 placeholder when its child's skip pointer was first built.
		node.BuildSkip()
		own := chainTrustZero()
		if l.consensus != nil {
			own = l.consensus.BlockTrust(node)
		}
		if node.Prev == nil {
			node.ChainTrust = new(big.Int).Set(own)
		} else {
			node.ChainTrust = new(big.Int).Add(node.Prev.ChainTrust, own)
		}
		if l.consensus != nil {
			node.StakeModifierChecksum = l.consensus.StakeModifierChecksum(node)
			if !l.consensus.VerifyCheckpoint(node.Height, node.StakeModifierChecksum) {
				return errcode.AtHeight(errcode.CheckpointMismatch, int32(node.Height), "stake modifier checkpoint disagreement")
			}
		}
	}
	return nil
}

// phase3TipResolution reads the best-chain pointer and the two remaining
// singletons, setting the loader's session state.
func (l *Loader) phase3TipResolution() error {
	hash, present, err := ReadBestChainHash(l.store)
	if err != nil {
		return err
	}
	if !present {
		if l.tree.Empty() {
			return nil // fresh node: no genesis, no tip, success.
		}
		return errcode.New(errcode.BestChainMissing, "blocks present but hashBestChain absent")
	}

	tip, ok := l.tree.Get(hash)
	if !ok {
		return errcode.New(errcode.BestChainMissing, "hashBestChain does not name a known block")
	}
	l.Best = tip
	l.BestHeight = tip.Height

	checkpoint, present, err := ReadSyncCheckpoint(l.store)
	if err != nil {
		return err
	}
	if !present {
		return errcode.New(errcode.BestChainMissing, "hashSyncCheckpoint required once a tip is set")
	}
	l.SyncCheckpoint = checkpoint

	trust, err := ReadBestInvalidTrust(l.store)
	if err != nil {
		return err
	}
	l.BestInvalidTrust = trust
	return nil
}

// phase4SelfCheck walks from the tip toward genesis down to height
// BestHeight-CheckBlocks inclusive (the tip plus CheckBlocks ancestors),
// running increasingly expensive tiers of verification, and delegates the
// rewind to consensus.SetBestChain if a defect surfaces.
//
// Fork selection: every tier that flags a defect sets fork = node.Prev
// unconditionally. Because the walk proceeds tip-to-genesis, a later
// (lower-height) flag always overwrites an earlier one, so the last
// write standing when the loop ends is the flag nearest genesis —
// matching the rule that the deepest ancestor wins.
func (l *Loader) phase4SelfCheck(opts LoadOptions) error {
	if opts.CheckLevel <= 0 {
		return nil
	}
	minHeight := l.BestHeight - opts.CheckBlocks
	if opts.CheckBlocks <= 0 {
		minHeight = -1 << 30
	}

	positions := make(map[blockPosKey]*BlockIndex)
	var fork *BlockIndex

	for node := l.Best; node != nil && node.Height >= minHeight; node = node.Prev {
		if l.shuttingDown() {
			break
		}

		if opts.CheckLevel >= 1 {
			if err := l.consensus.CheckBlock(node, true, opts.CheckLevel >= 7); err != nil {
				log.Warn("self-check level 1: block at height %d failed check_block: %v", node.Height, err)
				fork = node.Prev
			}
		}

		txHashes, err := l.files.BlockTxHashes(node.File, node.BlockPos)
		if err != nil {
			log.Warn("self-check: failed to enumerate transactions at height %d: %v", node.Height, err)
			fork = node.Prev
			continue
		}

		if opts.CheckLevel >= 2 {
			positions[blockPosKey{node.File, node.BlockPos}] = node
			if l.level2BadPosition(txHashes, node, false) {
				fork = node.Prev
			}
		}

		if opts.CheckLevel >= 3 {
			if l.level2BadPosition(txHashes, node, true) {
				fork = node.Prev
			}
		}

		if opts.CheckLevel >= 4 {
			if l.level4DanglingSpends(txHashes, positions) {
				fork = node.Prev
			}
		}

		if opts.CheckLevel >= 5 {
			if l.level5UnspentButSpent(txHashes) {
				fork = node.Prev
			}
		}

		if opts.CheckLevel >= 6 {
			if l.level6SpendMismatch(txHashes) {
				fork = node.Prev
			}
		}
	}

	if fork != nil && !l.shuttingDown() {
		if err := l.consensus.SetBestChain(fork); err != nil {
			return err
		}
	}
	return nil
}

type blockPosKey struct {
	file     uint32
	blockPos uint32
}

// level2BadPosition (levels 2 and 3) verifies that every transaction's
// stored TxIndex.Pos names the block it is actually found in. At level 3
// it additionally reads each transaction back through the block-file store
// and re-validates it with CheckTransaction. The bytes read back are not
// re-hashed, so a transaction whose hash differs from the stored one is not
// detected here.
func (l *Loader) level2BadPosition(txHashes []codec.Hash, node *BlockIndex, level3 bool) bool {
	bad := false
	for _, h := range txHashes {
		idx, err := ReadTxIndex(l.store, h)
		if err != nil || idx == nil {
			bad = true
			continue
		}
		if !idx.Pos.SameBlock(node.File, node.BlockPos) {
			bad = true
			continue
		}
		if level3 {
			raw, err := l.files.ReadTx(idx.Pos)
			if err != nil {
				bad = true
				continue
			}
			if err := l.consensus.CheckTransaction(raw); err != nil {
				bad = true
			}
		}
	}
	return bad
}

// level4DanglingSpends confirms every non-null spend position in a
// transaction's spend map names a block already visited by this walk.
func (l *Loader) level4DanglingSpends(txHashes []codec.Hash, positions map[blockPosKey]*BlockIndex) bool {
	bad := false
	for _, h := range txHashes {
		idx, err := ReadTxIndex(l.store, h)
		if err != nil || idx == nil {
			continue
		}
		for _, spend := range idx.VSpent {
			if spend.Null {
				continue
			}
			if _, known := positions[blockPosKey{spend.File, spend.BlockPos}]; !known {
				bad = true
			}
		}
	}
	return bad
}

// level5UnspentButSpent confirms that for every input a transaction
// spends, the referenced output's spend-map entry is marked non-null. A
// prevout whose TxIndex lookup fails or is absent (a coinbase input's
// null prevout, or a spend of a transaction outside this index) has
// nothing to check and is not a defect.
func (l *Loader) level5UnspentButSpent(txHashes []codec.Hash) bool {
	bad := false
	for _, h := range txHashes {
		idx, err := ReadTxIndex(l.store, h)
		if err != nil || idx == nil {
			continue
		}
		inputs, err := l.files.TxInputs(idx.Pos)
		if err != nil {
			bad = true
			continue
		}
		for _, in := range inputs {
			prevIdx, err := ReadTxIndex(l.store, in.Hash)
			if err != nil || prevIdx == nil {
				continue
			}
			if int(in.N) >= len(prevIdx.VSpent) || prevIdx.VSpent[in.N].Null {
				bad = true
			}
		}
	}
	return bad
}

// level6SpendMismatch re-validates every spending transaction named by a
// non-null spend entry and confirms it actually names the expected
// (hash, n) among its inputs.
func (l *Loader) level6SpendMismatch(txHashes []codec.Hash) bool {
	bad := false
	for _, h := range txHashes {
		idx, err := ReadTxIndex(l.store, h)
		if err != nil || idx == nil {
			continue
		}
		for n, spend := range idx.VSpent {
			if spend.Null {
				continue
			}
			raw, err := l.files.ReadTx(spend)
			if err != nil {
				bad = true
				continue
			}
			if err := l.consensus.CheckTransaction(raw); err != nil {
				bad = true
				continue
			}
			inputs, err := l.files.TxInputs(spend)
			if err != nil {
				bad = true
				continue
			}
			found := false
			for _, in := range inputs {
				if in.Hash == h && int(in.N) == n {
					found = true
					break
				}
			}
			if !found {
				bad = true
			}
		}
	}
	return bad
}
