package chainidx

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/Techspire/neutron/internal/codec"
	"github.com/Techspire/neutron/internal/errcode"
	"github.com/Techspire/neutron/internal/store"
)

// fakeConsensus is a minimal stand-in for the validation engine collaborator.
type fakeConsensus struct {
	checkBlockErr  map[codec.Hash]error
	setBestCalls   []codec.Hash
	setBestChainFn func(fork *BlockIndex) error
}

func newFakeConsensus() *fakeConsensus {
	return &fakeConsensus{checkBlockErr: map[codec.Hash]error{}}
}

func (f *fakeConsensus) CheckIndex(b *BlockIndex) error           { return nil }
func (f *fakeConsensus) BlockTrust(b *BlockIndex) *big.Int        { return big.NewInt(1) }
func (f *fakeConsensus) StakeModifierChecksum(b *BlockIndex) uint32 { return 0 }
func (f *fakeConsensus) VerifyCheckpoint(height int, checksum uint32) bool { return true }
func (f *fakeConsensus) CheckBlock(b *BlockIndex, full, checkSig bool) error {
	return f.checkBlockErr[b.BlockHash]
}
func (f *fakeConsensus) CheckTransaction(raw []byte) error { return nil }
func (f *fakeConsensus) SetBestChain(fork *BlockIndex) error {
	f.setBestCalls = append(f.setBestCalls, fork.BlockHash)
	if f.setBestChainFn != nil {
		return f.setBestChainFn(fork)
	}
	return nil
}

// fakeFileStore maps (file, offset) to the transactions a block contains,
// keyed by the same blockPosKey the loader uses internally, and maps a
// transaction's own on-disk position to the prevouts it spends.
type fakeFileStore struct {
	txHashes map[blockPosKey][]codec.Hash
	txInputs map[DiskTxPos][]OutPoint
}

func (f *fakeFileStore) ReadBlock(fileID, offset uint32) ([]byte, error) { return []byte{}, nil }
func (f *fakeFileStore) ReadTx(pos DiskTxPos) ([]byte, error)            { return []byte{}, nil }
func (f *fakeFileStore) BlockTxHashes(fileID, offset uint32) ([]codec.Hash, error) {
	return f.txHashes[blockPosKey{fileID, offset}], nil
}
func (f *fakeFileStore) TxInputs(pos DiskTxPos) ([]OutPoint, error) { return f.txInputs[pos], nil }

func openTestStoreForChainidx(t *testing.T) *store.Store {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "txleveldb")
	s, err := store.Open(dir, store.DefaultOptions())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoaderFreshStart(t *testing.T) {
	s := openTestStoreForChainidx(t)
	tree := NewTree()
	loader := NewLoader(s, tree, newFakeConsensus(), nil, nil)

	if err := loader.Load(DefaultLoadOptions()); err != nil {
		t.Fatalf("fresh load should succeed, got %v", err)
	}
	if loader.Best != nil {
		t.Fatalf("fresh load should not set a tip")
	}
	if tree.Count() != 0 {
		t.Fatalf("expected empty tree, got %d nodes", tree.Count())
	}
}

// writeChain populates n blocks (heights 0..n-1) as a straight line and
// returns their hashes in height order.
func writeChain(t *testing.T, s *store.Store, n int) []codec.Hash {
	t.Helper()
	hashes := make([]codec.Hash, n)
	for i := 0; i < n; i++ {
		hashes[i] = hashN(byte(i + 1))
	}
	txn := s.TxnBegin()
	for i := 0; i < n; i++ {
		d := &DiskBlockIndex{
			Height:   uint32(i),
			File:     1,
			BlockPos: uint32(1000 + i),
			Time:     uint32(1_700_000_000 + i),
		}
		if i > 0 {
			d.PrevHash = hashes[i-1]
		}
		if i < n-1 {
			d.NextHash = hashes[i+1]
		}
		if err := WriteBlockIndex(txn, hashes[i], d); err != nil {
			t.Fatal(err)
		}
	}
	WriteBestChainHash(txn, hashes[n-1])
	WriteSyncCheckpoint(txn, hashes[0])
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}
	return hashes
}

func TestLoaderWarmLoad(t *testing.T) {
	s := openTestStoreForChainidx(t)
	hashes := writeChain(t, s, 10)

	tree := NewTree()
	loader := NewLoader(s, tree, newFakeConsensus(), &fakeFileStore{}, nil)
	// checklevel 0: phase 4 does nothing, so a nil-ish file store is fine.
	if err := loader.Load(LoadOptions{CheckLevel: 0}); err != nil {
		t.Fatalf("warm load should succeed, got %v", err)
	}
	if tree.Count() != 10 {
		t.Fatalf("expected 10 nodes, got %d", tree.Count())
	}
	if loader.BestHeight != 9 {
		t.Fatalf("expected best height 9, got %d", loader.BestHeight)
	}
	tip, ok := tree.Get(hashes[9])
	if !ok {
		t.Fatal("tip not found in tree")
	}
	if loader.Best != tip {
		t.Fatal("loader.Best should be the tip node")
	}
	if tip.ChainTrust.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected chain trust 10 (one per block), got %s", tip.ChainTrust.String())
	}
	if tip.ChainTrust.Cmp(tip.Prev.ChainTrust) <= 0 {
		t.Fatal("chain trust should be strictly increasing along the chain")
	}
}

func TestLoaderBestChainMissing(t *testing.T) {
	s := openTestStoreForChainidx(t)
	txn := s.TxnBegin()
	d := &DiskBlockIndex{Height: 0}
	h := hashN(1)
	if err := WriteBlockIndex(txn, h, d); err != nil {
		t.Fatal(err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	tree := NewTree()
	loader := NewLoader(s, tree, newFakeConsensus(), &fakeFileStore{}, nil)
	err := loader.Load(DefaultLoadOptions())
	if !errcode.Is(err, errcode.BestChainMissing) {
		t.Fatalf("expected BestChainMissing, got %v", err)
	}
}

// TestLoaderMidChainCorruptionLevel2 writes a valid 10-block chain, one
// transaction per block, then corrupts block 5's transaction to point at
// the wrong (file, blockPos). A level-2 self-check should flag block 4 as
// the fork point and invoke SetBestChain exactly once.
func TestLoaderMidChainCorruptionLevel2(t *testing.T) {
	s := openTestStoreForChainidx(t)
	hashes := writeChain(t, s, 10)

	txHashes := make([]codec.Hash, 10)
	fileStore := &fakeFileStore{txHashes: map[blockPosKey][]codec.Hash{}}
	txn := s.TxnBegin()
	for i := 0; i < 10; i++ {
		txHashes[i] = hashN(byte(100 + i))
		pos := DiskTxPos{File: 1, BlockPos: uint32(1000 + i), TxOffset: 0}
		if _, err := AddTxIndex(txn, txHashes[i], pos, 1); err != nil {
			t.Fatal(err)
		}
		fileStore.txHashes[blockPosKey{1, uint32(1000 + i)}] = []codec.Hash{txHashes[i]}
	}
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	// Corrupt block 5's tx index to claim a position that isn't its own.
	txn2 := s.TxnBegin()
	badIdx := NewTxIndex(DiskTxPos{File: 1, BlockPos: 9999, TxOffset: 0}, 1)
	if err := WriteTxIndex(txn2, txHashes[5], badIdx); err != nil {
		t.Fatal(err)
	}
	if err := txn2.Commit(); err != nil {
		t.Fatal(err)
	}

	tree := NewTree()
	consensus := newFakeConsensus()
	loader := NewLoader(s, tree, consensus, fileStore, nil)
	if err := loader.Load(LoadOptions{CheckLevel: 2, CheckBlocks: 10}); err != nil {
		t.Fatalf("load should still return Ok, got %v", err)
	}
	if len(consensus.setBestCalls) != 1 {
		t.Fatalf("expected SetBestChain called exactly once, got %d calls", len(consensus.setBestCalls))
	}
	if consensus.setBestCalls[0] != hashes[4] {
		t.Fatalf("expected fork at block 4 (%s), got %s", hashes[4], consensus.setBestCalls[0])
	}
}

// TestLoaderLevel5SkipsCoinbaseInput exercises the common case a naive
// level-5 check gets wrong: a coinbase input names the zero hash, which
// has no TxIndex of its own. That must not be flagged as corruption.
func TestLoaderLevel5SkipsCoinbaseInput(t *testing.T) {
	s := openTestStoreForChainidx(t)
	writeChain(t, s, 3)

	fileStore := &fakeFileStore{
		txHashes: map[blockPosKey][]codec.Hash{},
		txInputs: map[DiskTxPos][]OutPoint{},
	}
	txn := s.TxnBegin()
	for i := 0; i < 3; i++ {
		txHash := hashN(byte(100 + i))
		pos := DiskTxPos{File: 1, BlockPos: uint32(1000 + i), TxOffset: 0}
		if _, err := AddTxIndex(txn, txHash, pos, 1); err != nil {
			t.Fatal(err)
		}
		fileStore.txHashes[blockPosKey{1, uint32(1000 + i)}] = []codec.Hash{txHash}
		fileStore.txInputs[pos] = []OutPoint{{Hash: codec.ZeroHash, N: 0xffffffff}}
	}
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	tree := NewTree()
	consensus := newFakeConsensus()
	loader := NewLoader(s, tree, consensus, fileStore, nil)
	if err := loader.Load(LoadOptions{CheckLevel: 5, CheckBlocks: 10}); err != nil {
		t.Fatalf("load should succeed, got %v", err)
	}
	if len(consensus.setBestCalls) != 0 {
		t.Fatalf("coinbase inputs must not trigger a rewind, got %d SetBestChain calls: %v",
			len(consensus.setBestCalls), consensus.setBestCalls)
	}
}

// TestLoaderLevel5FlagsUnspentButMarkedSpent is the genuine defect level 5
// exists to catch: txB spends txA's output 0, but txA's spend map still
// marks that output null.
func TestLoaderLevel5FlagsUnspentButMarkedSpent(t *testing.T) {
	s := openTestStoreForChainidx(t)
	hashes := writeChain(t, s, 2)

	txA := hashN(101)
	txB := hashN(102)
	posA := DiskTxPos{File: 1, BlockPos: 1000, TxOffset: 0}
	posB := DiskTxPos{File: 1, BlockPos: 1001, TxOffset: 0}

	fileStore := &fakeFileStore{
		txHashes: map[blockPosKey][]codec.Hash{
			{1, 1000}: {txA},
			{1, 1001}: {txB},
		},
		txInputs: map[DiskTxPos][]OutPoint{
			posB: {{Hash: txA, N: 0}},
		},
	}

	txn := s.TxnBegin()
	if _, err := AddTxIndex(txn, txA, posA, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := AddTxIndex(txn, txB, posB, 0); err != nil {
		t.Fatal(err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	tree := NewTree()
	consensus := newFakeConsensus()
	loader := NewLoader(s, tree, consensus, fileStore, nil)
	if err := loader.Load(LoadOptions{CheckLevel: 5, CheckBlocks: 10}); err != nil {
		t.Fatalf("load should still return Ok, got %v", err)
	}
	if len(consensus.setBestCalls) != 1 {
		t.Fatalf("expected exactly one SetBestChain call, got %d", len(consensus.setBestCalls))
	}
	if consensus.setBestCalls[0] != hashes[0] {
		t.Fatalf("expected fork at block 0 (%s), got %s", hashes[0], consensus.setBestCalls[0])
	}
}

// TestLoaderPopulatesStakeSeen confirms phase 1 records every
// proof-of-stake block's kernel on the Loader itself, not just in a local
// variable that goes out of scope.
func TestLoaderPopulatesStakeSeen(t *testing.T) {
	s := openTestStoreForChainidx(t)
	h0 := hashN(1)
	h1 := hashN(2)
	prevout := OutPoint{Hash: hashN(50), N: 3}
	stakeTime := uint32(1_700_000_500)

	txn := s.TxnBegin()
	if err := WriteBlockIndex(txn, h0, &DiskBlockIndex{Height: 0, NextHash: h1}); err != nil {
		t.Fatal(err)
	}
	if err := WriteBlockIndex(txn, h1, &DiskBlockIndex{
		Height:       1,
		PrevHash:     h0,
		Flags:        FlagProofOfStake,
		PrevoutStake: prevout,
		StakeTime:    stakeTime,
	}); err != nil {
		t.Fatal(err)
	}
	WriteBestChainHash(txn, h1)
	WriteSyncCheckpoint(txn, h0)
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	tree := NewTree()
	loader := NewLoader(s, tree, newFakeConsensus(), &fakeFileStore{}, nil)
	if err := loader.Load(LoadOptions{CheckLevel: 0}); err != nil {
		t.Fatalf("load should succeed, got %v", err)
	}
	if !loader.HasSeenStake(prevout, stakeTime) {
		t.Fatal("expected the proof-of-stake block's kernel to be recorded in StakeSeen")
	}
	if loader.HasSeenStake(prevout, stakeTime+1) {
		t.Fatal("a different stake time must not match")
	}
}

func TestTreeInsertOrGetZeroHashIsNil(t *testing.T) {
	tree := NewTree()
	if n := tree.insertOrGet(codec.ZeroHash); n != nil {
		t.Fatalf("zero hash should never create a node, got %+v", n)
	}
}

func TestTreeInsertOrGetIdempotent(t *testing.T) {
	tree := NewTree()
	h := hashN(5)
	a := tree.insertOrGet(h)
	b := tree.insertOrGet(h)
	if a != b {
		t.Fatal("insertOrGet should return the same node for the same hash")
	}
}

func TestGetAncestorWalksToGenesis(t *testing.T) {
	var prev *BlockIndex
	nodes := make([]*BlockIndex, 20)
	for i := range nodes {
		n := newBlockIndex(hashN(byte(i + 1)))
		n.Height = i
		n.Prev = prev
		n.BuildSkip()
		nodes[i] = n
		prev = n
	}
	tip := nodes[len(nodes)-1]
	for h := 0; h < len(nodes); h++ {
		got := tip.GetAncestor(h)
		if got != nodes[h] {
			t.Fatalf("GetAncestor(%d): got height %v, want node at height %d", h, got, h)
		}
	}
	if tip.GetAncestor(-1) != nil || tip.GetAncestor(len(nodes)) != nil {
		t.Fatal("out-of-range ancestor lookups should return nil")
	}
}
