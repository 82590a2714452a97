package main

import (
	"math/big"

	"github.com/Techspire/neutron/internal/chainidx"
	"github.com/Techspire/neutron/internal/codec"
	"github.com/Techspire/neutron/internal/errcode"
)

// deferredConsensus and deferredFileStore stand in for the full node's
// block-validation engine and block-file reader, both of which this
// subsystem consumes but does not implement. A node wiring this package in
// for real supplies its own chainidx.Consensus and chainidx.BlockFileStore;
// these defaults let the loader run standalone. They accept every block and
// transaction, report no transactions and no inputs for any position, and
// never rewind, so the self-check tiers find nothing to flag; only ReadBlock
// and ReadTx return an error.
type deferredConsensus struct{}

func (deferredConsensus) CheckIndex(*chainidx.BlockIndex) error                  { return nil }
func (deferredConsensus) BlockTrust(*chainidx.BlockIndex) *big.Int               { return big.NewInt(1) }
func (deferredConsensus) StakeModifierChecksum(*chainidx.BlockIndex) uint32      { return 0 }
func (deferredConsensus) VerifyCheckpoint(height int, checksum uint32) bool      { return true }
func (deferredConsensus) CheckBlock(*chainidx.BlockIndex, bool, bool) error      { return nil }
func (deferredConsensus) CheckTransaction([]byte) error                         { return nil }
func (deferredConsensus) SetBestChain(fork *chainidx.BlockIndex) error {
	return nil
}

type deferredFileStore struct{}

func (deferredFileStore) ReadBlock(fileID, offset uint32) ([]byte, error) {
	return nil, errcode.New(errcode.StoreErr, "no block-file store configured")
}

func (deferredFileStore) ReadTx(pos chainidx.DiskTxPos) ([]byte, error) {
	return nil, errcode.New(errcode.StoreErr, "no block-file store configured")
}

func (deferredFileStore) BlockTxHashes(fileID, offset uint32) ([]codec.Hash, error) {
	return nil, nil
}

func (deferredFileStore) TxInputs(pos chainidx.DiskTxPos) ([]chainidx.OutPoint, error) {
	return nil, nil
}

// deferredTransport stands in for the P2P layer the spork manager relays
// through; a node wiring this in for real supplies its own transport.
type deferredTransport struct{}

func (deferredTransport) RelayInv(codec.Hash)                            {}
func (deferredTransport) SendMessage(peer, command string, p []byte) error { return nil }
func (deferredTransport) Misbehaving(peer string, weight int)            {}
func (deferredTransport) IsInitialBlockDownload() bool                   { return false }
