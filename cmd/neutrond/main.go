// Command neutrond rebuilds the on-disk chain index into memory, runs its
// self-check, and serves the governance-flag (spork) gossip protocol on top
// of whatever P2P transport the surrounding node supplies.
package main

import (
	"flag"
	"os"
	"os/signal"
	"sync"

	"github.com/pkg/errors"

	"github.com/Techspire/neutron/internal/chainidx"
	"github.com/Techspire/neutron/internal/conf"
	"github.com/Techspire/neutron/internal/log"
	"github.com/Techspire/neutron/internal/spork"
	"github.com/Techspire/neutron/internal/store"
)

var shutdownRequestChannel = make(chan struct{})

var interruptSignals = []os.Signal{os.Interrupt}

// interruptListener mirrors the node's own signal handling: it returns a
// channel that closes on the first SIGINT or internal shutdown request.
func interruptListener() <-chan struct{} {
	c := make(chan struct{})
	closeOnce := sync.Once{}
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, interruptSignals...)
		select {
		case sig := <-sigCh:
			log.Info("received signal (%s), shutting down", sig)
		case <-shutdownRequestChannel:
			log.Info("shutdown requested, shutting down")
		}
		closeOnce.Do(func() { close(c) })
	}()
	return c
}

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := conf.Load(*configFile)
	if err != nil {
		panic(errors.Wrap(err, "load config"))
	}
	if err := log.Init(cfg.DataDir, cfg.LogLevel); err != nil {
		panic(errors.Wrap(err, "init logger"))
	}

	interrupt := interruptListener()

	s, err := chainidx.OpenAndMigrate(cfg.DataDir, store.Options{
		CreateIfMissing: true,
		CacheBytes:      cfg.DBCacheMB << 20,
	})
	if err != nil {
		log.Critical("open chain index: %v", err)
		os.Exit(1)
	}
	defer s.Close()

	tree := chainidx.NewTree()
	var shutdown int32
	loader := chainidx.NewLoader(s, tree, deferredConsensus{}, deferredFileStore{}, &shutdown)

	if err := loader.Load(chainidx.LoadOptions{CheckLevel: cfg.CheckLevel, CheckBlocks: cfg.CheckBlocks}); err != nil {
		log.Critical("load chain index: %v", err)
		os.Exit(1)
	}
	log.Info("chain index loaded: %d blocks, best height %d", tree.Count(), loader.BestHeight)

	sporkMgr, err := spork.New(spork.Config{
		Testnet:       cfg.TestNet,
		PrivateKeyHex: cfg.SporkKeyHex,
		Transport:     deferredTransport{},
	})
	if err != nil {
		log.Critical("init spork manager: %v", err)
		os.Exit(1)
	}
	log.Info("spork manager ready (masternode payments enforcement active: %v)",
		sporkMgr.IsSporkActive(spork.MasternodePaymentsEnforcement))

	<-interrupt
	log.Info("neutrond exiting")
}
