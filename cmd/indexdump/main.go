// Command indexdump prints the stored block-index record for a single
// block hash, for inspecting a datadir without running the full node.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Techspire/neutron/internal/chainidx"
	"github.com/Techspire/neutron/internal/codec"
	"github.com/Techspire/neutron/internal/store"
)

func main() {
	dataDir := flag.String("datadir", "", "directory holding txleveldb")
	hashHex := flag.String("hash", "", "block hash, hex-encoded")
	flag.Parse()

	if *dataDir == "" || *hashHex == "" {
		fmt.Fprintln(os.Stderr, "usage: indexdump -datadir <dir> -hash <hex>")
		os.Exit(2)
	}

	hash, err := codec.HashFromHex(*hashHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad hash: %v\n", err)
		os.Exit(1)
	}

	s, err := store.Open(*dataDir+"/txleveldb", store.Options{CreateIfMissing: false})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	idx, err := chainidx.ReadBlockIndex(s, hash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read block index: %v\n", err)
		os.Exit(1)
	}
	if idx == nil {
		fmt.Fprintf(os.Stderr, "no block-index record for %s\n", hash)
		os.Exit(1)
	}

	fmt.Printf("hash:        %s\n", hash)
	fmt.Printf("height:      %d\n", idx.Height)
	fmt.Printf("file/pos:    %d/%d\n", idx.File, idx.BlockPos)
	fmt.Printf("time/bits:   %d/%d\n", idx.Time, idx.Bits)
	fmt.Printf("flags:       %#x (proof-of-stake: %v)\n", idx.Flags, idx.IsProofOfStake())
	fmt.Printf("mint:        %d\n", idx.Mint)
	fmt.Printf("moneysupply: %d\n", idx.MoneySupply)
	fmt.Printf("prev:        %s\n", idx.PrevHash)
	fmt.Printf("next:        %s\n", idx.NextHash)
}
