package chainidx

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Techspire/neutron/internal/errcode"
	"github.com/Techspire/neutron/internal/store"
)

// CurrentSchemaVersion is the version this build writes to a freshly
// created or migrated database.
const CurrentSchemaVersion uint32 = 1

// OpenAndMigrate opens the KV store at dataDir/txleveldb, wiping and
// recreating both it and every blk<NNNN>.dat file under dataDir when the
// stored schema version is older than CurrentSchemaVersion. A missing
// database is treated as version 0 and always migrates.
func OpenAndMigrate(dataDir string, opts store.Options) (*store.Store, error) {
	storeDir := filepath.Join(dataDir, "txleveldb")

	s, err := store.Open(storeDir, opts)
	if err != nil {
		return nil, err
	}

	version, found, err := ReadVersion(s)
	if err != nil {
		s.Close()
		return nil, err
	}
	if found && version >= CurrentSchemaVersion {
		return s, nil
	}

	if err := s.Close(); err != nil {
		return nil, errcode.Wrap(errcode.StoreErr, "close before migration", err)
	}
	if err := removeBlockFiles(dataDir); err != nil {
		return nil, err
	}

	migrated, err := store.Open(storeDir, mergeWipe(opts))
	if err != nil {
		return nil, err
	}
	txn := migrated.TxnBegin()
	WriteVersion(txn, CurrentSchemaVersion)
	if err := txn.Commit(); err != nil {
		migrated.Close()
		return nil, err
	}
	return migrated, nil
}

func mergeWipe(o store.Options) store.Options {
	o.Wipe = true
	o.CreateIfMissing = true
	return o
}

// removeBlockFiles deletes blk0001.dat, blk0002.dat, ... under dataDir up to
// the first name that does not exist.
func removeBlockFiles(dataDir string) error {
	for n := 1; ; n++ {
		name := filepath.Join(dataDir, fmt.Sprintf("blk%04d.dat", n))
		if _, err := os.Stat(name); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return errcode.Wrap(errcode.StoreErr, "stat block file during migration", err)
		}
		if err := os.Remove(name); err != nil {
			return errcode.Wrap(errcode.StoreErr, "remove block file during migration", err)
		}
	}
}
