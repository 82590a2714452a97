package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "txleveldb")
	s, err := Open(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetAbsentKey(t *testing.T) {
	s := openTestStore(t)
	v, err := s.Get([]byte("missing"))
	if err != nil || v != nil {
		t.Fatalf("expected (nil, nil) for absent key, got (%v, %v)", v, err)
	}
}

func TestDeleteAbsentKeySucceeds(t *testing.T) {
	s := openTestStore(t)
	if err := s.Delete([]byte("missing")); err != nil {
		t.Fatalf("delete of absent key should succeed: %v", err)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	v, err := s.Get([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "v" {
		t.Fatalf("got %q", v)
	}
}

func TestTxnReadYourWrites(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put([]byte("k"), []byte("old")); err != nil {
		t.Fatal(err)
	}

	txn := s.TxnBegin()
	txn.Put([]byte("k"), []byte("new"))
	txn.Delete([]byte("other"))

	v, err := txn.Get([]byte("k"))
	if err != nil || string(v) != "new" {
		t.Fatalf("txn should see its own pending write, got %q err %v", v, err)
	}

	v, err = txn.Get([]byte("other"))
	if err != nil || v != nil {
		t.Fatalf("txn should see tombstone as absent, got %q err %v", v, err)
	}

	// Store itself is untouched until commit.
	committed, err := s.Get([]byte("k"))
	if err != nil || string(committed) != "old" {
		t.Fatalf("store should still read pre-commit value, got %q", committed)
	}

	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	v, err = s.Get([]byte("k"))
	if err != nil || string(v) != "new" {
		t.Fatalf("after commit expected new, got %q", v)
	}
}

func TestTxnAbortDiscardsLog(t *testing.T) {
	s := openTestStore(t)
	txn := s.TxnBegin()
	txn.Put([]byte("k"), []byte("v"))
	txn.Abort()

	v, err := s.Get([]byte("k"))
	if err != nil || v != nil {
		t.Fatalf("abort must not write anything, got %q", v)
	}

	// A fresh Txn can now be started.
	txn2 := s.TxnBegin()
	txn2.Abort()
}

func TestSecondTxnBeginPanics(t *testing.T) {
	s := openTestStore(t)
	s.TxnBegin()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic beginning a second concurrent txn")
		}
	}()
	s.TxnBegin()
}

func TestIterateAscending(t *testing.T) {
	s := openTestStore(t)
	keys := []string{"a", "c", "b"}
	for _, k := range keys {
		if err := s.Put([]byte(k), []byte(k)); err != nil {
			t.Fatal(err)
		}
	}
	it := s.Iterate(nil)
	defer it.Close()
	var got []string
	for it.Next() {
		got = append(got, string(it.Key()))
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
