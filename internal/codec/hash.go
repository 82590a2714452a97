package codec

import (
	"bytes"
	"encoding/hex"
	"io"

	"github.com/Techspire/neutron/internal/errcode"
)

// HashSize is the fixed width of a Hash.
const HashSize = 32

// Hash is a fixed 32-byte opaque value with lexicographic total order. The
// zero value is the sentinel for "absent" (e.g. a null prev/next link).
type Hash [HashSize]byte

// ZeroHash is the absent sentinel.
var ZeroHash = Hash{}

func (h Hash) IsZero() bool { return h == ZeroHash }

// Cmp gives the lexicographic byte-compare total order blockindex sorting requires.
func (h Hash) Cmp(o Hash) int { return bytes.Compare(h[:], o[:]) }

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != HashSize {
		return h, errcode.New(errcode.Malformed, "hash: wrong byte length")
	}
	copy(h[:], b)
	return h, nil
}

func (h Hash) Serialize(w io.Writer) error {
	_, err := w.Write(h[:])
	return err
}

func (h *Hash) Unserialize(r io.Reader) error {
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return errcode.Wrap(errcode.Malformed, "hash", err)
	}
	return nil
}

// WriteBytes encodes an opaque byte string as varint(len) || bytes — used
// for signatures, pubkeys, and other variable-length blobs.
func WriteBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// MaxBlobSize bounds ReadBytes against a corrupt or adversarial length
// prefix driving an enormous allocation.
const MaxBlobSize = 32 << 20

func ReadBytes(r io.Reader) ([]byte, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if n > MaxBlobSize {
		return nil, errcode.New(errcode.Malformed, "blob length exceeds maximum")
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, errcode.Wrap(errcode.Malformed, "blob body", err)
	}
	return b, nil
}

// WriteString encodes a UTF-8 string as varint(len) || bytes.
func WriteString(w io.Writer, s string) error {
	return WriteBytes(w, []byte(s))
}

func ReadString(r io.Reader) (string, error) {
	b, err := ReadBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
