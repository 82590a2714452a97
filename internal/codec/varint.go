package codec

import (
	"encoding/binary"
	"io"

	"github.com/Techspire/neutron/internal/errcode"
)

// WriteVarInt encodes val as a compact length-prefixed unsigned integer:
// 1 byte for values below 0xfd, a 0xfd discriminant plus a 2-byte value for
// values that fit in 16 bits, a 0xfe discriminant plus 4 bytes for 32 bits,
// and a 0xff discriminant plus 8 bytes otherwise.
func WriteVarInt(w io.Writer, val uint64) error {
	switch {
	case val < 0xfd:
		return writeUint8(w, uint8(val))
	case val <= 0xffff:
		if err := writeUint8(w, 0xfd); err != nil {
			return err
		}
		return writeUint16(w, uint16(val))
	case val <= 0xffffffff:
		if err := writeUint8(w, 0xfe); err != nil {
			return err
		}
		return writeUint32(w, uint32(val))
	default:
		if err := writeUint8(w, 0xff); err != nil {
			return err
		}
		return writeUint64(w, val)
	}
}

// ReadVarInt decodes a value written by WriteVarInt. A discriminant used to
// encode a value that fits in a shorter form is rejected as Malformed: this
// keeps the encoding canonical (decode(encode(x)) == x and nothing else).
func ReadVarInt(r io.Reader) (uint64, error) {
	disc, err := readUint8(r)
	if err != nil {
		return 0, errcode.Wrap(errcode.Malformed, "varint discriminant", err)
	}
	switch disc {
	case 0xff:
		v, err := readUint64(r)
		if err != nil {
			return 0, errcode.Wrap(errcode.Malformed, "varint u64 body", err)
		}
		if v <= 0xffffffff {
			return 0, errcode.New(errcode.Malformed, "varint: non-canonical 9-byte encoding")
		}
		return v, nil
	case 0xfe:
		v, err := readUint32(r)
		if err != nil {
			return 0, errcode.Wrap(errcode.Malformed, "varint u32 body", err)
		}
		if uint64(v) <= 0xffff {
			return 0, errcode.New(errcode.Malformed, "varint: non-canonical 5-byte encoding")
		}
		return uint64(v), nil
	case 0xfd:
		v, err := readUint16(r)
		if err != nil {
			return 0, errcode.Wrap(errcode.Malformed, "varint u16 body", err)
		}
		if uint64(v) < 0xfd {
			return 0, errcode.New(errcode.Malformed, "varint: non-canonical 3-byte encoding")
		}
		return uint64(v), nil
	default:
		return uint64(disc), nil
	}
}

// VarIntSize returns the number of bytes WriteVarInt would emit for val.
func VarIntSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= 0xffff:
		return 3
	case val <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

func writeUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readUint8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func writeUint16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// WriteUint32 / ReadUint32 etc. are exported fixed-width primitives used
// directly by record codecs that don't need the varint's length framing.
func WriteUint32(w io.Writer, v uint32) error { return writeUint32(w, v) }
func ReadUint32(r io.Reader) (uint32, error) {
	v, err := readUint32(r)
	if err != nil {
		return 0, errcode.Wrap(errcode.Malformed, "uint32", err)
	}
	return v, nil
}

func WriteUint64(w io.Writer, v uint64) error { return writeUint64(w, v) }
func ReadUint64(r io.Reader) (uint64, error) {
	v, err := readUint64(r)
	if err != nil {
		return 0, errcode.Wrap(errcode.Malformed, "uint64", err)
	}
	return v, nil
}

func WriteInt64(w io.Writer, v int64) error { return writeUint64(w, uint64(v)) }
func ReadInt64(r io.Reader) (int64, error) {
	v, err := readUint64(r)
	if err != nil {
		return 0, errcode.Wrap(errcode.Malformed, "int64", err)
	}
	return int64(v), nil
}

func WriteInt32(w io.Writer, v int32) error { return writeUint32(w, uint32(v)) }
func ReadInt32(r io.Reader) (int32, error) {
	v, err := readUint32(r)
	if err != nil {
		return 0, errcode.Wrap(errcode.Malformed, "int32", err)
	}
	return int32(v), nil
}

func WriteBool(w io.Writer, v bool) error {
	if v {
		return writeUint8(w, 1)
	}
	return writeUint8(w, 0)
}

func ReadBool(r io.Reader) (bool, error) {
	v, err := readUint8(r)
	if err != nil {
		return false, errcode.Wrap(errcode.Malformed, "bool", err)
	}
	return v != 0, nil
}
