package codec

import (
	"bytes"
	"testing"
)

func TestVarIntRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 0xfc, 0xfd, 0xfe, 0xffff, 0x10000, 0xffffffff, 0x100000000, 1 << 40}
	for _, v := range cases {
		buf := &bytes.Buffer{}
		if err := WriteVarInt(buf, v); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
		if buf.Len() != VarIntSize(v) {
			t.Fatalf("size mismatch for %d: wrote %d bytes, VarIntSize says %d", v, buf.Len(), VarIntSize(v))
		}
		got, err := ReadVarInt(buf)
		if err != nil {
			t.Fatalf("read %d: %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip %d: got %d", v, got)
		}
	}
}

func TestVarIntNonCanonicalRejected(t *testing.T) {
	// 0xfd discriminant encoding a value below the 3-byte threshold.
	buf := bytes.NewBuffer([]byte{0xfd, 0x05, 0x00})
	if _, err := ReadVarInt(buf); err == nil {
		t.Fatal("expected non-canonical varint to be rejected")
	}
}

func TestVarIntTruncated(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0xfe, 0x01})
	if _, err := ReadVarInt(buf); err == nil {
		t.Fatal("expected truncated varint to fail")
	}
}

func TestHashRoundTrip(t *testing.T) {
	var h Hash
	for i := range h {
		h[i] = byte(i)
	}
	buf := &bytes.Buffer{}
	if err := h.Serialize(buf); err != nil {
		t.Fatal(err)
	}
	var got Hash
	if err := got.Unserialize(buf); err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Fatalf("hash round trip mismatch")
	}
}

func TestStringRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteString(buf, "strCheckpointPubKey"); err != nil {
		t.Fatal(err)
	}
	got, err := ReadString(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != "strCheckpointPubKey" {
		t.Fatalf("got %q", got)
	}
}
