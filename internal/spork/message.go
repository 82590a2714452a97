package spork

import (
	"bytes"
	"crypto/sha256"
	"io"

	"github.com/Techspire/neutron/internal/codec"
	"github.com/Techspire/neutron/internal/errcode"
)

// Message is a signed governance-flag update. Hash is computed over the
// canonical encoding of (SporkID, Value, TimeSigned) only — the signature
// itself is excluded, since it is what the hash is signed with.
type Message struct {
	SporkID    int32
	Value      int64
	TimeSigned int64
	Signature  []byte
}

func (m *Message) signedFields(w io.Writer) error {
	if err := codec.WriteInt32(w, m.SporkID); err != nil {
		return err
	}
	if err := codec.WriteInt64(w, m.Value); err != nil {
		return err
	}
	return codec.WriteInt64(w, m.TimeSigned)
}

// Hash returns the double-SHA256 digest of the signed fields, the same
// digest Sign and checkSignature operate over.
func (m *Message) Hash() (codec.Hash, error) {
	buf := &bytes.Buffer{}
	if err := m.signedFields(buf); err != nil {
		return codec.ZeroHash, err
	}
	first := sha256.Sum256(buf.Bytes())
	second := sha256.Sum256(first[:])
	return codec.Hash(second), nil
}

func (m *Message) Serialize(w io.Writer) error {
	if err := m.signedFields(w); err != nil {
		return err
	}
	return codec.WriteBytes(w, m.Signature)
}

func (m *Message) Unserialize(r io.Reader) error {
	var err error
	if m.SporkID, err = codec.ReadInt32(r); err != nil {
		return err
	}
	if m.Value, err = codec.ReadInt64(r); err != nil {
		return err
	}
	if m.TimeSigned, err = codec.ReadInt64(r); err != nil {
		return err
	}
	if m.Signature, err = codec.ReadBytes(r); err != nil {
		return err
	}
	return nil
}

func encodeMessage(m *Message) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := m.Serialize(buf); err != nil {
		return nil, errcode.Wrap(errcode.Malformed, "encode spork message", err)
	}
	return buf.Bytes(), nil
}

func decodeMessage(data []byte) (*Message, error) {
	m := &Message{}
	if err := m.Unserialize(bytes.NewReader(data)); err != nil {
		return nil, errcode.Wrap(errcode.Malformed, "decode spork message", err)
	}
	return m, nil
}
