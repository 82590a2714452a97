package spork

import (
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/Techspire/neutron/internal/codec"
	"github.com/Techspire/neutron/internal/errcode"
	"github.com/Techspire/neutron/internal/log"
)

// Transport is the P2P collaborator the manager relays accepted sporks
// through and reports misbehavior to.
type Transport interface {
	RelayInv(hash codec.Hash)
	SendMessage(peer string, command string, payload []byte) error
	Misbehaving(peer string, weight int)
	IsInitialBlockDownload() bool
}

// Clock abstracts "now" so tests can drive replay/freshness scenarios
// deterministically instead of racing the wall clock.
type Clock func() int64

// Manager holds the active spork value per id, verifies incoming
// messages, and relays accepted ones. The block-tree lock, if any caller
// holds both, must always be acquired before the manager's lock.
type Manager struct {
	mu sync.RWMutex

	mapSporks       map[codec.Hash]*Message
	mapSporksActive map[int32]*Message

	transport Transport
	clock     Clock

	verifyKey  *btcec.PublicKey
	privateKey *btcec.PrivateKey
}

// Config selects the network (main vs test) public key and, on the signer
// node, the master private key. Spork 9 (protocol v3 enforcement) governs
// which compiled-in key pair is in force; that choice is made once, here,
// and never re-evaluated for the lifetime of the Manager.
type Config struct {
	Testnet        bool
	SporkNineActive bool
	PrivateKeyHex  string // hex-encoded secp256k1 scalar; empty if this node cannot sign
	Transport      Transport
	Clock          Clock // defaults to time.Now().Unix if nil
}

// Compiled-in verifying keys, taken verbatim from the original spork
// class's constructor. Once spork 9 is active, main-net and test-net both
// use the same key, which differs from each network's earlier key.
const (
	mainPubKeyHex          = "04cc53cdd3e788d3ea9ca63468b9f2bcc2838af920d8e72985739e8ac4159d518d1a1597da13b1854d8331def51778aa6a01951cef7763fa4300341f34431bad49"
	testPubKeyHex          = "042E0E340B40681EEFB7C67B7CBE968E3AB47F4A393E3626E13309CFDC5A1C5D5B9537CD3CEBA3B5B1656D2949355CADA0F5EE74C4EDCCBEF84BF80151EF3B0C0A"
	sporkNineMainPubKeyHex = "042b98d4150746cc5ee1b5a991244f8a2b155630efbfa490fee76202912ed2d6e9b6e5c62d424b9f5878ee7aff68e9aa84d10821a33e99de27fed2d77f57247954"
	sporkNineTestPubKeyHex = "042b98d4150746cc5ee1b5a991244f8a2b155630efbfa490fee76202912ed2d6e9b6e5c62d424b9f5878ee7aff68e9aa84d10821a33e99de27fed2d77f57247954"
)

func New(cfg Config) (*Manager, error) {
	keyHex := mainPubKeyHex
	if cfg.SporkNineActive {
		keyHex = sporkNineMainPubKeyHex
	}
	if cfg.Testnet {
		keyHex = testPubKeyHex
		if cfg.SporkNineActive {
			keyHex = sporkNineTestPubKeyHex
		}
	}
	verifyKey, err := parseHexPubKey(keyHex)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		mapSporks:       make(map[codec.Hash]*Message),
		mapSporksActive: make(map[int32]*Message),
		transport:       cfg.Transport,
		clock:           cfg.Clock,
		verifyKey:       verifyKey,
	}
	if m.clock == nil {
		m.clock = defaultClock
	}
	if cfg.PrivateKeyHex != "" {
		priv, err := parseHexPrivKey(cfg.PrivateKeyHex)
		if err != nil {
			return nil, err
		}
		m.privateKey = priv
	}
	return m, nil
}

func parseHexPubKey(s string) (*btcec.PublicKey, error) {
	b, err := hexDecode(s)
	if err != nil {
		return nil, errcode.Wrap(errcode.Malformed, "spork verify key", err)
	}
	pk, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, errcode.Wrap(errcode.Malformed, "spork verify key", err)
	}
	return pk, nil
}

func parseHexPrivKey(s string) (*btcec.PrivateKey, error) {
	b, err := hexDecode(s)
	if err != nil {
		return nil, errcode.Wrap(errcode.Malformed, "spork private key", err)
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	return priv, nil
}

// ProcessSpork handles one incoming "spork" command: drop during initial
// block download, decode, reject replays and duplicates, verify the
// signature, then accept and relay.
func (m *Manager) ProcessSpork(peer string, raw []byte) error {
	if m.transport != nil && m.transport.IsInitialBlockDownload() {
		return nil
	}

	msg, err := decodeMessage(raw)
	if err != nil {
		return err
	}

	hash, err := msg.Hash()
	if err != nil {
		return err
	}

	m.mu.Lock()
	if _, dup := m.mapSporks[hash]; dup {
		m.mu.Unlock()
		return errcode.New(errcode.ReplayOrStale, "duplicate spork message")
	}
	if active, ok := m.mapSporksActive[msg.SporkID]; ok && active.TimeSigned >= msg.TimeSigned {
		m.mu.Unlock()
		return errcode.New(errcode.ReplayOrStale, "spork not strictly newer than active")
	}
	m.mu.Unlock()

	if !m.checkSignature(msg) {
		if m.transport != nil {
			m.transport.Misbehaving(peer, int(activeOrDefault(m, PaymentEnforcementDoSValue)))
		}
		return errcode.New(errcode.SignatureInvalid, "spork signature verification failed")
	}

	m.mu.Lock()
	m.mapSporks[hash] = msg
	m.mapSporksActive[msg.SporkID] = msg
	m.mu.Unlock()

	log.Info("spork: accepted %s = %d (signed %d)", NameByID(msg.SporkID), msg.Value, msg.TimeSigned)

	executeSpork(msg.SporkID, msg.Value)

	if m.transport != nil {
		m.transport.RelayInv(hash)
	}
	return nil
}

// executeSpork is the extension point for any immediate side effect a
// spork's new value should trigger beyond becoming the active value (the
// original spork class's ExecuteSpork carries no such effect either; every
// known spork id today is read on demand via GetSporkValue/IsSporkActive).
func executeSpork(id int32, value int64) {
}

// ProcessGetSporks answers a "getsporks" request by sending every active
// spork to the requesting peer.
func (m *Manager) ProcessGetSporks(peer string) error {
	if m.transport == nil {
		return nil
	}
	m.mu.RLock()
	active := make([]*Message, 0, len(m.mapSporksActive))
	for _, msg := range m.mapSporksActive {
		active = append(active, msg)
	}
	m.mu.RUnlock()

	for _, msg := range active {
		data, err := encodeMessage(msg)
		if err != nil {
			return err
		}
		if err := m.transport.SendMessage(peer, "spork", data); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) checkSignature(msg *Message) bool {
	hash, err := msg.Hash()
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(msg.Signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash[:], m.verifyKey)
}

// Sign produces a detached signature over msg's hash using the manager's
// master private key. Returns an error if this node holds no private key.
func (m *Manager) Sign(msg *Message) error {
	if m.privateKey == nil {
		return errcode.New(errcode.Malformed, "spork: no private key configured for signing")
	}
	hash, err := msg.Hash()
	if err != nil {
		return err
	}
	sig := ecdsa.Sign(m.privateKey, hash[:])
	msg.Signature = sig.Serialize()
	return nil
}

// UpdateSpork is the local administrative path: construct, sign, and feed
// through the same ingress pipeline as a gossiped message, guaranteeing
// relay and identical validation.
func (m *Manager) UpdateSpork(id int32, value int64) error {
	msg := &Message{SporkID: id, Value: value, TimeSigned: m.clock()}
	if err := m.Sign(msg); err != nil {
		return err
	}
	data, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	return m.ProcessSpork("", data)
}

// IsSporkActive reports whether id's current value, interpreted as an
// activation unix timestamp, has passed.
func (m *Manager) IsSporkActive(id int32) bool {
	return m.GetSporkValue(id) < m.clock()
}

// GetSporkValue returns the active value for id, or its compiled-in
// default if no message has overridden it yet.
func (m *Manager) GetSporkValue(id int32) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if msg, ok := m.mapSporksActive[id]; ok {
		return msg.Value
	}
	return compiledDefault(id)
}

func activeOrDefault(m *Manager, id int32) int64 { return m.GetSporkValue(id) }

func defaultClock() int64 { return wallClockNow() }
