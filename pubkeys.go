package main

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"sync"
)

// PubKeyTable maps hex(sha256(pub_key)) to the parsed public key (spec §3.5).
// It is append-mostly: a connection registers its key once at handshake and
// every later transaction from that connection is looked up by pub_key_hash.
type PubKeyTable struct {
	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey
	raw  map[string][]byte
}

func NewPubKeyTable() *PubKeyTable {
	return &PubKeyTable{
		keys: make(map[string]*rsa.PublicKey),
		raw:  make(map[string][]byte),
	}
}

// HashPubKey returns the 32-byte digest used as the table's lookup key.
func HashPubKey(pemBytes []byte) []byte {
	sum := sha256.Sum256(pemBytes)
	return sum[:]
}

// Register parses a PEM-encoded RSA public key and stores it under its hash,
// per the ingress handshake (spec §4.7). Returns the pub_key_hash.
func (t *PubKeyTable) Register(pemBytes []byte) ([]byte, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("pubkeys: no PEM block found")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("pubkeys: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("pubkeys: not an RSA public key")
	}

	hash := HashPubKey(pemBytes)
	key := hex.EncodeToString(hash)

	t.mu.Lock()
	t.keys[key] = rsaPub
	t.raw[key] = append([]byte(nil), pemBytes...)
	t.mu.Unlock()

	return hash, nil
}

// Lookup returns the public key registered under the given pub_key_hash.
func (t *PubKeyTable) Lookup(pubKeyHash []byte) (*rsa.PublicKey, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pub, ok := t.keys[hex.EncodeToString(pubKeyHash)]
	return pub, ok
}

// Raw returns the original PEM bytes registered under the given pub_key_hash,
// needed to reconstruct the signing preimage (spec §4.1 includes pub_key).
func (t *PubKeyTable) Raw(pubKeyHash []byte) ([]byte, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	raw, ok := t.raw[hex.EncodeToString(pubKeyHash)]
	return raw, ok
}
