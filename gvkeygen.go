package main

import (
	"crypto/sha256"

	"github.com/tyler-smith/go-bip39"
)

// NewGVSecret generates a fresh BIP-39 mnemonic and derives a stable GV
// secret from it (SPEC_FULL.md's GV-secret-distribution supplement, grounded
// on original_source/node.py's ad-hoc `--gvs` string and hardened with the
// teacher's own wallet mnemonic pattern). The mnemonic is the thing a human
// keeps; the GV secret handed to --gvs is always re-derivable from it.
func NewGVSecret() (mnemonic string, secret []byte, err error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", nil, err
	}
	mnemonic, err = bip39.NewMnemonic(entropy)
	if err != nil {
		return "", nil, err
	}
	secret = GVSecretFromMnemonic(mnemonic)
	return mnemonic, secret, nil
}

// GVSecretFromMnemonic recovers the 32-byte GV secret for a previously
// generated mnemonic, using the standard empty-passphrase BIP-39 seed and
// folding it down with SHA-256 since the GV scheme (gv.go) wants a short
// secret string, not a 64-byte seed.
func GVSecretFromMnemonic(mnemonic string) []byte {
	seed := bip39.NewSeed(mnemonic, "")
	sum := sha256.Sum256(seed)
	return sum[:]
}
