package main

import (
	"crypto/aes"
	"crypto/sha256"
)

// DeriveGVKey computes the per-transaction GV key K = SHA256(gvs || tx.id)
// (spec §4.4).
func DeriveGVKey(gvs string, txID []byte) []byte {
	h := sha256.New()
	h.Write([]byte(gvs))
	h.Write(txID)
	return h.Sum(nil)
}

// aesECBEncrypt/aesECBDecrypt implement raw AES-ECB with no padding over a
// single 32-byte (two AES blocks) plaintext, per spec §4.4/§6.2. ECB is
// acceptable here only because the plaintext is unique per key; this must
// not be generalized to multi-block or variable-length data.
func aesECBEncrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	bs := block.BlockSize()
	out := make([]byte, len(plaintext))
	for i := 0; i+bs <= len(plaintext); i += bs {
		block.Encrypt(out[i:i+bs], plaintext[i:i+bs])
	}
	return out, nil
}

func aesECBDecrypt(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	bs := block.BlockSize()
	out := make([]byte, len(ciphertext))
	for i := 0; i+bs <= len(ciphertext); i += bs {
		block.Decrypt(out[i:i+bs], ciphertext[i:i+bs])
	}
	return out, nil
}

// SignGV computes tx.gv = AES-ECB-Encrypt(K, tx.id) for a freshly-hashed
// transaction (spec §4.4).
func SignGV(gvs string, txID []byte) ([]byte, error) {
	key := DeriveGVKey(gvs, txID)
	return aesECBEncrypt(key, txID)
}

// VerifyGV checks that AES-ECB-Decrypt(key, gv) == txID (spec §4.4). A
// malformed or wrong-length gv/key never panics — it simply fails to verify.
func VerifyGV(key, txID, gv []byte) bool {
	if len(key) != 32 || len(gv) != len(txID) || len(gv) == 0 {
		return false
	}
	plain, err := aesECBDecrypt(key, gv)
	if err != nil {
		return false
	}
	if len(plain) != len(txID) {
		return false
	}
	for i := range plain {
		if plain[i] != txID[i] {
			return false
		}
	}
	return true
}
