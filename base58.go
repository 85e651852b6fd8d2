package main

import (
	"math/big"

	"golang.org/x/crypto/ripemd160"
)

const b58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Base58Encode encodes a byte array to Base58
func Base58Encode(input []byte) []byte {
	var result []byte

	x := new(big.Int).SetBytes(input)

	base := big.NewInt(int64(len(b58Alphabet)))
	zero := big.NewInt(0)
	mod := &big.Int{}

	for x.Cmp(zero) != 0 {
		x.DivMod(x, base, mod)
		result = append(result, b58Alphabet[mod.Int64()])
	}

	ReverseBytes(result)

	for _, b := range input {
		if b == 0x00 {
			result = append([]byte{b58Alphabet[0]}, result...)
		} else {
			break
		}
	}

	return result
}

// ReverseBytes reverses a byte array
func ReverseBytes(data []byte) {
	for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
		data[i], data[j] = data[j], data[i]
	}
}

// DisplayID derives a short, stable base58 token from a pub_key_hash for
// the status API. It is purely cosmetic — never on the signature
// verification path, which is pure SHA-256 per spec §6.2.
func DisplayID(pubKeyHash []byte) string {
	h := ripemd160.New()
	h.Write(pubKeyHash)
	return string(Base58Encode(h.Sum(nil)))
}
