package main

import (
	"bytes"
	"testing"
)

func TestSignGV_RoundTrip(t *testing.T) {
	txID := []byte("0123456789abcdef0123456789abcdef")
	key := DeriveGVKey("my-secret", txID)

	gv, err := SignGV("my-secret", txID)
	if err != nil {
		t.Fatalf("SignGV: %v", err)
	}

	if !VerifyGV(key, txID, gv) {
		t.Fatal("VerifyGV rejected a correctly-derived gv")
	}
}

func TestVerifyGV_WrongKeyFails(t *testing.T) {
	txID := []byte("some-transaction-id-bytes-here..")
	gv, err := SignGV("secret-a", txID)
	if err != nil {
		t.Fatalf("SignGV: %v", err)
	}

	wrongKey := DeriveGVKey("secret-b", txID)
	if VerifyGV(wrongKey, txID, gv) {
		t.Fatal("VerifyGV accepted a gv signed under a different secret")
	}
}

func TestVerifyGV_MalformedInputsNeverPanic(t *testing.T) {
	cases := []struct {
		name string
		key  []byte
		id   []byte
		gv   []byte
	}{
		{"short key", make([]byte, 10), []byte("abc"), []byte("abc")},
		{"empty gv", make([]byte, 32), []byte("abc"), nil},
		{"mismatched lengths", make([]byte, 32), []byte("abc"), []byte("abcdef")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if VerifyGV(tc.key, tc.id, tc.gv) {
				t.Fatalf("VerifyGV unexpectedly accepted malformed input %s", tc.name)
			}
		})
	}
}

func TestDeriveGVKey_Deterministic(t *testing.T) {
	id := []byte("fixed-id")
	k1 := DeriveGVKey("gvs", id)
	k2 := DeriveGVKey("gvs", id)
	if !bytes.Equal(k1, k2) {
		t.Fatal("DeriveGVKey is not deterministic for identical inputs")
	}
	if len(k1) != 32 {
		t.Fatalf("DeriveGVKey key length = %d, want 32", len(k1))
	}
}
