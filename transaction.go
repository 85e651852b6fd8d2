package main

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"log"
	"strings"
	"time"
)

// TxType classifies a Transaction (spec §3.1). Kept as a string-backed enum
// rather than duck-typed field presence, per the redesign guidance.
type TxType string

const (
	TxPerm       TxType = "perm"
	TxTemp       TxType = "temp"
	TxSumm       TxType = "summ"
	TxSummarised TxType = "summarised"
	TxRemove     TxType = "remove"
	TxSummarise  TxType = "summarise"
)

// TempFields carries the fields only a temp transaction needs.
type TempFields struct {
	TTL int64 // seconds, relative to miner-side receipt
}

// AuthFields carries the fields only remove/summarise transactions need.
type AuthFields struct {
	GVList []byte       // concatenated AES keys, one per declared id (32 bytes each)
	TxTree *SummaryMerkle
}

// Transaction is an immutable content-addressed record (spec §3.1).
type Transaction struct {
	PrevID     []byte
	Input      string
	Output     string
	PubKeyHash []byte
	Type       TxType
	Timestamp  int64
	ID         []byte
	Sig        []byte
	GV         []byte

	Temp *TempFields
	Auth *AuthFields
}

func init() {
	gob.Register(&TempFields{})
	gob.Register(&AuthFields{})
}

// idPreimage builds the deterministic preimage for Transaction.ID (spec §4.1).
func (tx *Transaction) idPreimage() []byte {
	var buf bytes.Buffer
	buf.Write(tx.PrevID)
	buf.WriteString(tx.Input)
	buf.WriteString(tx.Output)
	buf.Write(tx.PubKeyHash)
	buf.WriteString(fmt.Sprintf("%d", tx.Timestamp))
	return buf.Bytes()
}

// ComputeID sets tx.ID from the other content fields.
func (tx *Transaction) ComputeID() {
	sum := sha256.Sum256(tx.idPreimage())
	tx.ID = sum[:]
}

// signingPreimage builds the preimage signed by the author (spec §4.1).
func (tx *Transaction) signingPreimage(pubKey []byte, gv []byte) []byte {
	var buf bytes.Buffer
	buf.Write(pubKey)
	buf.Write(tx.PrevID)
	buf.WriteString(tx.Input)
	buf.WriteString(tx.Output)
	buf.WriteString(string(tx.Type))
	buf.Write(gv)

	switch tx.Type {
	case TxTemp:
		if tx.Temp != nil {
			buf.WriteString(fmt.Sprintf("%d", tx.Temp.TTL))
		}
	case TxRemove, TxSummarise:
		if tx.Auth != nil && tx.Auth.TxTree != nil {
			buf.Write(tx.Auth.TxTree.RootDigest())
		}
	}
	return buf.Bytes()
}

// Sign signs the transaction with the author's RSA private key. ComputeID
// must already have been called.
func (tx *Transaction) Sign(priv *rsa.PrivateKey, pubKey []byte) error {
	h := sha256.Sum256(tx.signingPreimage(pubKey, tx.GV))
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, h[:])
	if err != nil {
		return err
	}
	tx.Sig = sig
	return nil
}

// VerifySig checks tx.Sig against the given public key (spec §6.2).
func (tx *Transaction) VerifySig(pub *rsa.PublicKey, pubKeyBytes []byte) bool {
	if len(tx.Sig) == 0 {
		return false
	}
	h := sha256.Sum256(tx.signingPreimage(pubKeyBytes, tx.GV))
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, h[:], tx.Sig) == nil
}

// Inputs returns the colon-separated input tokens.
func (tx *Transaction) Inputs() []string {
	return splitTokens(tx.Input)
}

// Outputs returns the colon-separated output tokens.
func (tx *Transaction) Outputs() []string {
	return splitTokens(tx.Output)
}

func splitTokens(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ":")
}

// NewTransaction builds and hashes a new transaction; the caller must still
// sign it and, for temp/remove/summarise types, attach the type-conditional
// fields before signing.
func NewTransaction(prevID []byte, input, output string, pubKeyHash []byte, ttype TxType, ts int64) *Transaction {
	tx := &Transaction{
		PrevID:     prevID,
		Input:      input,
		Output:     output,
		PubKeyHash: pubKeyHash,
		Type:       ttype,
		Timestamp:  ts,
	}
	tx.ComputeID()
	return tx
}

// Serialize gob-encodes the transaction for the wire and the store (spec §6.1, §6.3).
func (tx *Transaction) Serialize() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(tx); err != nil {
		log.Panic(err)
	}
	return buf.Bytes()
}

// DeserializeTransaction decodes a transaction previously produced by Serialize.
func DeserializeTransaction(data []byte) (*Transaction, error) {
	var tx Transaction
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func nowUnix() int64 {
	return time.Now().Unix()
}
