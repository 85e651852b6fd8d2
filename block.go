package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"log"
)

// Block wraps a mutable Merkle tree with a chained hash (spec §3.3). Its
// hash is frozen at seal time and never recomputed — pruning the Merkle
// tree afterwards does not invalidate the chain.
type Block struct {
	PrevBlockHash []byte // hex bytes, or the sentinel "root"
	Timestamp     int64  // miner-side milliseconds
	Tree          *MerkleTree
	Hash          []byte // hex bytes, set once by Seal
}

// NewBlock constructs the Merkle tree for txs. The block is not yet chained
// or hashed; call SetPrev then Seal.
func NewBlock(txs []*Transaction) *Block {
	return &Block{Tree: BuildMerkleTree(txs)}
}

// SetPrev sets the previous block hash. Must be called before Seal.
func (b *Block) SetPrev(prev []byte) {
	b.PrevBlockHash = prev
}

// Seal computes block_hash = SHA256(prev_block_hash || merkle_root_digest || ts)
// and timestamps the block (spec §3.3). Callers must call it exactly once
// per block, inside the assembly pipeline's chain_lock critical section.
func (b *Block) Seal(tsMillis int64) {
	b.Timestamp = tsMillis
	var buf bytes.Buffer
	buf.Write(b.PrevBlockHash)
	buf.Write(b.Tree.RootDigest())
	buf.WriteString(fmt.Sprintf("%d", b.Timestamp))
	sum := sha256.Sum256(buf.Bytes())
	b.Hash = []byte(fmt.Sprintf("%x", sum))
}

// Remove delegates to the underlying Merkle tree.
func (b *Block) Remove(id []byte) bool {
	return b.Tree.Remove(id)
}

// RemoveMany delegates to the underlying Merkle tree.
func (b *Block) RemoveMany(ids [][]byte) bool {
	return b.Tree.RemoveMany(ids)
}

// Get delegates to the underlying Merkle tree.
func (b *Block) Get(id []byte) *Transaction {
	return b.Tree.Get(id)
}

// IDs delegates to the underlying Merkle tree.
func (b *Block) IDs() [][]byte {
	return b.Tree.IDs()
}

// Txs delegates to the underlying Merkle tree.
func (b *Block) Txs() []*Transaction {
	return b.Tree.Txs()
}

// CheckUsrTxs delegates to the underlying Merkle tree, using this block's
// hash as the witness block hash (spec §4.3).
func (b *Block) CheckUsrTxs(requests []*usrTxRequest) {
	b.Tree.CheckUsrTxs(requests, b.Hash)
}

// IsGenesis reports whether this block's prev hash is the sentinel.
func (b *Block) IsGenesis() bool {
	return string(b.PrevBlockHash) == sentinelRoot
}

// Serialize gob-encodes the block for the store (spec §6.3). The Merkle
// tree's pruned-children state round-trips: a pruned merkleNode has a nil
// Children slice and no Tx, exactly as gob encodes any zero-value struct
// reached from Root.
func (b *Block) Serialize() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(b); err != nil {
		log.Panic(err)
	}
	return buf.Bytes()
}

// DeserializeBlock decodes a block previously produced by Serialize.
func DeserializeBlock(data []byte) (*Block, error) {
	var b Block
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

// NewGenesisBlock returns the chain's genesis block: an empty Merkle tree
// (sentinel root) chained from the sentinel prev hash (spec §3.3, and the
// original_source/node.py seeding behavior recovered in SPEC_FULL.md §4).
func NewGenesisBlock(tsMillis int64) *Block {
	b := NewBlock(nil)
	b.SetPrev([]byte(sentinelRoot))
	b.Seal(tsMillis)
	return b
}
