package main

import (
	"bytes"
	"testing"
)

func TestNewGenesisBlock(t *testing.T) {
	b := NewGenesisBlock(1000)

	if !b.IsGenesis() {
		t.Fatal("IsGenesis() false for a freshly built genesis block")
	}
	if len(b.Hash) == 0 {
		t.Fatal("genesis block has no hash after Seal")
	}
	if len(b.Txs()) != 0 {
		t.Fatal("genesis block should carry no transactions")
	}
}

func TestBlock_SealIsDeterministicOnSameInputs(t *testing.T) {
	txs := []*Transaction{mkTx(1), mkTx(2)}

	b1 := NewBlock(txs)
	b1.SetPrev([]byte(sentinelRoot))
	b1.Seal(5000)

	b2 := NewBlock(txs)
	b2.SetPrev([]byte(sentinelRoot))
	b2.Seal(5000)

	if !bytes.Equal(b1.Hash, b2.Hash) {
		t.Fatalf("two blocks with identical prev/txs/timestamp hashed differently: %x vs %x", b1.Hash, b2.Hash)
	}
}

func TestBlock_HashFrozenAfterMutation(t *testing.T) {
	txs := []*Transaction{mkTx(1), mkTx(2), mkTx(3)}
	b := NewBlock(txs)
	b.SetPrev([]byte(sentinelRoot))
	b.Seal(9000)

	before := append([]byte(nil), b.Hash...)

	if !b.Remove([]byte{2}) {
		t.Fatal("Remove() failed for a present id")
	}

	if !bytes.Equal(before, b.Hash) {
		t.Fatalf("block hash changed after mutation: before=%x after=%x", before, b.Hash)
	}
	if b.Get([]byte{2}) != nil {
		t.Fatal("removed transaction still retrievable via Get")
	}
	if b.Get([]byte{1}) == nil {
		t.Fatal("unrelated transaction lost after removing a sibling")
	}
}

func TestBlock_SerializeRoundTrip(t *testing.T) {
	txs := []*Transaction{mkTx(1), mkTx(2)}
	b := NewBlock(txs)
	b.SetPrev([]byte(sentinelRoot))
	b.Seal(42)
	b.Remove([]byte{1})

	data := b.Serialize()
	decoded, err := DeserializeBlock(data)
	if err != nil {
		t.Fatalf("DeserializeBlock: %v", err)
	}

	if !bytes.Equal(decoded.Hash, b.Hash) {
		t.Fatalf("round-tripped hash = %x, want %x", decoded.Hash, b.Hash)
	}
	if decoded.Get([]byte{1}) != nil {
		t.Fatal("round-tripped block resurrected a pruned transaction")
	}
	if decoded.Get([]byte{2}) == nil {
		t.Fatal("round-tripped block lost a live transaction")
	}
}
