package main

import (
	"bytes"
	"testing"
)

func mkTx(id byte) *Transaction {
	return &Transaction{ID: []byte{id}}
}

func TestBuildMerkleTree_Empty(t *testing.T) {
	tree := BuildMerkleTree(nil)
	if string(tree.RootDigest()) != sentinelRoot {
		t.Fatalf("empty tree root = %q, want sentinel", tree.RootDigest())
	}
}

func TestBuildMerkleTree_OddCountNoDuplication(t *testing.T) {
	txs := []*Transaction{mkTx(1), mkTx(2), mkTx(3)}
	tree := BuildMerkleTree(txs)

	ids := tree.IDs()
	if len(ids) != 3 {
		t.Fatalf("IDs() returned %d entries, want 3", len(ids))
	}
	for i, want := range txs {
		if !bytes.Equal(ids[i], want.ID) {
			t.Errorf("IDs()[%d] = %x, want %x", i, ids[i], want.ID)
		}
	}
}

func TestMerkleTree_RootDigestFrozenAfterRemove(t *testing.T) {
	txs := []*Transaction{mkTx(1), mkTx(2), mkTx(3), mkTx(4)}
	tree := BuildMerkleTree(txs)

	before := append([]byte(nil), tree.RootDigest()...)

	if !tree.Remove([]byte{2}) {
		t.Fatal("Remove() returned false for a present id")
	}

	after := tree.RootDigest()
	if !bytes.Equal(before, after) {
		t.Fatalf("root digest changed after Remove: before=%x after=%x", before, after)
	}
	if tree.Contains([]byte{2}) {
		t.Fatal("tree still contains removed id")
	}
	if !tree.Contains([]byte{1}) || !tree.Contains([]byte{3}) || !tree.Contains([]byte{4}) {
		t.Fatal("unrelated ids were pruned alongside the removed one")
	}
}

func TestMerkleTree_CleanTreeCollapsesPairedSiblings(t *testing.T) {
	txs := []*Transaction{mkTx(1), mkTx(2)}
	tree := BuildMerkleTree(txs)

	tree.RemoveMany([][]byte{{1}, {2}})

	if !tree.Root.isPruned() {
		t.Fatal("root should collapse to a pruned node once both leaves are gone")
	}
	if len(tree.IDs()) != 0 {
		t.Fatal("IDs() should be empty after removing every leaf")
	}
}

func TestMerkleTree_RemoveUnknownIDIsNoop(t *testing.T) {
	tree := BuildMerkleTree([]*Transaction{mkTx(1)})
	if tree.Remove([]byte{99}) {
		t.Fatal("Remove() reported success for an id that was never present")
	}
}

func TestCheckUsrTxs_WitnessesOnGVMatch(t *testing.T) {
	// GV encrypts whole AES blocks only, so the id must be a real 32-byte id.
	tx := &Transaction{ID: bytes.Repeat([]byte{7}, 32)}
	gvs := "test-secret"
	gv, err := SignGV(gvs, tx.ID)
	if err != nil {
		t.Fatalf("SignGV: %v", err)
	}
	tx.GV = gv

	tree := BuildMerkleTree([]*Transaction{tx})

	req := &usrTxRequest{
		Ids:    [][]byte{tx.ID},
		GVKeys: [][]byte{DeriveGVKey(gvs, tx.ID)},
	}

	tree.CheckUsrTxs([]*usrTxRequest{req}, []byte("blockhash"))

	if !req.Complete() {
		t.Fatal("request should be complete after witnessing its sole id")
	}
	if !bytes.Equal(req.Witnesses[0].Tx.ID, tx.ID) {
		t.Fatalf("witness tx id = %x, want %x", req.Witnesses[0].Tx.ID, tx.ID)
	}
}

func TestCheckUsrTxs_SkipsWrongGVKey(t *testing.T) {
	tx := &Transaction{ID: bytes.Repeat([]byte{8}, 32)}
	gv, _ := SignGV("right-secret", tx.ID)
	tx.GV = gv

	tree := BuildMerkleTree([]*Transaction{tx})
	req := &usrTxRequest{
		Ids:    [][]byte{tx.ID},
		GVKeys: [][]byte{DeriveGVKey("wrong-secret", tx.ID)},
	}
	tree.CheckUsrTxs([]*usrTxRequest{req}, []byte("blockhash"))

	if req.Complete() {
		t.Fatal("request should not complete with a mismatched GV key")
	}
}

func TestBuildSummaryMerkle_Empty(t *testing.T) {
	sm := BuildSummaryMerkle(nil)
	if string(sm.RootDigest()) != sentinelRoot {
		t.Fatalf("empty summary merkle root = %q, want sentinel", sm.RootDigest())
	}
}
