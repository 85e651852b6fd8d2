package main

import (
	"testing"
)

// TestEndToEnd_PermanentTxSurvivesAssembly covers scenario S1 of the mining
// contract: permanent transactions get sealed into a block and remain
// retrievable afterwards.
func TestEndToEnd_PermanentTxSurvivesAssembly(t *testing.T) {
	m := newTestMiner(t, 100)
	priv, pubPEM := genTestKeyPair(t)
	pubKeyHash := HashPubKey(pubPEM)
	m.pubKeys.Register(pubPEM)

	tx := NewTransaction(nil, "alice:10", "bob:10", pubKeyHash, TxPerm, nowUnix())
	tx.Sign(priv, pubPEM)
	m.queue.Push(tx)

	m.assembleBatch([]*Transaction{tx})

	found, err := m.store.GetBlock(m.tip)
	if err != nil {
		t.Fatalf("GetBlock(tip): %v", err)
	}
	if found.Get(tx.ID) == nil {
		t.Fatal("permanent transaction missing from its sealed block")
	}
}

// TestEndToEnd_TemporaryTxExpiresOnSchedule covers scenario S2: a temp
// transaction becomes eligible for removal once its TTL elapses, and the
// cleaning scheduler actually prunes it while leaving siblings untouched.
func TestEndToEnd_TemporaryTxExpiresOnSchedule(t *testing.T) {
	m := newTestMiner(t, 100)
	priv, pubPEM := genTestKeyPair(t)
	pubKeyHash := HashPubKey(pubPEM)
	m.pubKeys.Register(pubPEM)

	temp := NewTransaction(nil, "alice:1", "bob:1", pubKeyHash, TxTemp, nowUnix())
	temp.Temp = &TempFields{TTL: -1} // already expired by the time it's classified
	temp.Sign(priv, pubPEM)

	perm := NewTransaction(nil, "carol:1", "dave:1", pubKeyHash, TxPerm, nowUnix())
	perm.Sign(priv, pubPEM)

	m.assembleBatch([]*Transaction{temp, perm})
	m.flushRemovals()

	block, err := m.store.GetBlock(m.tip)
	if err != nil {
		t.Fatalf("GetBlock(tip): %v", err)
	}
	if block.Get(temp.ID) != nil {
		t.Fatal("expired temp transaction was not pruned by the cleaning cycle")
	}
	if block.Get(perm.ID) == nil {
		t.Fatal("permanent sibling was incorrectly pruned alongside the expired temp tx")
	}
}

// TestEndToEnd_AuthorisedUserRemoval covers scenario S4: a user-submitted
// remove transaction carrying correct GV keys for every target id results in
// those transactions being pruned once the cleaning scheduler scans the
// chain for witnesses.
func TestEndToEnd_AuthorisedUserRemoval(t *testing.T) {
	m := newTestMiner(t, 100)
	priv, pubPEM := genTestKeyPair(t)
	pubKeyHash := HashPubKey(pubPEM)
	m.pubKeys.Register(pubPEM)

	target := NewTransaction(nil, "alice:3", "bob:3", pubKeyHash, TxPerm, nowUnix())
	gvKey := DeriveGVKey(m.minerGVS, target.ID)
	gv, err := SignGV(m.minerGVS, target.ID)
	if err != nil {
		t.Fatalf("SignGV: %v", err)
	}
	target.GV = gv
	target.Sign(priv, pubPEM)
	m.assembleBatch([]*Transaction{target})

	sm := BuildSummaryMerkle([][]byte{target.ID})
	removeTx := NewTransaction(nil, "", "", pubKeyHash, TxRemove, nowUnix())
	removeTx.Auth = &AuthFields{GVList: gvKey, TxTree: sm}
	removeTx.Sign(priv, pubPEM)

	m.userTxs.Enqueue(removeTx)
	// The request lands in the next-cycle slot, so the first cycle only
	// rotates it into slot 0 and the second cycle scans for it.
	m.verifyUserRequests()
	m.verifyUserRequests()

	// verifyUserRequests only schedules removal; flushRemovals performs it.
	m.flushRemovals()

	block, err := m.store.GetBlock(m.tip)
	if err != nil {
		t.Fatalf("GetBlock(tip): %v", err)
	}
	if block.Get(target.ID) != nil {
		t.Fatal("authorised removal did not prune its target transaction")
	}
}

// TestEndToEnd_UnauthorisedRemovalIsIgnored covers scenario S5: a remove
// request with a wrong GV key never completes, and the target transaction
// survives.
func TestEndToEnd_UnauthorisedRemovalIsIgnored(t *testing.T) {
	m := newTestMiner(t, 100)
	priv, pubPEM := genTestKeyPair(t)
	pubKeyHash := HashPubKey(pubPEM)
	m.pubKeys.Register(pubPEM)

	target := NewTransaction(nil, "alice:3", "bob:3", pubKeyHash, TxPerm, nowUnix())
	gv, _ := SignGV(m.minerGVS, target.ID)
	target.GV = gv
	target.Sign(priv, pubPEM)
	m.assembleBatch([]*Transaction{target})

	wrongKey := DeriveGVKey("not-the-real-secret", target.ID)
	sm := BuildSummaryMerkle([][]byte{target.ID})
	removeTx := NewTransaction(nil, "", "", pubKeyHash, TxRemove, nowUnix())
	removeTx.Auth = &AuthFields{GVList: wrongKey, TxTree: sm}
	removeTx.Sign(priv, pubPEM)

	m.userTxs.Enqueue(removeTx)
	m.verifyUserRequests() // rotates the request into slot 0
	m.verifyUserRequests() // scans for it
	m.flushRemovals()

	block, err := m.store.GetBlock(m.tip)
	if err != nil {
		t.Fatalf("GetBlock(tip): %v", err)
	}
	if block.Get(target.ID) == nil {
		t.Fatal("transaction was removed despite an unauthorised (wrong-key) request")
	}
}

// TestEndToEnd_BackToBackAssemblyPreservesChaining covers the chain-linearity
// part of scenario S6: several batches assembled back-to-back still form a
// single, correctly chained sequence with a monotonically advancing
// blocks-created counter.
func TestEndToEnd_BackToBackAssemblyPreservesChaining(t *testing.T) {
	m := newTestMiner(t, 100)
	priv, pubPEM := genTestKeyPair(t)
	pubKeyHash := HashPubKey(pubPEM)
	m.pubKeys.Register(pubPEM)

	startCount := m.blocksCreated

	var hashes [][]byte
	for i := 0; i < 3; i++ {
		tx := NewTransaction(nil, "a:1", "b:1", pubKeyHash, TxPerm, nowUnix())
		tx.Sign(priv, pubPEM)
		m.assembleBatch([]*Transaction{tx})
		hashes = append(hashes, m.tip)
	}

	if m.blocksCreated != startCount+3 {
		t.Fatalf("blocksCreated = %d, want %d", m.blocksCreated, startCount+3)
	}

	prev := []byte(nil)
	for i, h := range hashes {
		b, err := m.store.GetBlock(h)
		if err != nil {
			t.Fatalf("GetBlock(%d): %v", i, err)
		}
		if i > 0 && string(b.PrevBlockHash) != string(prev) {
			t.Fatalf("block %d's prev hash does not chain to block %d's hash", i, i-1)
		}
		prev = b.Hash
	}
}
