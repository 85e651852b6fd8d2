package main

import "testing"

func TestIngressQueue_PushAndLen(t *testing.T) {
	q := NewIngressQueue(10)
	if q.Len() != 0 {
		t.Fatalf("Len() = %d on a fresh queue, want 0", q.Len())
	}
	q.Push(mkTx(1))
	q.Push(mkTx(2))
	if q.Len() != 2 {
		t.Fatalf("Len() = %d after two pushes, want 2", q.Len())
	}
}

func TestIngressQueue_OverSoftCap(t *testing.T) {
	q := NewIngressQueue(2)
	q.Push(mkTx(1))
	if q.OverSoftCap() {
		t.Fatal("OverSoftCap() true below the soft cap")
	}
	q.Push(mkTx(2))
	if !q.OverSoftCap() {
		t.Fatal("OverSoftCap() false at the soft cap")
	}
}

func TestIngressQueue_TakeBatches(t *testing.T) {
	q := NewIngressQueue(100)
	for i := 0; i < 25; i++ {
		q.Push(mkTx(byte(i)))
	}

	batches := q.TakeBatches(3, 10)
	if len(batches) != 2 {
		t.Fatalf("TakeBatches(3, 10) returned %d batches, want 2 (only 20 of 25 form full batches)", len(batches))
	}
	for _, b := range batches {
		if len(b) != 10 {
			t.Fatalf("batch length = %d, want 10", len(b))
		}
	}
	if q.Len() != 5 {
		t.Fatalf("queue length after TakeBatches = %d, want 5 leftover", q.Len())
	}
}

func TestIngressQueue_TakeBatchesPreservesOrder(t *testing.T) {
	q := NewIngressQueue(100)
	for i := 0; i < 10; i++ {
		q.Push(mkTx(byte(i)))
	}
	batches := q.TakeBatches(1, 10)
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	for i, tx := range batches[0] {
		if tx.ID[0] != byte(i) {
			t.Fatalf("batch[%d].ID[0] = %d, want %d (order not preserved)", i, tx.ID[0], i)
		}
	}
}
