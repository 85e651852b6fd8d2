package main

import "sync"

// IngressQueue is the slice-backed queue transactions wait in between
// ingress and block assembly (spec §3.5, §4.7). queue_lock is held only
// across append/drain-prefix, never across I/O (spec §5).
type IngressQueue struct {
	mu   sync.Mutex
	txs  []*Transaction
	cap  int
}

func NewIngressQueue(softCap int) *IngressQueue {
	return &IngressQueue{cap: softCap}
}

// Push appends tx to the tail of the queue.
func (q *IngressQueue) Push(tx *Transaction) {
	q.mu.Lock()
	q.txs = append(q.txs, tx)
	q.mu.Unlock()
}

// Len returns the current queue length.
func (q *IngressQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.txs)
}

// OverSoftCap reports whether the queue is at or above its soft upper bound;
// the ingress listener uses this to stall reads rather than drop (spec §4.7).
func (q *IngressQueue) OverSoftCap() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.txs) >= q.cap
}

// TakeBatches removes and returns the first n*batchSize transactions as n
// contiguous batches, preserving ingress order within each batch (spec §4.8
// step 3). Returns fewer than n batches if the queue has since shrunk.
func (q *IngressQueue) TakeBatches(n, batchSize int) [][]*Transaction {
	q.mu.Lock()
	defer q.mu.Unlock()

	want := n * batchSize
	if want > len(q.txs) {
		want = (len(q.txs) / batchSize) * batchSize
	}
	if want == 0 {
		return nil
	}

	taken := q.txs[:want]
	q.txs = q.txs[want:]

	batches := make([][]*Transaction, 0, want/batchSize)
	for i := 0; i < want; i += batchSize {
		batch := make([]*Transaction, batchSize)
		copy(batch, taken[i:i+batchSize])
		batches = append(batches, batch)
	}
	return batches
}
