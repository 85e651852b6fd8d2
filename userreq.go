package main

import "sync"

// PendingUserRequest pairs an incoming remove/summarise transaction with the
// check_usr_txs scanning state built for it once a cleaning cycle picks it
// up (spec §4.9.2).
type PendingUserRequest struct {
	Tx    *Transaction
	State *usrTxRequest
}

// UserTxBuffer is the two-slot staging pipeline of spec §3.5: slot 0 is
// consumed by a cleaning cycle, slot 1 accumulates requests arriving during
// that cycle and rotates into slot 0 on the next tick. This realizes the
// redesign guidance of spec §9 ("explicit double-buffered structure that
// rotates on tick") rather than the original's ad-hoc two-element list.
type UserTxBuffer struct {
	mu      sync.Mutex
	current []*PendingUserRequest
	next    []*PendingUserRequest
}

func NewUserTxBuffer() *UserTxBuffer {
	return &UserTxBuffer{}
}

// Enqueue appends a freshly-classified remove/summarise transaction into the
// next-cycle slot (spec §4.7 classification rule).
func (b *UserTxBuffer) Enqueue(tx *Transaction) {
	req := &PendingUserRequest{
		Tx: tx,
		State: &usrTxRequest{
			Ids:    tx.Auth.TxTree.Ids,
			GVKeys: splitGVList(tx.Auth.GVList),
		},
	}
	b.mu.Lock()
	b.next = append(b.next, req)
	b.mu.Unlock()
}

// RotateAndSnapshot is the single critical section of spec §4.9.2: it
// returns slot 0's current contents and rotates slot 1 into slot 0.
func (b *UserTxBuffer) RotateAndSnapshot() []*PendingUserRequest {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := b.current
	b.current = b.next
	b.next = nil
	return snapshot
}

// Requeue puts requests back into slot 0 for another cycle. Nothing in the
// package calls it: the cleaning cycle drops incomplete requests.
func (b *UserTxBuffer) Requeue(reqs []*PendingUserRequest) {
	if len(reqs) == 0 {
		return
	}
	b.mu.Lock()
	b.current = append(b.current, reqs...)
	b.mu.Unlock()
}

// splitGVList splits the concatenated 32-byte AES keys carried by a
// remove/summarise transaction into individual keys, positionally aligned
// with the SummaryMerkle's leaf ids (spec §4.4).
func splitGVList(gvList []byte) [][]byte {
	const keyLen = 32
	n := len(gvList) / keyLen
	keys := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		keys = append(keys, gvList[i*keyLen:(i+1)*keyLen])
	}
	return keys
}
