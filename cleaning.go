package main

import (
	"encoding/hex"
	"strings"
	"time"
)

// RunCleaning is the cleaning scheduler's control loop (spec §4.9). It wakes
// at interval I, dispatching up to three concurrent mutation pipelines per
// tick, and otherwise sleeps in small increments while opportunistically
// pruning finished tasks.
func (m *Miner) RunCleaning() {
	lastTick := time.Now()

	for {
		if m.ExpectMet() {
			return
		}

		interval := m.currentInterval()
		if time.Since(lastTick) < interval {
			time.Sleep(pollSleep(interval))
			m.pruneFinishedTasks()
			continue
		}

		lastTick = time.Now()
		m.runCycle()
	}
}

// pollSleep implements spec §4.9.4's "sleeps min(1, I/20) seconds", clamped
// to a minimum of minSleep per spec §9's Open Question, so a very short
// interval (below 200ms) never yields a near-zero sleep.
func pollSleep(interval time.Duration) time.Duration {
	secs := interval.Seconds() / 20
	if secs > 1 {
		secs = 1
	}
	d := time.Duration(secs * float64(time.Second))
	if d < minSleep {
		d = minSleep
	}
	return d
}

// currentInterval implements spec §4.9.4's interval-growth/clamp formula.
func (m *Miner) currentInterval() time.Duration {
	b := float64(m.currentBlocksCreated())
	switch {
	case b <= increaseCPBlockLimit:
		return initialCleaningInterval
	case b <= float64(m.blockCap):
		secs := cpIncreaseIncrement * b / increaseCPBlockLimit
		return time.Duration(secs * float64(time.Second))
	default:
		return postCapInterval
	}
}

func (m *Miner) currentBlocksCreated() uint64 {
	m.chainMu.Lock()
	defer m.chainMu.Unlock()
	return m.blocksCreated
}

// runCycle dispatches the three pipelines concurrently, tracking each as a
// running task so the scheduler can prune finished ones (spec §4.9.4).
func (m *Miner) runCycle() {
	m.dispatch(m.flushRemovals)
	m.dispatch(m.verifyUserRequests)
	m.dispatch(m.flushSummaries)
}

func (m *Miner) dispatch(fn func()) {
	done := make(chan struct{})
	m.trackTask(done)
	go func() {
		defer close(done)
		fn()
	}()
}

// flushRemovals is spec §4.9.1: partition to_remove by due time, group due
// entries by block, and rewrite each touched block exactly once.
func (m *Miner) flushRemovals() {
	now := nowUnix()

	m.removeMu.Lock()
	var due, retained []removeEntry
	for _, e := range m.toRemove {
		if e.RemoveAt <= now {
			due = append(due, e)
		} else {
			retained = append(retained, e)
		}
	}
	m.toRemove = retained
	m.removeMu.Unlock()

	if len(due) == 0 {
		return
	}

	grouped := make(map[string][][]byte)
	hashOf := make(map[string][]byte)
	for _, e := range due {
		key := hex.EncodeToString(e.BlockHash)
		grouped[key] = append(grouped[key], e.TxID)
		hashOf[key] = e.BlockHash
	}

	for key, ids := range grouped {
		block, err := m.store.GetBlock(hashOf[key])
		if err != nil {
			continue // DeserialiseFailed: skip, continue the cycle (spec §7)
		}
		block.RemoveMany(ids)
		m.writeBackBlock(block)
		m.events.Publish(Event{Kind: "block_mutated", Hash: key, Info: "ttl_expiry"})
	}
}

// verifyUserRequests is spec §4.9.2: rotate the double buffer, scan either
// the full store or the ring-buffer window depending on blocks_created vs
// block_cap, and act on every request whose witness list completes during
// this cycle's scan. A request that does not complete is dropped at the end
// of the cycle — the source does not re-queue it (spec §7).
func (m *Miner) verifyUserRequests() {
	reqs := m.userTxs.RotateAndSnapshot()

	var valid []*PendingUserRequest
	for _, r := range reqs {
		if len(r.State.GVKeys) == len(r.State.Ids) {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return
	}

	states := make([]*usrTxRequest, len(valid))
	for i, r := range valid {
		states[i] = r.State
	}

	scanOne := func(hash []byte, b *Block) {
		b.CheckUsrTxs(states)
	}

	if m.currentBlocksCreated() > uint64(m.blockCap) {
		for _, h := range m.ring.Snapshot() {
			b, err := m.store.GetBlock(h)
			if err != nil {
				continue
			}
			scanOne(h, b)
		}
	} else {
		m.store.Scan(scanOne)
	}

	for _, r := range valid {
		if r.State.Complete() {
			m.completeUserRequest(r)
		}
	}
}

// completeUserRequest implements the per-type completion rule of spec
// §4.9.2.
func (m *Miner) completeUserRequest(r *PendingUserRequest) {
	witnessTxs := make([]*Transaction, 0, len(r.State.Witnesses))
	for _, w := range r.State.Witnesses {
		witnessTxs = append(witnessTxs, w.Tx)
	}

	if r.Tx.Type == TxSummarise {
		ins, outs := Summarise(witnessTxs)
		if !setEqual(ins, r.Tx.Inputs()) || !setEqual(outs, r.Tx.Outputs()) {
			return
		}
	}

	m.queue.Push(r.Tx) // the request itself becomes evidence on chain

	m.removeMu.Lock()
	for _, w := range r.State.Witnesses {
		m.toRemove = append(m.toRemove, removeEntry{
			BlockHash: w.BlockHash,
			TxID:      w.Tx.ID,
			RemoveAt:  0,
		})
	}
	m.removeMu.Unlock()

	m.events.Publish(Event{Kind: "block_mutated", Info: "user_request_authorised"})
}

// flushSummaries is spec §4.9.3: snapshot and clear to_summarise, schedule
// the referenced ids for immediate removal, and synthesise a `summarised`
// transaction authored by the miner's own keypair when the summary is
// non-trivial.
func (m *Miner) flushSummaries() {
	m.summMu.Lock()
	snapshot := m.toSummarise
	m.toSummarise = make(map[string][][]byte)
	m.summMu.Unlock()

	if len(snapshot) == 0 {
		return
	}

	for key, ids := range snapshot {
		hashBytes, err := hex.DecodeString(key)
		if err != nil {
			continue
		}
		block, err := m.store.GetBlock(hashBytes)
		if err != nil {
			continue
		}

		var txs []*Transaction
		for _, id := range ids {
			if tx := block.Get(id); tx != nil {
				txs = append(txs, tx)
			}
		}
		if len(txs) == 0 {
			continue
		}

		m.removeMu.Lock()
		for _, tx := range txs {
			m.toRemove = append(m.toRemove, removeEntry{
				BlockHash: hashBytes,
				TxID:      tx.ID,
				RemoveAt:  0,
			})
		}
		m.removeMu.Unlock()

		ins, outs := Summarise(txs)
		if len(ins) == 0 || len(outs) == 0 {
			continue
		}

		summarised := m.synthesiseSummarisedTx(ins, outs)
		m.queue.Push(summarised)
		m.events.Publish(Event{Kind: "block_mutated", Info: "summarised_tx_synthesised"})
	}
}

// synthesiseSummarisedTx builds and signs a `summarised` transaction
// authored by the miner's own keypair (spec §4.9.3).
func (m *Miner) synthesiseSummarisedTx(ins, outs []string) *Transaction {
	pubKeyHash := HashPubKey(m.minerPubPEM)
	tx := NewTransaction(nil, strings.Join(ins, ":"), strings.Join(outs, ":"), pubKeyHash, TxSummarised, nowUnix())

	gv, err := SignGV(m.minerGVS, tx.ID)
	if err == nil {
		tx.GV = gv
	}
	tx.Sign(m.minerKey, m.minerPubPEM)
	return tx
}

// writeBackBlock persists a mutated historical block, retrying once on
// failure (spec §7's StoreWriteFailed upgrade).
func (m *Miner) writeBackBlock(b *Block) {
	if err := m.store.RewriteBlock(b); err != nil {
		PrintError("store rewrite failed for block %x: %v", b.Hash, err)
		if err2 := m.store.RewriteBlock(b); err2 != nil {
			PrintError("store rewrite retry failed for block %x: %v", b.Hash, err2)
		}
	}
}
