package main

import (
	"encoding/hex"
	"sync"
	"time"
)

// RunAssembly is the block assembly pipeline's main loop (spec §4.8). It
// never returns on its own except when a benchmark's --expect count has
// been reached.
func (m *Miner) RunAssembly() {
	for {
		if m.ExpectMet() {
			return
		}

		qlen := m.queue.Len()
		if qlen < txPerBlock {
			time.Sleep(minSleep)
			continue
		}

		workers := maxWorkers
		if w := qlen / txPerBlock; w < workers {
			workers = w
		}

		batches := m.queue.TakeBatches(workers, txPerBlock)
		if len(batches) == 0 {
			continue
		}

		var wg sync.WaitGroup
		for _, batch := range batches {
			wg.Add(1)
			go func(batch []*Transaction) {
				defer wg.Done()
				m.assembleBatch(batch)
			}(batch)
		}
		wg.Wait()
	}
}

// assembleBatch builds a block's Merkle tree outside the chain lock, then
// acquires chain_lock for the critical path: set prev, seal, advance the
// tip, bump the counter, extend the ring buffer, persist, and classify
// (spec §4.8 step 5). Merkle construction may proceed concurrently across
// workers; only the chain mutation itself is serialized.
func (m *Miner) assembleBatch(txs []*Transaction) {
	block := NewBlock(txs)

	m.chainMu.Lock()
	defer m.chainMu.Unlock()

	block.SetPrev(m.tip)
	block.Seal(nowMillis())

	m.tip = block.Hash
	m.blocksCreated++
	m.ring.Append(block.Hash)

	ptr := &lastPointer{LastHash: block.Hash, BlocksCreated: m.blocksCreated}
	if err := m.store.PutBlock(block, ptr); err != nil {
		PrintError("store write failed for block %x: %v", block.Hash, err)
		if err2 := m.store.PutBlock(block, ptr); err2 != nil {
			PrintError("store write retry failed for block %x: %v", block.Hash, err2)
		}
	}

	m.classifyNewBlockTxs(block)
	m.recordMined(len(txs))

	m.events.Publish(Event{Kind: "block_sealed", Hash: hex.EncodeToString(block.Hash)})
}

// classifyNewBlockTxs implements spec §4.8's classify_new_block_txs: temp
// transactions get scheduled for TTL expiry, summ transactions get grouped
// per block for later miner-initiated summarisation.
func (m *Miner) classifyNewBlockTxs(b *Block) {
	now := nowUnix()
	for _, tx := range b.Txs() {
		switch tx.Type {
		case TxTemp:
			if tx.Temp != nil {
				m.removeMu.Lock()
				m.toRemove = append(m.toRemove, removeEntry{
					BlockHash: append([]byte(nil), b.Hash...),
					TxID:      append([]byte(nil), tx.ID...),
					RemoveAt:  now + tx.Temp.TTL,
				})
				m.removeMu.Unlock()
			}
		case TxSumm:
			m.summMu.Lock()
			key := hex.EncodeToString(b.Hash)
			m.toSummarise[key] = append(m.toSummarise[key], append([]byte(nil), tx.ID...))
			m.summMu.Unlock()
		}
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
