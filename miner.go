package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"sync/atomic"
)

// removeEntry is one (block_hash, tx_id, earliest_remove_time) tuple from
// spec §3.5's to_remove list.
type removeEntry struct {
	BlockHash []byte
	TxID      []byte
	RemoveAt  int64 // unix seconds; 0 means "due immediately"
}

// runningTask tracks an ephemeral cleaning-cycle task so the scheduler can
// opportunistically prune finished ones (spec §4.9.4), mirroring the
// teacher's preference for named state over bare goroutines.
type runningTask struct {
	done chan struct{}
}

func (t *runningTask) finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Miner is the process-wide state: named lock fields rather than package
// globals (spec §9's critique of the source's global prev_tx pattern), so a
// test can run several miners in one process.
type Miner struct {
	store   *Store
	queue   *IngressQueue
	userTxs *UserTxBuffer
	pubKeys *PubKeyTable
	ring    *RingBuffer
	events  *EventBus

	chainMu       sync.Mutex
	tip           []byte
	blocksCreated uint64

	removeMu sync.Mutex
	toRemove []removeEntry

	summMu      sync.Mutex
	toSummarise map[string][][]byte // hex block hash -> tx ids

	taskMu sync.Mutex
	tasks  []*runningTask

	blockCap int

	// minerKey is the miner's own keypair, used to sign synthesised
	// `summarised` transactions (spec §4.9.3).
	minerKey    *rsa.PrivateKey
	minerPubPEM []byte
	minerGVS    string

	expect    int64 // 0 = serve indefinitely (spec §6.4)
	minedSoFar int64
}

// NewMiner opens the store (seeding a genesis block if needed) and wires up
// all in-memory bookkeeping structures.
func NewMiner(dbDir string, tsMillis int64, blockCap, lastN, queueSoftCap int, expect int64, gvs string) (*Miner, error) {
	store, ptr, err := Open(dbDir, tsMillis)
	if err != nil {
		return nil, err
	}

	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		store.Close()
		return nil, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		store.Close()
		return nil, err
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	m := &Miner{
		store:       store,
		queue:       NewIngressQueue(queueSoftCap),
		userTxs:     NewUserTxBuffer(),
		pubKeys:     NewPubKeyTable(),
		ring:        NewRingBuffer(lastN),
		events:      NewEventBus(),
		tip:         ptr.LastHash,
		blocksCreated: ptr.BlocksCreated,
		toSummarise: make(map[string][][]byte),
		blockCap:    blockCap,
		minerKey:    priv,
		minerPubPEM: pubPEM,
		minerGVS:    gvs,
		expect:      expect,
	}
	m.ring.Append(ptr.LastHash)

	if _, err := m.pubKeys.Register(pubPEM); err != nil {
		store.Close()
		return nil, err
	}

	return m, nil
}

// Close releases the store handle.
func (m *Miner) Close() error {
	return m.store.Close()
}

// Quiescent reports no outstanding tasks, empty queue, and no pending
// bookkeeping — the shutdown condition for a benchmark run (spec §5).
func (m *Miner) Quiescent() bool {
	m.taskMu.Lock()
	tasks := len(m.tasks)
	m.taskMu.Unlock()

	m.removeMu.Lock()
	toRemove := len(m.toRemove)
	m.removeMu.Unlock()

	m.summMu.Lock()
	toSumm := len(m.toSummarise)
	m.summMu.Unlock()

	return tasks == 0 && m.queue.Len() == 0 && toRemove == 0 && toSumm == 0
}

// ExpectMet reports whether the benchmark's expected-transaction-count has
// been reached (spec §6.4, supplemented from original_source/tester.py).
func (m *Miner) ExpectMet() bool {
	if m.expect == 0 {
		return false
	}
	return atomic.LoadInt64(&m.minedSoFar) >= m.expect
}

func (m *Miner) recordMined(n int) {
	atomic.AddInt64(&m.minedSoFar, int64(n))
}

func (m *Miner) pruneFinishedTasks() {
	m.taskMu.Lock()
	defer m.taskMu.Unlock()
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.finished() {
			live = append(live, t)
		}
	}
	m.tasks = live
}

func (m *Miner) trackTask(done chan struct{}) {
	m.taskMu.Lock()
	m.tasks = append(m.tasks, &runningTask{done: done})
	m.taskMu.Unlock()
}
