package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// RestServer is the read-only HTTP status API. None of its handlers can
// mutate chain state — mutation only happens through the ingress wire
// protocol or the cleaning scheduler (SPEC_FULL.md §6).
type RestServer struct {
	miner *Miner
}

// StartRestServer starts the status API and event-stream server.
func StartRestServer(m *Miner, listenHost string, port int) {
	rs := RestServer{miner: m}

	router := mux.NewRouter()
	router.Use(commonMiddleware)

	readLimiter := NewIPRateLimiter(20, 30)
	readMW := RateLimitMiddleware(readLimiter)

	router.Handle("/blocks/tip", readMW(http.HandlerFunc(rs.getTip))).Methods("GET")
	router.Handle("/blocks/{hash}", readMW(http.HandlerFunc(rs.getBlock))).Methods("GET")
	router.Handle("/tx/{id}", readMW(http.HandlerFunc(rs.getTransaction))).Methods("GET")
	router.Handle("/pending", readMW(http.HandlerFunc(rs.getPending))).Methods("GET")
	router.Handle("/stats", readMW(http.HandlerFunc(rs.getStats))).Methods("GET")
	router.HandleFunc("/ws/events", m.events.ServeEvents)

	addr := fmt.Sprintf("%s:%d", listenHost, port)
	PrintNetwork("status API started on http://%s", addr)

	srv := &http.Server{
		Handler:      CORSMiddleware(router),
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	log.Fatal(srv.ListenAndServe())
}

func commonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

type TipResponse struct {
	Hash          string `json:"hash"`
	BlocksCreated uint64 `json:"blocks_created"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type JSONTransaction struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Input     string `json:"input"`
	Output    string `json:"output"`
	PubKeyID  string `json:"pub_key_hash"`
	Timestamp int64  `json:"timestamp"`
}

func toJSONTransaction(tx *Transaction) JSONTransaction {
	return JSONTransaction{
		ID:        hex.EncodeToString(tx.ID),
		Type:      string(tx.Type),
		Input:     tx.Input,
		Output:    tx.Output,
		PubKeyID:  DisplayID(tx.PubKeyHash),
		Timestamp: tx.Timestamp,
	}
}

type JSONBlock struct {
	Hash          string            `json:"hash"`
	PrevBlockHash string            `json:"prev_block_hash"`
	Timestamp     int64             `json:"timestamp"`
	Transactions  []JSONTransaction `json:"transactions"`
}

func toJSONBlock(b *Block) JSONBlock {
	txs := b.Txs()
	jsonTxs := make([]JSONTransaction, 0, len(txs))
	for _, tx := range txs {
		jsonTxs = append(jsonTxs, toJSONTransaction(tx))
	}
	return JSONBlock{
		Hash:          hex.EncodeToString(b.Hash),
		PrevBlockHash: string(b.PrevBlockHash),
		Timestamp:     b.Timestamp,
		Transactions:  jsonTxs,
	}
}

func (rs *RestServer) getTip(w http.ResponseWriter, r *http.Request) {
	rs.miner.chainMu.Lock()
	hash := append([]byte(nil), rs.miner.tip...)
	created := rs.miner.blocksCreated
	rs.miner.chainMu.Unlock()

	json.NewEncoder(w).Encode(TipResponse{Hash: hex.EncodeToString(hash), BlocksCreated: created})
}

func (rs *RestServer) getBlock(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	hash, err := hex.DecodeString(vars["hash"])
	if err != nil {
		json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid hash format"})
		return
	}

	block, err := rs.miner.store.GetBlock(hash)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "block not found"})
		return
	}

	json.NewEncoder(w).Encode(toJSONBlock(block))
}

func (rs *RestServer) getTransaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := hex.DecodeString(vars["id"])
	if err != nil {
		json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid transaction id format"})
		return
	}

	var found *Transaction
	rs.miner.store.Scan(func(hash []byte, b *Block) {
		if found != nil {
			return
		}
		if tx := b.Get(id); tx != nil {
			found = tx
		}
	})

	if found == nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "transaction not found"})
		return
	}

	json.NewEncoder(w).Encode(toJSONTransaction(found))
}

type PendingResponse struct {
	QueueLength int `json:"queue_length"`
}

func (rs *RestServer) getPending(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(PendingResponse{QueueLength: rs.miner.queue.Len()})
}

type StatsResponse struct {
	BlocksCreated   uint64 `json:"blocks_created"`
	QueueLength     int    `json:"queue_length"`
	PendingRemovals int    `json:"pending_removals"`
}

func (rs *RestServer) getStats(w http.ResponseWriter, r *http.Request) {
	rs.miner.removeMu.Lock()
	removals := len(rs.miner.toRemove)
	rs.miner.removeMu.Unlock()

	json.NewEncoder(w).Encode(StatsResponse{
		BlocksCreated:   rs.miner.currentBlocksCreated(),
		QueueLength:     rs.miner.queue.Len(),
		PendingRemovals: removals,
	})
}
