package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"

	"golang.org/x/time/rate"
)

const (
	pubKeyLenDigits = 4
	txLenDigits     = 50
)

// Ingress listens on a stream socket and implements the wire protocol of
// spec §4.7/§6.1.
type Ingress struct {
	miner *Miner
}

func NewIngress(m *Miner) *Ingress {
	return &Ingress{miner: m}
}

// ListenAndServe accepts connections until the listener is closed.
func (in *Ingress) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	PrintNetwork("ingress listening on %s", addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go in.handleConn(conn)
	}
}

// handleConn implements the per-connection handshake-then-frame-loop
// protocol. Short reads or a closed socket terminate the connection's
// listener task (spec §7's ShortRead/SocketClosed policy); nothing is ever
// written back to the client.
func (in *Ingress) handleConn(conn net.Conn) {
	defer conn.Close()

	pubKeyHash, err := in.handshake(conn)
	if err != nil {
		return
	}

	// Stalls this connection's reads while the ingress queue is over its
	// soft cap (spec §4.7 backpressure), reusing the same rate.Limiter
	// primitive the status API uses for per-IP throttling as the re-check
	// interval.
	stall := rate.NewLimiter(rate.Limit(50), 1)

	for {
		for in.miner.queue.OverSoftCap() {
			if err := stall.Wait(context.Background()); err != nil {
				return
			}
		}

		lenBytes, err := readExact(conn, txLenDigits)
		if err != nil {
			return
		}
		n, err := strconv.Atoi(string(lenBytes))
		if err != nil {
			return
		}

		payload, err := readExact(conn, n)
		if err != nil {
			return
		}

		tx, err := DeserializeTransaction(payload)
		if err != nil {
			continue
		}

		in.classify(tx, pubKeyHash)
	}
}

func (in *Ingress) handshake(conn net.Conn) ([]byte, error) {
	lenBytes, err := readExact(conn, pubKeyLenDigits)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(string(lenBytes))
	if err != nil {
		return nil, fmt.Errorf("ingress: bad pubkey length: %w", err)
	}

	pemBytes, err := readExact(conn, n)
	if err != nil {
		return nil, err
	}

	return in.miner.pubKeys.Register(pemBytes)
}

// classify implements spec §4.7's classification rule. InvalidSignature and
// UnknownTxType are dropped silently (spec §7); nothing is ever reported
// back to the submitting client.
func (in *Ingress) classify(tx *Transaction, pubKeyHash []byte) {
	pub, ok := in.miner.pubKeys.Lookup(pubKeyHash)
	if !ok {
		return
	}
	pemBytes, _ := in.miner.pubKeys.Raw(pubKeyHash)
	if !tx.VerifySig(pub, pemBytes) {
		return
	}

	switch tx.Type {
	case TxPerm, TxTemp, TxSumm:
		in.miner.queue.Push(tx)
	case TxRemove, TxSummarise:
		if tx.Auth == nil || tx.Auth.TxTree == nil {
			return
		}
		in.miner.userTxs.Enqueue(tx)
	default:
		return
	}
}

// readExact reads exactly n bytes, handling short reads (spec §4.7 step 2).
func readExact(conn net.Conn, n int) ([]byte, error) {
	buf := make([]byte, n)
	_, err := io.ReadFull(conn, buf)
	if err != nil {
		return nil, err
	}
	return buf, nil
}
