package main

import "time"

// Tunables for the block assembly pipeline (spec §4.8).
const (
	txPerBlock = 10
	maxWorkers = 5
)

// Tunables for the cleaning scheduler (spec §4.9).
const (
	initialCleaningInterval = 20 * time.Second
	postCapInterval         = 10 * time.Second
	increaseCPBlockLimit    = 10000
	cpIncreaseIncrement     = 20
	defaultBlockCap         = 100000
	defaultLastNBlocks      = 1000
	minSleep                = 10 * time.Millisecond
)

// Ingress tunables (spec §4.7).
const (
	defaultQueueSoftCap = 1_000_000
	defaultListenAddr   = "localhost:10000"
)

const dbPath = "./data/blocks"

const lastKey = "last"
