package main

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/dgraph-io/badger/v3"
)

func getBadgerOptions(path string) badger.Options {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	opts.ValueLogFileSize = 16 << 20
	opts.MemTableSize = 8 << 20
	opts.BlockCacheSize = 1 << 20
	opts.NumVersionsToKeep = 1

	opts.VerifyValueChecksum = true
	opts.DetectConflicts = true

	if runtime.GOOS == "windows" {
		fmt.Println("Windows detected: running with standard Badger v3 defaults.")
	}

	return opts
}

// lastPointer is the value stored under lastKey: the current tip hash and
// the running blocks-created counter (spec §4.6/§6.3).
type lastPointer struct {
	LastHash      []byte
	BlocksCreated uint64
}

// Store is the byte-map persistence layer (spec §4.6): blocks keyed by hex
// hash, plus a single "last" pointer. No in-process lock guards it — atomic
// badger batches are the only durability unit (spec §5).
type Store struct {
	db *badger.DB
}

// Open recovers an existing chain, or seeds a genesis block if none exists
// (spec §4.6, supplemented by the genesis-seeding behavior recovered from
// original_source/node.py — see SPEC_FULL.md §4.1).
func Open(path string, tsMillis int64) (*Store, *lastPointer, error) {
	if err := os.MkdirAll(path, os.ModePerm); err != nil {
		return nil, nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := badger.Open(getBadgerOptions(path))
	if err != nil {
		return nil, nil, err
	}

	s := &Store{db: db}

	ptr, err := s.readLast()
	if err == badger.ErrKeyNotFound {
		genesis := NewGenesisBlock(tsMillis)
		ptr = &lastPointer{LastHash: genesis.Hash, BlocksCreated: 1}
		if err := s.PutBlock(genesis, ptr); err != nil {
			db.Close()
			return nil, nil, err
		}
		PrintInfo("genesis block sealed: %x", genesis.Hash)
		return s, ptr, nil
	}
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return s, ptr, nil
}

func (s *Store) readLast() (*lastPointer, error) {
	var ptr lastPointer
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(lastKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			dec := gob.NewDecoder(bytes.NewReader(val))
			return dec.Decode(&ptr)
		})
	})
	if err != nil {
		return nil, err
	}
	return &ptr, nil
}

// PutBlock atomically writes the block and the updated "last" pointer in a
// single badger batch (spec §4.6's put_block contract).
func (s *Store) PutBlock(b *Block, ptr *lastPointer) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ptr); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(hex.EncodeToString(b.Hash)), b.Serialize()); err != nil {
			return err
		}
		return txn.Set([]byte(lastKey), buf.Bytes())
	})
}

// RewriteBlock persists a mutated historical block in place, without
// touching the "last" pointer — used by the cleaning scheduler, which
// rewrites block content but never changes the chain tip (spec §3.3's
// "subsequently mutated in place and re-stored on every cleaning cycle").
func (s *Store) RewriteBlock(b *Block) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(hex.EncodeToString(b.Hash)), b.Serialize())
	})
}

// GetBlock loads a block by its hex hash key.
func (s *Store) GetBlock(hash []byte) (*Block, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(hex.EncodeToString(hash)))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return DeserializeBlock(data)
}

// Scan invokes fn for every stored block, excluding the "last" key (spec §4.6).
// A block that fails to decode is skipped and the scan continues (spec §7
// DeserialiseFailed policy).
func (s *Store) Scan(fn func(hash []byte, b *Block)) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		lastBytes := []byte(lastKey)
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			if bytes.Equal(key, lastBytes) {
				continue
			}
			data, err := item.ValueCopy(nil)
			if err != nil {
				continue
			}
			b, err := DeserializeBlock(data)
			if err != nil {
				log.Printf("store: skipping undecodable block %s: %v", key, err)
				continue
			}
			fn(key, b)
		}
		return nil
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

func dbExists(path string) bool {
	if _, err := os.Stat(path + "/MANIFEST"); os.IsNotExist(err) {
		return false
	}
	return true
}
