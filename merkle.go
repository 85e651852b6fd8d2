package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
)

// sentinelRoot is the frozen digest of an empty tree (spec §3.2).
const sentinelRoot = "root"

// merkleNode is a node of the mutable Merkle tree. It is a tagged variant:
// a node is a leaf iff Tx != nil; otherwise it is an internal node with
// Children, or a pruned node once Children has been cleared (spec §9
// redesign guidance: Leaf | Inner | Pruned).
type merkleNode struct {
	Data     []byte // hex digest for pair nodes; tx.ID echoed for leaves and their wrappers
	Tx       *Transaction
	Children []*merkleNode
}

func (n *merkleNode) isLeaf() bool {
	return n.Tx != nil
}

func (n *merkleNode) isPruned() bool {
	return !n.isLeaf() && len(n.Children) == 0
}

// isWrapper reports whether n is the single-child wrapper around one
// transaction's leaf (original_source/bc-core/block.py's `_TreeNode([tx])`).
// Every transaction is given its own wrapper at construction so that removing
// it clears only the wrapper, never a sibling sharing a pair parent.
func (n *merkleNode) isWrapper() bool {
	return len(n.Children) == 1 && n.Children[0].isLeaf()
}

// MerkleTree is the mutable binary tree of spec §3.2.
type MerkleTree struct {
	Root *merkleNode
}

func hashChildren(children []*merkleNode) []byte {
	var buf bytes.Buffer
	for _, c := range children {
		buf.Write(c.Data)
	}
	sum := sha256.Sum256(buf.Bytes())
	return []byte(hex.EncodeToString(sum[:]))
}

// BuildMerkleTree constructs the tree bottom-up from transactions in input
// order (spec §3.2). The rightmost unpaired node at a level is promoted
// alone rather than duplicated.
//
// Every transaction is wrapped in its own single-child node before pairing
// (original_source/bc-core/block.py:77 `_TreeNode([tx])`), so that `remove`
// can clear exactly that wrapper's children without touching a sibling that
// happens to share a pair parent (spec §3.2).
func BuildMerkleTree(txs []*Transaction) *MerkleTree {
	if len(txs) == 0 {
		return &MerkleTree{Root: &merkleNode{Data: []byte(sentinelRoot)}}
	}

	level := make([]*merkleNode, 0, len(txs))
	for _, tx := range txs {
		leaf := &merkleNode{Data: append([]byte(nil), tx.ID...), Tx: tx}
		wrapper := &merkleNode{Data: append([]byte(nil), leaf.Data...), Children: []*merkleNode{leaf}}
		level = append(level, wrapper)
	}

	for len(level) > 1 {
		next := make([]*merkleNode, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				pair := []*merkleNode{level[i], level[i+1]}
				next = append(next, &merkleNode{Data: hashChildren(pair), Children: pair})
			} else {
				// Odd one out: promote alone, no duplication.
				next = append(next, level[i])
			}
		}
		level = next
	}

	return &MerkleTree{Root: level[0]}
}

// RootDigest returns the frozen digest, or the sentinel for an empty tree
// (spec §3.2/§4.2). It is never recomputed after mutation.
func (t *MerkleTree) RootDigest() []byte {
	return append([]byte(nil), t.Root.Data...)
}

// walk performs a DFS skipping pruned subtrees, invoking visit on each live leaf.
func walk(n *merkleNode, visit func(*merkleNode)) {
	if n == nil || n.isPruned() {
		return
	}
	if n.isLeaf() {
		visit(n)
		return
	}
	for _, c := range n.Children {
		walk(c, visit)
	}
}

// Contains reports whether id is present (not pruned) in the tree.
func (t *MerkleTree) Contains(id []byte) bool {
	found := false
	walk(t.Root, func(n *merkleNode) {
		if bytes.Equal(n.Tx.ID, id) {
			found = true
		}
	})
	return found
}

// Get returns the live transaction with the given id, if any.
func (t *MerkleTree) Get(id []byte) *Transaction {
	var result *Transaction
	walk(t.Root, func(n *merkleNode) {
		if result == nil && bytes.Equal(n.Tx.ID, id) {
			result = n.Tx
		}
	})
	return result
}

// IDs returns the ids of all live transactions, in tree order.
func (t *MerkleTree) IDs() [][]byte {
	var ids [][]byte
	walk(t.Root, func(n *merkleNode) {
		ids = append(ids, append([]byte(nil), n.Tx.ID...))
	})
	return ids
}

// Txs returns all live transactions, in tree order.
func (t *MerkleTree) Txs() []*Transaction {
	var txs []*Transaction
	walk(t.Root, func(n *merkleNode) {
		txs = append(txs, n.Tx)
	})
	return txs
}

// pruneLeaf clears the children of the leaf parent (the per-transaction
// wrapper) whose sole child has this id. Returns true if something was found
// and cleared. The wrapper is located wherever it occurs in the tree — a
// single-transaction tree's root is itself a wrapper, with no parent above
// it — rather than assumed to sit one level below a pair parent, so clearing
// it never touches a paired sibling (spec §3.2).
func pruneLeaf(n *merkleNode, id []byte) bool {
	if n == nil || n.isLeaf() || n.isPruned() {
		return false
	}
	if n.isWrapper() {
		if bytes.Equal(n.Children[0].Tx.ID, id) {
			n.Children = nil
			return true
		}
		return false
	}
	for _, c := range n.Children {
		if pruneLeaf(c, id) {
			return true
		}
	}
	return false
}

// cleanTree collapses any internal node whose children are all leafless
// (spec §3.2). Returns whether the subtree rooted at n is now leafless.
func cleanTree(n *merkleNode) bool {
	if n == nil {
		return true
	}
	if n.isLeaf() {
		return false
	}
	if n.isPruned() {
		return true
	}
	allLeafless := true
	for _, c := range n.Children {
		if !cleanTree(c) {
			allLeafless = false
		}
	}
	if allLeafless {
		n.Children = nil
		return true
	}
	return false
}

// Remove removes the leaf with the given id and runs clean_tree. Returns
// whether anything was removed.
func (t *MerkleTree) Remove(id []byte) bool {
	removed := pruneLeaf(t.Root, id)
	if removed {
		cleanTree(t.Root)
	}
	return removed
}

// RemoveMany removes every id in ids, running clean_tree once at the end.
// ids is only read, never mutated (spec §9 Open Question).
func (t *MerkleTree) RemoveMany(ids [][]byte) bool {
	any := false
	for _, id := range ids {
		if pruneLeaf(t.Root, id) {
			any = true
		}
	}
	if any {
		cleanTree(t.Root)
	}
	return any
}

// usrTxRequest is the scanning state check_usr_txs threads through blocks
// (spec §4.2). Ids and GVKeys are positionally aligned.
type usrTxRequest struct {
	Ids       [][]byte
	GVKeys    [][]byte // one 32-byte AES key per id, positionally aligned
	Witnesses []Witness
}

// Witness is a (transaction, block hash) pair accumulated during user-request
// verification (spec glossary).
type Witness struct {
	Tx        *Transaction
	BlockHash []byte
}

// Complete reports whether every declared id has a verified witness.
func (r *usrTxRequest) Complete() bool {
	return len(r.Witnesses) == len(r.Ids)
}

// CheckUsrTxs implements spec §4.2's check_usr_txs: for each live leaf and
// each pending request, if the leaf's id is among the request's declared ids
// and the positional GV key verifies, append a witness. Requests whose
// witness list is already complete, or whose gv/id lengths disagree, are
// skipped.
func (t *MerkleTree) CheckUsrTxs(requests []*usrTxRequest, blockHash []byte) {
	var live []*Transaction
	walk(t.Root, func(n *merkleNode) { live = append(live, n.Tx) })

	for _, req := range requests {
		if req.Complete() || len(req.GVKeys) != len(req.Ids) {
			continue
		}
		for _, tx := range live {
			idx := indexOfID(req.Ids, tx.ID)
			if idx < 0 {
				continue
			}
			if alreadyWitnessed(req.Witnesses, tx.ID) {
				continue
			}
			if VerifyGV(req.GVKeys[idx], tx.ID, tx.GV) {
				req.Witnesses = append(req.Witnesses, Witness{Tx: tx, BlockHash: append([]byte(nil), blockHash...)})
			}
		}
	}
}

func indexOfID(ids [][]byte, id []byte) int {
	for i, candidate := range ids {
		if bytes.Equal(candidate, id) {
			return i
		}
	}
	return -1
}

func alreadyWitnessed(ws []Witness, id []byte) bool {
	for _, w := range ws {
		if bytes.Equal(w.Tx.ID, id) {
			return true
		}
	}
	return false
}

// --- SummaryMerkle (spec §3.4) ---

// summaryNode mirrors merkleNode but leaves carry raw ids rather than
// Transaction pointers, since a SummaryMerkle is read-only evidence.
type summaryNode struct {
	Data     []byte
	Children []*summaryNode
}

// SummaryMerkle is the auxiliary, read-only Merkle tree carried inside
// remove/summarise transactions, whose leaves are transaction ids.
type SummaryMerkle struct {
	Root *summaryNode
	Ids  [][]byte // leaves, in construction order — used by the GV scheme
}

// BuildSummaryMerkle constructs a SummaryMerkle over the given ids, using
// the same no-duplication promotion rule as the main tree.
func BuildSummaryMerkle(ids [][]byte) *SummaryMerkle {
	if len(ids) == 0 {
		return &SummaryMerkle{Root: &summaryNode{Data: []byte(sentinelRoot)}}
	}

	level := make([]*summaryNode, 0, len(ids))
	for _, id := range ids {
		level = append(level, &summaryNode{Data: append([]byte(nil), id...)})
	}

	for len(level) > 1 {
		next := make([]*summaryNode, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				pair := []*summaryNode{level[i], level[i+1]}
				var buf bytes.Buffer
				buf.Write(pair[0].Data)
				buf.Write(pair[1].Data)
				sum := sha256.Sum256(buf.Bytes())
				next = append(next, &summaryNode{Data: []byte(hex.EncodeToString(sum[:])), Children: pair})
			} else {
				next = append(next, level[i])
			}
		}
		level = next
	}

	return &SummaryMerkle{Root: level[0], Ids: ids}
}

// RootDigest returns the frozen root digest of the SummaryMerkle.
func (s *SummaryMerkle) RootDigest() []byte {
	if s == nil || s.Root == nil {
		return []byte(sentinelRoot)
	}
	return append([]byte(nil), s.Root.Data...)
}

func init() {
	gob.Register(&merkleNode{})
	gob.Register(&summaryNode{})
}
