package main

import "encoding/hex"

// Summarise computes the net (inputs − outputs) and (outputs − inputs) over
// a set of transactions (spec §4.5). Equality between two summaries is a
// set-level comparison — the miner verifies user summaries by set-equality,
// not by list order.
func Summarise(txs []*Transaction) (ins []string, outs []string) {
	inSet := make(map[string]bool)
	outSet := make(map[string]bool)

	for _, tx := range txs {
		for _, tok := range tx.Inputs() {
			inSet[tok] = true
		}
		for _, tok := range tx.Outputs() {
			outSet[tok] = true
		}
	}

	for tok := range inSet {
		if !outSet[tok] {
			ins = append(ins, tok)
		}
	}
	for tok := range outSet {
		if !inSet[tok] {
			outs = append(outs, tok)
		}
	}
	return ins, outs
}

// setEqual reports whether a and b contain the same tokens, ignoring order
// and duplicates.
func setEqual(a, b []string) bool {
	as := toSet(a)
	bs := toSet(b)
	if len(as) != len(bs) {
		return false
	}
	for k := range as {
		if !bs[k] {
			return false
		}
	}
	return true
}

func toSet(tokens []string) map[string]bool {
	m := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		m[t] = true
	}
	return m
}

// GetOrder determines a traversal order of a summarised chain by linking
// outputs of one tx to inputs of the next, starting from the net inputs
// set, and returns the minimum-length unique-id-prefix for each tx in that
// order. This is a display aid only (spec §4.5) — never required for
// correctness of removal/summarisation.
func GetOrder(txs []*Transaction) []string {
	ins, _ := Summarise(txs)
	remaining := make([]*Transaction, len(txs))
	copy(remaining, txs)

	var order []*Transaction
	frontier := toSet(ins)

	for len(remaining) > 0 {
		advanced := false
		for i, tx := range remaining {
			matches := false
			for _, tok := range tx.Inputs() {
				if frontier[tok] {
					matches = true
					break
				}
			}
			if matches || len(order) == 0 && i == 0 {
				order = append(order, tx)
				for _, tok := range tx.Outputs() {
					frontier[tok] = true
				}
				remaining = append(remaining[:i], remaining[i+1:]...)
				advanced = true
				break
			}
		}
		if !advanced {
			// No more links found; append whatever remains in original order.
			order = append(order, remaining...)
			break
		}
	}

	return minPrefixes(order)
}

// minPrefixes returns, for each tx (in the given order), the shortest hex
// prefix of its id that is unique among all of them.
func minPrefixes(txs []*Transaction) []string {
	ids := make([]string, len(txs))
	for i, tx := range txs {
		ids[i] = hex.EncodeToString(tx.ID)
	}

	result := make([]string, len(ids))
	for i, id := range ids {
		n := 1
		for n <= len(id) {
			prefix := id[:n]
			unique := true
			for j, other := range ids {
				if j != i && len(other) >= n && other[:n] == prefix {
					unique = false
					break
				}
			}
			if unique {
				result[i] = prefix
				break
			}
			n++
		}
		if result[i] == "" {
			result[i] = id
		}
	}
	return result
}
