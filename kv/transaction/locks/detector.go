package locks

// WaitForEntry is one edge of the wait-for graph: Txn blocks on Key, which
// is currently held by WaitForTxn.
type WaitForEntry struct {
	Txn        uint64
	WaitForTxn uint64
	Key        uint64
}

// waitForGraph tracks which transaction each blocked transaction is waiting
// for. A transaction runs on a single goroutine and therefore waits on at
// most one key at a time, so the graph has out-degree at most one and a
// cycle check is a walk along the wait chain.
//
// All methods must be called with the owning Manager's mutex held.
type waitForGraph struct {
	edges map[uint64]WaitForEntry
}

func newWaitForGraph() *waitForGraph {
	return &waitForGraph{edges: map[uint64]WaitForEntry{}}
}

func (g *waitForGraph) addEdge(txnID, holderID, key uint64) {
	g.edges[txnID] = WaitForEntry{Txn: txnID, WaitForTxn: holderID, Key: key}
}

func (g *waitForGraph) removeEdge(txnID uint64) {
	delete(g.edges, txnID)
}

// removeTxn drops every edge originating at or pointing to txnID. Called on
// releaseAll; waiters whose edge pointed at txnID are about to be woken and
// will re-record an edge if they block again.
func (g *waitForGraph) removeTxn(txnID uint64) {
	delete(g.edges, txnID)
	for src, entry := range g.edges {
		if entry.WaitForTxn == txnID {
			delete(g.edges, src)
		}
	}
}

// findCycle walks the wait chain from start and returns the cycle through
// start, or nil. The walk is bounded by the edge count: a chain that runs
// into a cycle not containing start terminates without a report, because
// that cycle was already reported on the edge insert that closed it.
func (g *waitForGraph) findCycle(start uint64) []WaitForEntry {
	chain := make([]WaitForEntry, 0, 4)
	cur := start
	for range g.edges {
		entry, ok := g.edges[cur]
		if !ok {
			return nil
		}
		chain = append(chain, entry)
		cur = entry.WaitForTxn
		if cur == start {
			return chain
		}
	}
	return nil
}
