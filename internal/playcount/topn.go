// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package playcount

import "container/heap"

// rankedEntry is a counter with its scan position, used to keep ties stable.
type rankedEntry struct {
	pc  PlayCount
	seq int
}

// topN keeps the n highest counters seen so far in a bounded min-heap whose
// root is the current weakest entry: lowest count, latest scan position.
type topN struct {
	limit   int
	seq     int
	entries rankHeap
}

func newTopN(limit int) *topN {
	return &topN{limit: limit, entries: make(rankHeap, 0, limit)}
}

// Offer considers pc for the ranking.
func (t *topN) Offer(pc PlayCount) {
	e := rankedEntry{pc: pc, seq: t.seq}
	t.seq++

	if len(t.entries) < t.limit {
		heap.Push(&t.entries, e)
		return
	}
	// A later entry never displaces an equal count, which keeps ties in scan order.
	if pc.PlayCount > t.entries[0].pc.PlayCount {
		t.entries[0] = e
		heap.Fix(&t.entries, 0)
	}
}

// Sorted drains the heap into descending rank order.
func (t *topN) Sorted() []PlayCount {
	out := make([]PlayCount, len(t.entries))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&t.entries).(rankedEntry).pc
	}
	return out
}

type rankHeap []rankedEntry

func (h rankHeap) Len() int { return len(h) }

func (h rankHeap) Less(i, j int) bool {
	if h[i].pc.PlayCount != h[j].pc.PlayCount {
		return h[i].pc.PlayCount < h[j].pc.PlayCount
	}
	return h[i].seq > h[j].seq
}

func (h rankHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *rankHeap) Push(x any) { *h = append(*h, x.(rankedEntry)) }

func (h *rankHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
