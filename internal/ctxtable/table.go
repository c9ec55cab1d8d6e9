// Package ctxtable implements the compressor's context table: a dense,
// fixed-size array of compression contexts indexed by CID, with LRU
// eviction when the channel is configured for fewer slots than active flows
// demand.
package ctxtable

import (
	"container/list"
	"fmt"
)

// FlowKey identifies a packet stream independent of CID, so the table can
// find an existing context for a flow before allocating a new CID.
type FlowKey string

// Entry is the table's view of one context slot. Callers embed the actual
// per-profile compression state behind the opaque State field.
type Entry struct {
	CID       uint16
	ProfileID uint16
	Flow      FlowKey
	State     any
}

// Table is a dense array of MaxCID+1 context slots with LRU eviction.
type Table struct {
	maxCID  uint16
	entries []*Entry
	lru     *list.List
	byCID   map[uint16]*list.Element
	byFlow  map[FlowKey]uint16
}

// NewTable creates a context table sized for CIDs in [0, maxCID].
func NewTable(maxCID uint16) *Table {
	return &Table{
		maxCID:  maxCID,
		entries: make([]*Entry, int(maxCID)+1),
		lru:     list.New(),
		byCID:   make(map[uint16]*list.Element, int(maxCID)+1),
		byFlow:  make(map[FlowKey]uint16, int(maxCID)+1),
	}
}

// MaxCID returns the largest CID this table can hold.
func (t *Table) MaxCID() uint16 { return t.maxCID }

// Lookup returns the context for flow, if one exists, and marks it
// most-recently-used.
func (t *Table) Lookup(flow FlowKey) (*Entry, bool) {
	cid, ok := t.byFlow[flow]
	if !ok {
		return nil, false
	}
	e := t.entries[cid]
	t.touch(cid)
	return e, true
}

// Get returns the context at cid without affecting its recency, or false if
// the slot is unused.
func (t *Table) Get(cid uint16) (*Entry, bool) {
	if int(cid) >= len(t.entries) {
		return nil, false
	}
	e := t.entries[cid]
	return e, e != nil
}

// Acquire returns the existing context for flow if present, otherwise
// allocates one, evicting the least-recently-used slot if the table is at
// capacity. The evicted entry, if any, is returned so the caller can run
// profile-specific teardown (context.destroy).
func (t *Table) Acquire(flow FlowKey, profileID uint16, newState func() any) (entry *Entry, evicted *Entry) {
	if e, ok := t.Lookup(flow); ok {
		return e, nil
	}

	cid, freeSlot := t.firstFree()
	if !freeSlot {
		cid = t.lruCID()
		evicted = t.entries[cid]
		t.release(cid)
	}

	e := &Entry{CID: cid, ProfileID: profileID, Flow: flow, State: newState()}
	t.entries[cid] = e
	t.byFlow[flow] = cid
	el := t.lru.PushFront(cid)
	t.byCID[cid] = el
	return e, evicted
}

// Release frees the context at cid, if any.
func (t *Table) Release(cid uint16) (*Entry, error) {
	if int(cid) >= len(t.entries) {
		return nil, fmt.Errorf("ctxtable: cid %d out of range [0, %d]", cid, t.maxCID)
	}
	e := t.entries[cid]
	t.release(cid)
	return e, nil
}

func (t *Table) release(cid uint16) {
	e := t.entries[cid]
	if e == nil {
		return
	}
	delete(t.byFlow, e.Flow)
	if el, ok := t.byCID[cid]; ok {
		t.lru.Remove(el)
		delete(t.byCID, cid)
	}
	t.entries[cid] = nil
}

// touch marks cid as most-recently-used.
func (t *Table) touch(cid uint16) {
	if el, ok := t.byCID[cid]; ok {
		t.lru.MoveToFront(el)
	}
}

func (t *Table) firstFree() (uint16, bool) {
	for i, e := range t.entries {
		if e == nil {
			return uint16(i), true
		}
	}
	return 0, false
}

// lruCID returns the least-recently-used occupied CID. Panics only if
// called on an empty table, which firstFree() prevents.
func (t *Table) lruCID() uint16 {
	back := t.lru.Back()
	return back.Value.(uint16)
}

// Len returns the number of occupied context slots.
func (t *Table) Len() int {
	return t.lru.Len()
}
