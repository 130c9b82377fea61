package storage

import "sync"

// LatchMode is the granularity of a page-level latch layered on top of
// buffer-pool guards.
type LatchMode int

const (
	LatchShared LatchMode = iota
	LatchExclusive
)

// latchRecord exists in the flusher's table only while at least one holder
// is present, per spec §3 (Data Model: Latch record).
type latchRecord struct {
	mode    LatchMode
	holders int
}

// Flusher is the latch manager: a concurrent page_id → (mode, holder count)
// table on top of buffer-pool guards. It owns the latch-ordering invariant
// that enables crabbing — ancestors release only once a descent determines
// the next child is safe for the intended mutation (see the B+Tree
// engine's safe-node rule). Grounded on the teacher's page-pinning
// discipline (pkg/storage/page.go's Pin/Unpin), generalized into a true
// shared/exclusive latch table since the teacher has no latch concept.
type Flusher struct {
	mu      sync.Mutex
	pool    *BufferPool
	fileID  FileID
	latches map[PageID]*latchRecord
}

// NewFlusher creates a latch manager over one file's pages in pool.
func NewFlusher(pool *BufferPool, fileID FileID) *Flusher {
	return &Flusher{pool: pool, fileID: fileID, latches: make(map[PageID]*latchRecord)}
}

// AcquireEx takes an exclusive latch on pageID, failing with
// ErrExclusiveConflict if any latch, shared or exclusive, is already held.
func (fl *Flusher) AcquireEx(pageID PageID) (*WriteGuard, error) {
	fl.mu.Lock()
	if _, exists := fl.latches[pageID]; exists {
		fl.mu.Unlock()
		return nil, ErrExclusiveConflict
	}
	fl.latches[pageID] = &latchRecord{mode: LatchExclusive, holders: 1}
	fl.mu.Unlock()

	wg, err := fl.pool.WritePage(fl.fileID, pageID)
	if err != nil {
		fl.mu.Lock()
		delete(fl.latches, pageID)
		fl.mu.Unlock()
		return nil, err
	}
	return wg, nil
}

// AcquireSh takes a shared latch on pageID, failing if an exclusive latch
// is already held.
func (fl *Flusher) AcquireSh(pageID PageID) (*ReadGuard, error) {
	fl.mu.Lock()
	if rec, exists := fl.latches[pageID]; exists {
		if rec.mode == LatchExclusive {
			fl.mu.Unlock()
			return nil, ErrExclusiveConflict
		}
		rec.holders++
	} else {
		fl.latches[pageID] = &latchRecord{mode: LatchShared, holders: 1}
	}
	fl.mu.Unlock()

	rg, err := fl.pool.ReadPage(fl.fileID, pageID)
	if err != nil {
		fl.mu.Lock()
		fl.dropHolder(pageID)
		fl.mu.Unlock()
		return nil, err
	}
	return rg, nil
}

// dropHolder removes one holder from pageID's latch record, deleting the
// record entirely once no holders remain. Must be called with fl.mu held.
func (fl *Flusher) dropHolder(pageID PageID) {
	rec, ok := fl.latches[pageID]
	if !ok {
		return
	}
	rec.holders--
	if rec.holders <= 0 {
		delete(fl.latches, pageID)
	}
}

// CrabStack is the per-operation stack of exclusive latches acquired
// top-down by AcquireContextEx. A plain slice is sufficient: the stack is
// local to one insert/delete call on a single goroutine, so no lock-free
// structure is warranted.
type CrabStack struct {
	fl      *Flusher
	pageIDs []PageID
	guards  []*WriteGuard
}

// AcquireContextEx acquires an exclusive latch on every page in pageIDs, in
// order, pushing each onto a new crabbing context. On failure, every latch
// already acquired in this call is released before returning the error.
func (fl *Flusher) AcquireContextEx(pageIDs []PageID) (*CrabStack, error) {
	cs := &CrabStack{fl: fl}
	for _, id := range pageIDs {
		wg, err := fl.AcquireEx(id)
		if err != nil {
			cs.ReleaseAll()
			return nil, err
		}
		cs.pageIDs = append(cs.pageIDs, id)
		cs.guards = append(cs.guards, wg)
	}
	return cs, nil
}

// Len reports how many latches remain held in the context.
func (cs *CrabStack) Len() int { return len(cs.pageIDs) }

// Front returns the oldest (root-most) remaining latch's guard without
// popping it, for callers that need to inspect before deciding to release.
func (cs *CrabStack) Front() (PageID, *WriteGuard, bool) {
	if len(cs.pageIDs) == 0 {
		return 0, nil, false
	}
	return cs.pageIDs[0], cs.guards[0], true
}

// PopFlush writes data through the front guard, then releases it and
// removes its latch record — used to flush a page on the way back up out
// of a crabbing descent.
func (cs *CrabStack) PopFlush(data []byte) error {
	if len(cs.pageIDs) == 0 {
		return nil
	}
	id, wg := cs.pageIDs[0], cs.guards[0]
	copy(wg.Data()[:], data)
	cs.pageIDs = cs.pageIDs[1:]
	cs.guards = cs.guards[1:]
	return cs.fl.ReleaseEx(id, wg)
}

// ReleaseEx pops and releases the front latch without writing, used when
// an ancestor has been determined safe and can be dropped from the
// context as the descent continues.
func (cs *CrabStack) ReleaseEx() error {
	if len(cs.pageIDs) == 0 {
		return nil
	}
	id, wg := cs.pageIDs[0], cs.guards[0]
	cs.pageIDs = cs.pageIDs[1:]
	cs.guards = cs.guards[1:]
	return cs.fl.ReleaseEx(id, wg)
}

// ReleaseAll releases every latch still held in the context, front to back.
func (cs *CrabStack) ReleaseAll() {
	for len(cs.pageIDs) > 0 {
		_ = cs.ReleaseEx()
	}
}

// ReleaseEx releases one exclusive latch on pageID previously obtained via
// AcquireEx, clearing its record from the latch table so a later AcquireEx
// on the same page can succeed. Every exclusive-latch release path —
// CrabStack's and the B+Tree engine's hand-rolled crabbing stack alike —
// must route through this rather than calling WriteGuard.Release directly,
// or the latch table accumulates stale entries and every subsequent
// AcquireEx on that page fails with ErrExclusiveConflict.
func (fl *Flusher) ReleaseEx(pageID PageID, wg *WriteGuard) error {
	wg.Release()
	fl.mu.Lock()
	delete(fl.latches, pageID)
	fl.mu.Unlock()
	return nil
}

// ReleaseSh releases one shared holder on pageID previously obtained via
// AcquireSh.
func (fl *Flusher) ReleaseSh(pageID PageID, rg *ReadGuard) {
	rg.Release()
	fl.mu.Lock()
	fl.dropHolder(pageID)
	fl.mu.Unlock()
}

// ReadTop returns a copy of a page's bytes held under an existing shared
// latch, leaving the latch in place.
func ReadTop(rg *ReadGuard) []byte {
	data := *rg.Data()
	out := make([]byte, PageSize)
	copy(out, data[:])
	return out
}
