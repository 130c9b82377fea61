package storage

import "os"

// FdPool is a bounded cache of open *os.File handles keyed by FileID, with
// admission/eviction delegated to a generic LRU-K Replacer. Grounded on
// src/utils/fdpool.rs's set/get pair: a residency miss on Get is the
// caller's responsibility to repair by reopening, which is exactly what
// DiskManager.handle does.
type FdPool struct {
	capacity int
	replacer *Replacer[FileID]
	handles  map[FileID]*os.File
}

// NewFdPool creates a pool admitting at most capacity resident handles.
func NewFdPool(capacity int) *FdPool {
	return &FdPool{
		capacity: capacity,
		replacer: NewReplacer[FileID](capacity, 2),
		handles:  make(map[FileID]*os.File, capacity),
	}
}

// Set admits f under id, recording an access. If the pool is already full
// and id is not resident, the LRU-K victim is closed and evicted first.
func (p *FdPool) Set(id FileID, f *os.File) (newID FileID, evictedID FileID, evicted bool) {
	if _, ok := p.handles[id]; ok {
		p.handles[id] = f
		_ = p.replacer.RecordAccess(id)
		p.replacer.SetEvictable(id, true)
		return id, 0, false
	}

	if len(p.handles) >= p.capacity {
		if victim, ok := p.replacer.Evict(); ok {
			if h, ok := p.handles[victim]; ok {
				h.Close()
				delete(p.handles, victim)
			}
			evictedID, evicted = victim, true
		}
	}

	p.handles[id] = f
	if err := p.replacer.RecordAccess(id); err == nil {
		p.replacer.SetEvictable(id, true)
	}
	return id, evictedID, evicted
}

// Get returns the resident handle for id, recording an access. ok is false
// on a cache miss; the caller must reopen and re-admit via Set.
func (p *FdPool) Get(id FileID) (*os.File, bool) {
	f, ok := p.handles[id]
	if !ok {
		return nil, false
	}
	_ = p.replacer.RecordAccess(id)
	return f, true
}

// Remove drops id from the pool without closing its handle, for callers
// about to close it themselves (e.g. on file deletion).
func (p *FdPool) Remove(id FileID) {
	delete(p.handles, id)
	p.replacer.Remove(id)
}

// Close closes every resident handle.
func (p *FdPool) Close() error {
	var firstErr error
	for id, f := range p.handles {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.handles, id)
	}
	return firstErr
}
