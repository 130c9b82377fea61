package storage

import (
	"sync"
)

// BufferPool caches fixed-size pages in a ring of frames, backed by the
// Disk Manager and an LRU-K replacement policy. Grounded on the teacher's
// BufferPool (container/list LRU over a single-file page cache,
// pkg/storage/buffer_pool.go), generalized to multi-file PageKeys, real
// pin-count/dirty bookkeeping on Frame, and scoped guards instead of a
// bare Pin/Unpin pair.
type BufferPool struct {
	mu        sync.Mutex
	frames    []*Frame
	freeList  []FrameID
	pageTable map[PageKey]FrameID
	replacer  *Replacer[FrameID]
	disk      *DiskManager
	scheduler *DiskScheduler

	hits, misses, evictions int64
}

// NewBufferPool allocates numFrames frame slots on top of disk. All page
// I/O is routed through a DiskScheduler (spec §4.2's "Buffer Pool →
// Replacer/Disk Scheduler → Disk Manager" path) rather than calling disk
// directly.
func NewBufferPool(numFrames int, disk *DiskManager) *BufferPool {
	frames := make([]*Frame, numFrames)
	free := make([]FrameID, numFrames)
	for i := 0; i < numFrames; i++ {
		frames[i] = newFrame(FrameID(i))
		free[i] = FrameID(i)
	}
	return &BufferPool{
		frames:    frames,
		freeList:  free,
		pageTable: make(map[PageKey]FrameID),
		replacer:  NewReplacer[FrameID](numFrames, 2),
		disk:      disk,
		scheduler: NewDiskScheduler(disk),
	}
}

// readPage schedules a read through the Disk Scheduler and blocks on its
// future, surfacing the Disk Manager's own error rather than a generic
// IoReadError.
func (bp *BufferPool) readPage(fileID FileID, pageID PageID, out []byte) error {
	future := bp.scheduler.ScheduleRead(fileID, pageID, out)
	if future.Wait() != IoSuccess {
		return future.Err()
	}
	return nil
}

// writePage schedules a write through the Disk Scheduler and blocks on its
// future.
func (bp *BufferPool) writePage(fileID FileID, pageID PageID, data []byte) error {
	future := bp.scheduler.ScheduleWrite(fileID, pageID, data)
	if future.Wait() != IoSuccess {
		return future.Err()
	}
	return nil
}

// checkPage implements the buffer pool's three-path lookup: resident hit,
// free-frame load, or evict-then-load. Returns ErrPoolExhausted if every
// frame is pinned.
func (bp *BufferPool) checkPage(key PageKey) (*Frame, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if frameID, ok := bp.pageTable[key]; ok {
		frame := bp.frames[frameID]
		bp.pin(frameID, frame)
		bp.hits++
		return frame, nil
	}
	bp.misses++

	frameID, frame, err := bp.acquireFrame()
	if err != nil {
		return nil, err
	}

	frame.reclaim(key)
	if err := bp.readPage(key.File, key.Page, frame.Data[:]); err != nil {
		bp.freeList = append(bp.freeList, frameID)
		return nil, err
	}

	bp.pageTable[key] = frameID
	bp.pin(frameID, frame)
	return frame, nil
}

// acquireFrame returns a frame ready to hold a new page: popped from the
// free list, or the LRU-K victim flushed and evicted from the page table.
func (bp *BufferPool) acquireFrame() (FrameID, *Frame, error) {
	if n := len(bp.freeList); n > 0 {
		id := bp.freeList[n-1]
		bp.freeList = bp.freeList[:n-1]
		return id, bp.frames[id], nil
	}

	victim, ok := bp.replacer.Evict()
	if !ok {
		return 0, nil, ErrPoolExhausted
	}

	frame := bp.frames[victim]
	if frame.IsDirty() {
		if err := bp.writePage(frame.Key.File, frame.Key.Page, frame.Data[:]); err != nil {
			bp.replacer.SetEvictable(victim, true)
			return 0, nil, err
		}
	}
	delete(bp.pageTable, frame.Key)
	bp.evictions++
	return victim, frame, nil
}

// pin records an access, marks the frame non-evictable, and bumps its pin
// count. Must be called with bp.mu held.
func (bp *BufferPool) pin(id FrameID, frame *Frame) {
	frame.incPin()
	_ = bp.replacer.RecordAccess(id)
	bp.replacer.SetEvictable(id, false)
}

// release is the shared tail of ReadGuard/WriteGuard.Release.
func (bp *BufferPool) release(frame *Frame, dirty bool) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if dirty {
		frame.setDirty(true)
	}
	if frame.decPin() == 0 {
		bp.replacer.SetEvictable(frame.ID, true)
	}
}

// ReadPage pins and returns a shared read guard on (fileID, pageID),
// loading it from disk if not already resident.
func (bp *BufferPool) ReadPage(fileID FileID, pageID PageID) (*ReadGuard, error) {
	frame, err := bp.checkPage(PageKey{File: fileID, Page: pageID})
	if err != nil {
		return nil, err
	}
	return &ReadGuard{pool: bp, frame: frame}, nil
}

// WritePage pins and returns an exclusive write guard on (fileID, pageID).
func (bp *BufferPool) WritePage(fileID FileID, pageID PageID) (*WriteGuard, error) {
	frame, err := bp.checkPage(PageKey{File: fileID, Page: pageID})
	if err != nil {
		return nil, err
	}
	return &WriteGuard{pool: bp, frame: frame}, nil
}

// NewPage allocates a fresh page in fileID via the Disk Manager, gives it a
// zero-initialized frame, and returns a write guard over it.
func (bp *BufferPool) NewPage(fileID FileID) (PageID, *WriteGuard, error) {
	pageID, _, err := bp.disk.AllocatePage(fileID)
	if err != nil {
		return 0, nil, err
	}
	key := PageKey{File: fileID, Page: pageID}

	bp.mu.Lock()
	frameID, frame, err := bp.acquireFrame()
	if err != nil {
		bp.mu.Unlock()
		return 0, nil, err
	}
	frame.reclaim(key)
	bp.pageTable[key] = frameID
	bp.pin(frameID, frame)
	bp.mu.Unlock()

	return pageID, &WriteGuard{pool: bp, frame: frame}, nil
}

// DeletePage refuses to act on a pinned page; otherwise it evicts the
// page's frame back to the free list and deletes it via the Disk Manager.
func (bp *BufferPool) DeletePage(fileID FileID, pageID PageID) error {
	key := PageKey{File: fileID, Page: pageID}

	bp.mu.Lock()
	if frameID, ok := bp.pageTable[key]; ok {
		frame := bp.frames[frameID]
		if frame.PinCount() > 0 {
			bp.mu.Unlock()
			return ErrPagePinned
		}
		delete(bp.pageTable, key)
		bp.replacer.Remove(frameID)
		bp.freeList = append(bp.freeList, frameID)
	}
	bp.mu.Unlock()

	return bp.disk.DeletePage(fileID, pageID)
}

// GetPinCount is an introspection hook for tests: returns the current pin
// count of (fileID, pageID) if resident.
func (bp *BufferPool) GetPinCount(fileID FileID, pageID PageID) (int32, bool) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameID, ok := bp.pageTable[PageKey{File: fileID, Page: pageID}]
	if !ok {
		return 0, false
	}
	return bp.frames[frameID].PinCount(), true
}

// FlushAll writes every resident dirty frame back through the Disk
// Manager and clears its dirty flag, without evicting anything. Used at
// shutdown to make every committed mutation durable regardless of pin
// state.
func (bp *BufferPool) FlushAll() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for _, frame := range bp.frames {
		if !frame.IsDirty() {
			continue
		}
		if err := bp.writePage(frame.Key.File, frame.Key.Page, frame.Data[:]); err != nil {
			return err
		}
		frame.setDirty(false)
	}
	return nil
}

// Close stops the Disk Scheduler's worker goroutine once its queue has
// drained. Call after FlushAll, before closing the underlying Disk Manager.
func (bp *BufferPool) Close() {
	bp.scheduler.Close()
}

// Stats reports buffer pool counters for introspection.
func (bp *BufferPool) Stats() map[string]interface{} {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	total := bp.hits + bp.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(bp.hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"capacity":  len(bp.frames),
		"resident":  len(bp.pageTable),
		"hits":      bp.hits,
		"misses":    bp.misses,
		"evictions": bp.evictions,
		"hit_rate":  hitRate,
	}
}
