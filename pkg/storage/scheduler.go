package storage

import (
	"sync"
	"sync/atomic"
)

// IoStatus mirrors the original's done_flag states (spec §4.2): an
// IoFuture starts Pending and settles into exactly one terminal value.
type IoStatus int32

const (
	IoPending IoStatus = iota
	IoSuccess
	IoWriteError
	IoReadError
)

// IoFuture is a one-shot completion signal for a scheduled disk request.
// Grounded on src/storage/disk/scheduler.rs's IoFuture: a polled atomic
// flag plus a stored waker, reworked into Go's idiom as an atomic status
// plus a closed-on-completion channel for blocking waiters and a stored
// callback list for non-blocking ones.
type IoFuture struct {
	status atomic.Int32
	done   chan struct{}
	err    error // set once, before done is closed; safe to read after Wait

	mu     sync.Mutex
	wakers []func()
}

func newIoFuture() *IoFuture {
	return &IoFuture{done: make(chan struct{})}
}

// Status returns the current completion state without blocking.
func (f *IoFuture) Status() IoStatus {
	return IoStatus(f.status.Load())
}

// Wait blocks until the I/O completes and returns its terminal status.
func (f *IoFuture) Wait() IoStatus {
	<-f.done
	return f.Status()
}

// Err returns the underlying Disk Manager error for a completed future, or
// nil on IoSuccess. Only meaningful after Wait returns or Status is no
// longer IoPending.
func (f *IoFuture) Err() error {
	return f.err
}

// OnDone registers waker to run once the I/O completes; if it has already
// completed, waker runs immediately on the calling goroutine.
func (f *IoFuture) OnDone(waker func()) {
	select {
	case <-f.done:
		waker()
		return
	default:
	}
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		waker()
		return
	default:
	}
	f.wakers = append(f.wakers, waker)
	f.mu.Unlock()
}

func (f *IoFuture) complete(status IoStatus, err error) {
	f.err = err
	f.status.Store(int32(status))
	close(f.done)
	f.mu.Lock()
	wakers := f.wakers
	f.wakers = nil
	f.mu.Unlock()
	for _, w := range wakers {
		w()
	}
}

type ioKind int

const (
	ioRead ioKind = iota
	ioWrite
)

// diskRequest is one queued unit of work, converted into a completed
// IoFuture by the scheduler's worker goroutine (spec §4.2).
type diskRequest struct {
	kind     ioKind
	fileID   FileID
	pageID   PageID
	writeBuf []byte
	readBuf  []byte
	future   *IoFuture
}

// DiskScheduler is a request queue that any number of callers enqueue into
// and one worker goroutine drains, converting (file, page, buffer) requests into
// completed futures. Cancellation is not supported: dropping a future
// before completion only forfeits the wake, it does not stop the I/O
// (spec §4.2).
type DiskScheduler struct {
	disk  *DiskManager
	queue chan *diskRequest
	done  chan struct{}
}

// NewDiskScheduler starts the worker goroutine over disk.
func NewDiskScheduler(disk *DiskManager) *DiskScheduler {
	s := &DiskScheduler{
		disk:  disk,
		queue: make(chan *diskRequest, 256),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *DiskScheduler) run() {
	defer close(s.done)
	for req := range s.queue {
		var status IoStatus
		var err error
		switch req.kind {
		case ioWrite:
			if err = s.disk.WritePage(req.fileID, req.pageID, req.writeBuf); err != nil {
				status = IoWriteError
			} else {
				status = IoSuccess
			}
		case ioRead:
			if err = s.disk.ReadPage(req.fileID, req.pageID, req.readBuf); err != nil {
				status = IoReadError
			} else {
				status = IoSuccess
			}
		}
		req.future.complete(status, err)
	}
}

// CreateFuture yields a fresh, unstarted IoFuture (spec §4.2 create_future).
func (s *DiskScheduler) CreateFuture() *IoFuture { return newIoFuture() }

// ScheduleWrite enqueues a write request and returns its future.
func (s *DiskScheduler) ScheduleWrite(fileID FileID, pageID PageID, data []byte) *IoFuture {
	f := newIoFuture()
	s.queue <- &diskRequest{kind: ioWrite, fileID: fileID, pageID: pageID, writeBuf: data, future: f}
	return f
}

// ScheduleRead enqueues a read request that fills out in place and returns
// its future.
func (s *DiskScheduler) ScheduleRead(fileID FileID, pageID PageID, out []byte) *IoFuture {
	f := newIoFuture()
	s.queue <- &diskRequest{kind: ioRead, fileID: fileID, pageID: pageID, readBuf: out, future: f}
	return f
}

// Close stops accepting new requests and waits for the worker to drain
// the queue and exit.
func (s *DiskScheduler) Close() {
	close(s.queue)
	<-s.done
}
