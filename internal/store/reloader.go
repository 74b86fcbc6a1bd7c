package store

import (
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrReloaderClosed is returned when watching a closed Reloader.
var ErrReloaderClosed = errors.New("reloader closed")

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 50 * time.Millisecond

// Reloader is a Store backed by an image file that can be swapped in place.
// Reads always see a complete image: either the old one or the new one.
// While held, reloaded images are staged and applied on Release, so a
// macro in progress reads one record from start to end.
type Reloader struct {
	path     string
	slotSize int
	mem      atomic.Pointer[Memory]
	reloads  atomic.Int64

	swapMu sync.Mutex
	held   bool
	staged *Memory

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
	debounce time.Duration
}

// NewReloader loads path and returns a Reloader serving it.
func NewReloader(path string, slotSize int) (*Reloader, error) {
	r := &Reloader{
		path:     path,
		slotSize: slotSize,
		closeCh:  make(chan struct{}),
		debounce: DefaultDebounce,
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// ByteAt implements Store.
func (r *Reloader) ByteAt(addr int) uint8 {
	return r.mem.Load().ByteAt(addr)
}

// Path returns the watched image path.
func (r *Reloader) Path() string {
	return r.path
}

// Reloads returns how many times the image has been loaded.
func (r *Reloader) Reloads() int64 {
	return r.reloads.Load()
}

// Reload re-reads the image. On failure the current image stays in place.
// While held, the new image is staged until Release.
func (r *Reloader) Reload() error {
	mem, err := LoadImage(r.path, r.slotSize)
	if err != nil {
		return err
	}

	r.swapMu.Lock()
	if r.held {
		r.staged = &mem
	} else {
		r.mem.Store(&mem)
	}
	r.swapMu.Unlock()

	r.reloads.Add(1)
	return nil
}

// Hold pins the current image. Reloads until Release are staged.
func (r *Reloader) Hold() {
	r.swapMu.Lock()
	r.held = true
	r.swapMu.Unlock()
}

// Release unpins the image and applies the latest staged reload, if any.
// It reports whether the image changed.
func (r *Reloader) Release() bool {
	r.swapMu.Lock()
	defer r.swapMu.Unlock()

	r.held = false
	if r.staged == nil {
		return false
	}
	r.mem.Store(r.staged)
	r.staged = nil
	return true
}

// Pending reports whether a reload is staged behind Hold.
func (r *Reloader) Pending() bool {
	r.swapMu.Lock()
	defer r.swapMu.Unlock()
	return r.staged != nil
}

// Watch reloads the image whenever its file changes. The directory is
// watched rather than the file so editors that replace files by rename are
// picked up. notify, if non-nil, is called after every reload attempt from
// the watcher goroutine.
func (r *Reloader) Watch(notify func(err error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrReloaderClosed
	}
	if r.watcher != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(r.path)); err != nil {
		fsw.Close()
		return err
	}
	r.watcher = fsw

	r.closedWg.Add(1)
	go r.processLoop(notify)
	return nil
}

// Close stops watching. Reads keep working on the last image.
func (r *Reloader) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.closeCh)
	fsw := r.watcher
	r.mu.Unlock()

	r.closedWg.Wait()
	if fsw != nil {
		return fsw.Close()
	}
	return nil
}

func (r *Reloader) processLoop(notify func(error)) {
	defer r.closedWg.Done()

	target := filepath.Clean(r.path)
	var pending <-chan time.Time

	for {
		select {
		case <-r.closeCh:
			return

		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) {
				pending = time.After(r.debounce)
			}

		case <-pending:
			pending = nil
			err := r.Reload()
			if notify != nil {
				notify(err)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			if notify != nil {
				notify(err)
			}
		}
	}
}
