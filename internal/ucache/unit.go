package ucache

import (
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/fuse/internal/native"
	"github.com/go-sif/fuse/internal/util"
)

// A unit is a compiled, loaded and initialized plan. It is closed once it has
// been evicted and no execution or result depends on it.
type unit struct {
	fingerprint uint64
	name        string
	lib         native.Library
	entry       *native.EntryPoints
	logger      log.Logger
	execLock    sync.Mutex // serializes executions of non-reentrant units

	lock    sync.Mutex // guards refs, evicted and closed
	refs    int
	evicted bool
	closed  bool
}

func (u *unit) retain() {
	u.lock.Lock()
	defer u.lock.Unlock()
	u.refs++
}

// release drops one reference, closing the unit if it was the last one after eviction
func (u *unit) release() {
	u.lock.Lock()
	u.refs--
	shouldClose := u.refs == 0 && u.evicted && !u.closed
	if shouldClose {
		u.closed = true
	}
	u.lock.Unlock()
	if shouldClose {
		if err := u.lib.Close(); err != nil {
			level.Warn(u.logger).Log("msg", "unable to close unit", "err", err)
		}
	}
}

// evict marks the unit as evicted, closing it immediately if nothing depends on it
func (u *unit) evict() error {
	u.lock.Lock()
	u.evicted = true
	shouldClose := u.refs == 0 && !u.closed
	if shouldClose {
		u.closed = true
	}
	u.lock.Unlock()
	if shouldClose {
		return u.lib.Close()
	}
	return nil
}

// execute invokes the unit's Execute entry point, recovering panics
func (u *unit) execute(inputs []native.Buffer) (res *native.ResultHandle, err error) {
	if !u.entry.Reentrant {
		u.execLock.Lock()
		defer u.execLock.Unlock()
	}
	err = util.SafeInvoke("Execute", func() error {
		var execErr error
		res, execErr = u.entry.Execute(inputs)
		return execErr
	})
	if err == nil && res == nil {
		res = &native.ResultHandle{}
	}
	return res, err
}
