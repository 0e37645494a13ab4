// Package fusetest provides helpers for testing programs built on fuse: an
// instrumented backend which counts builds, and a factory for engines backed
// by the in-process local backend.
package fusetest

import (
	"context"
	"sync"
	"testing"

	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/backend/local"
	"github.com/go-sif/fuse/engine"
	"github.com/go-sif/fuse/internal/native"
	"github.com/go-sif/fuse/udf"
	"github.com/stretchr/testify/require"
)

// CountingBackend wraps a Backend, recording every build and close
type CountingBackend struct {
	inner native.Backend

	lock   sync.Mutex
	builds []string // unit names, in build order
	closed map[string]bool
	fail   error
}

// NewCountingBackend wraps inner
func NewCountingBackend(inner native.Backend) *CountingBackend {
	return &CountingBackend{inner: inner, closed: make(map[string]bool)}
}

// Build records the build, then delegates to the wrapped Backend
func (b *CountingBackend) Build(ctx context.Context, plan []byte, unit string) (native.Library, error) {
	b.lock.Lock()
	b.builds = append(b.builds, unit)
	fail := b.fail
	b.lock.Unlock()
	if fail != nil {
		return nil, &native.BuildError{Unit: unit, Output: fail.Error(), Err: fail}
	}
	lib, err := b.inner.Build(ctx, plan, unit)
	if err != nil {
		return nil, err
	}
	return &countingLibrary{Library: lib, backend: b, unit: unit}, nil
}

// FailBuilds makes every following build fail with err, or succeed again if err is nil
func (b *CountingBackend) FailBuilds(err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.fail = err
}

// Builds returns the number of builds attempted so far
func (b *CountingBackend) Builds() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.builds)
}

// Units returns the names of the units built so far, in build order
func (b *CountingBackend) Units() []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]string(nil), b.builds...)
}

// Closed returns true iff the unit with the given name has been closed
func (b *CountingBackend) Closed(unit string) bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.closed[unit]
}

type countingLibrary struct {
	native.Library
	backend *CountingBackend
	unit    string
}

func (l *countingLibrary) Close() error {
	l.backend.lock.Lock()
	l.backend.closed[l.unit] = true
	l.backend.lock.Unlock()
	return l.Library.Close()
}

// NewEngine returns an Engine over the local backend, resolving UDFs with reg.
// The Engine is closed when the test completes.
func NewEngine(t testing.TB, reg *udf.Registry, conf engine.Config) (*engine.Engine, *CountingBackend) {
	backend := NewCountingBackend(local.New(reg, nil))
	e, err := engine.New(engine.Params{Config: conf, Backend: backend})
	require.Nil(t, err)
	t.Cleanup(func() {
		require.Nil(t, e.Close())
	})
	return e, backend
}

// Collect runs df and returns its rows, releasing the result view
func Collect(t testing.TB, e *engine.Engine, df fuse.DataFrame) []interface{} {
	view, err := e.Collect(context.Background(), df)
	require.Nil(t, err)
	defer view.Release()
	rows, err := view.Rows()
	require.Nil(t, err)
	return rows
}
