package ucache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-sif/fuse/errors"
	"github.com/go-sif/fuse/internal/native"
	"github.com/go-sif/fuse/schema"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeLibrary struct {
	backend *fakeBackend
	symbols map[string]interface{}
	closed  int32
}

func (l *fakeLibrary) Lookup(symbol string) (interface{}, error) {
	sym, ok := l.symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not found", symbol)
	}
	return sym, nil
}

func (l *fakeLibrary) Close() error {
	atomic.AddInt32(&l.closed, 1)
	atomic.AddInt32(&l.backend.closes, 1)
	return nil
}

// fakeBackend builds units which return their first input buffer as the result
type fakeBackend struct {
	builds    int32
	closes    int32
	frees     int32
	delay     time.Duration
	fail      int32 // when non-zero, builds fail
	panics    bool
	reentrant *bool
	lock      sync.Mutex
	units     []string
	libs      []*fakeLibrary
}

func (b *fakeBackend) Build(ctx context.Context, plan []byte, unit string) (native.Library, error) {
	atomic.AddInt32(&b.builds, 1)
	time.Sleep(b.delay)
	if atomic.LoadInt32(&b.fail) != 0 {
		return nil, &native.BuildError{Unit: unit, Output: "syntax error", Err: fmt.Errorf("exit status 1")}
	}
	lib := &fakeLibrary{backend: b}
	lib.symbols = map[string]interface{}{
		native.GeneratePlanSymbol: func(p []byte, u string) error {
			if u != unit {
				return fmt.Errorf("unexpected unit %s", u)
			}
			return nil
		},
		native.ExecuteSymbol: func(inputs []native.Buffer) (*native.ResultHandle, error) {
			if b.panics {
				panic("segfault")
			}
			if len(inputs) == 0 {
				return &native.ResultHandle{Size: 0}, nil
			}
			return &native.ResultHandle{Data: inputs[0].Data, Size: uint64(inputs[0].Len)}, nil
		},
		native.FreeResultSymbol: func(*native.ResultHandle) {
			atomic.AddInt32(&b.frees, 1)
		},
	}
	if b.reentrant != nil {
		lib.symbols[native.ReentrantSymbol] = b.reentrant
	}
	b.lock.Lock()
	b.units = append(b.units, unit)
	b.libs = append(b.libs, lib)
	b.lock.Unlock()
	return lib, nil
}

func int64Request(fp uint64, values ...int64) Request {
	data := make([]byte, 8*len(values))
	for i, v := range values {
		for j := 0; j < 8; j++ {
			data[i*8+j] = byte(uint64(v) >> (8 * j))
		}
	}
	return Request{
		Plan:        []byte(fmt.Sprintf(`{"plan":%d}`, fp)),
		Fingerprint: fp,
		Inputs:      []native.Buffer{{Data: data, Len: len(values)}},
		Schema:      schema.Int64Type(),
	}
}

func TestExecuteCompilesOncePerFingerprint(t *testing.T) {
	b := &fakeBackend{}
	c, err := New(Config{}, b, nil, nil)
	require.Nil(t, err)
	defer c.Close()

	for i := 0; i < 5; i++ {
		view, err := c.Execute(context.Background(), int64Request(1, 1, 2, 3))
		require.Nil(t, err)
		rows, err := view.Rows()
		require.Nil(t, err)
		require.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, rows)
		view.Release()
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&b.builds))
	require.EqualValues(t, 5, atomic.LoadInt32(&b.frees))

	n, err := c.Count(context.Background(), int64Request(2, 1, 2))
	require.Nil(t, err)
	require.EqualValues(t, 2, n)
	require.EqualValues(t, 2, atomic.LoadInt32(&b.builds))
	require.Equal(t, 2, c.Len())
}

func TestRacingMissesCompileOnce(t *testing.T) {
	b := &fakeBackend{delay: 20 * time.Millisecond}
	c, err := New(Config{MaxConcurrentCompiles: 4}, b, nil, nil)
	require.Nil(t, err)
	defer c.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := c.Count(context.Background(), int64Request(7, 1))
			if err == nil && n != 1 {
				err = fmt.Errorf("expected count 1, got %d", n)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.Nil(t, err)
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&b.builds))
}

func TestUnitNamesEmbedGeneration(t *testing.T) {
	b := &fakeBackend{}
	c, err := New(Config{}, b, nil, nil)
	require.Nil(t, err)
	defer c.Close()
	_, err = c.Count(context.Background(), int64Request(0xab, 1))
	require.Nil(t, err)
	_, err = c.Count(context.Background(), int64Request(0xcd, 1))
	require.Nil(t, err)
	require.Equal(t, []string{"fuse_unit_1_00000000000000ab", "fuse_unit_2_00000000000000cd"}, b.units)
}

func TestCompileFailureIsNotCached(t *testing.T) {
	b := &fakeBackend{fail: 1}
	c, err := New(Config{}, b, nil, nil)
	require.Nil(t, err)
	defer c.Close()

	_, err = c.Execute(context.Background(), int64Request(3, 1))
	require.NotNil(t, err)
	require.True(t, errors.Is(err, errors.ExecutionError{Code: errors.CompileFailed}))
	execErr, ok := err.(errors.ExecutionError)
	require.True(t, ok)
	require.Equal(t, "syntax error", execErr.Diagnostic)
	require.EqualValues(t, 3, execErr.Fingerprint)
	require.Equal(t, 0, c.Len())

	atomic.StoreInt32(&b.fail, 0)
	view, err := c.Execute(context.Background(), int64Request(3, 1))
	require.Nil(t, err)
	view.Release()
	require.EqualValues(t, 2, atomic.LoadInt32(&b.builds))
}

func TestExecutePanicIsNativeFault(t *testing.T) {
	b := &fakeBackend{panics: true}
	c, err := New(Config{}, b, nil, nil)
	require.Nil(t, err)
	defer c.Close()
	_, err = c.Execute(context.Background(), int64Request(4, 1))
	require.True(t, errors.Is(err, errors.ExecutionError{Code: errors.NativeFault}))
	// the unit itself compiled fine and stays cached
	require.Equal(t, 1, c.Len())
}

func TestEvictedUnitClosesAfterLastRelease(t *testing.T) {
	b := &fakeBackend{}
	c, err := New(Config{Capacity: 1}, b, nil, nil)
	require.Nil(t, err)
	defer c.Close()

	view, err := c.Execute(context.Background(), int64Request(5, 1))
	require.Nil(t, err)
	// a second fingerprint pushes the first out of a cache of capacity 1
	_, err = c.Count(context.Background(), int64Request(6, 1))
	require.Nil(t, err)
	require.False(t, c.Contains(5))
	require.EqualValues(t, 0, atomic.LoadInt32(&b.libs[0].closed))

	rows, err := view.Rows()
	require.Nil(t, err)
	require.Equal(t, []interface{}{int64(1)}, rows)
	view.Release()
	require.EqualValues(t, 1, atomic.LoadInt32(&b.libs[0].closed))

	require.True(t, c.Evict(6))
	require.EqualValues(t, 1, atomic.LoadInt32(&b.libs[1].closed))
	_, err = c.Count(context.Background(), int64Request(6, 1))
	require.Nil(t, err)
	require.EqualValues(t, 3, atomic.LoadInt32(&b.builds))
}

func TestNonReentrantUnitsAreSerialized(t *testing.T) {
	reentrant := false
	b := &fakeBackend{reentrant: &reentrant}
	c, err := New(Config{}, b, nil, nil)
	require.Nil(t, err)
	defer c.Close()
	_, err = c.Count(context.Background(), int64Request(8, 1))
	require.Nil(t, err)
	u, ok := c.units.Peek(8)
	require.True(t, ok)
	require.False(t, u.entry.Reentrant)
}

func TestClosedCacheRefusesRequests(t *testing.T) {
	b := &fakeBackend{}
	c, err := New(Config{}, b, nil, nil)
	require.Nil(t, err)
	_, err = c.Count(context.Background(), int64Request(9, 1))
	require.Nil(t, err)
	require.Nil(t, c.Close())
	require.EqualValues(t, 1, atomic.LoadInt32(&b.closes))
	_, err = c.Count(context.Background(), int64Request(9, 1))
	require.Equal(t, errors.ErrCacheClosed, err)
	require.Nil(t, c.Close())
}
