// Package ucache implements the compilation cache: a process-wide map from plan
// fingerprints to compiled units, guaranteeing that each fingerprint is built by
// the native backend at most once while its unit stays cached.
package ucache

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docker/docker/pkg/locker"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/errors"
	"github.com/go-sif/fuse/internal/native"
	"github.com/go-sif/fuse/internal/stats"
	"github.com/go-sif/fuse/internal/util"
	"github.com/go-sif/fuse/schema"
	"github.com/hashicorp/go-multierror"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/semaphore"
)

// Config configures a Cache
type Config struct {
	Capacity              int   // maximum number of cached units, unbounded if <= 0
	MaxConcurrentCompiles int64 // maximum number of concurrent backend builds, 1 if <= 0
}

// A Request asks the Cache to run a serialized plan
type Request struct {
	Plan        []byte
	Fingerprint uint64
	Inputs      []native.Buffer
	Schema      schema.Schema // the Schema of the plan's output rows
}

// Cache maps plan fingerprints to compiled units
type Cache struct {
	backend    native.Backend
	logger     log.Logger
	metrics    *stats.Metrics
	compiling  *locker.Locker
	compiles   *semaphore.Weighted
	generation uint64

	lock   sync.Mutex // guards units and closed
	units  *lru.Cache[uint64, *unit]
	closed bool

	errLock  sync.Mutex
	closeErr *multierror.Error // errors closing units evicted during Close
}

// New creates a Cache which builds units with backend
func New(conf Config, backend native.Backend, logger log.Logger, metrics *stats.Metrics) (*Cache, error) {
	if backend == nil {
		return nil, fmt.Errorf("a native backend is required")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if metrics == nil {
		metrics = stats.NewMetrics(nil)
	}
	capacity := conf.Capacity
	if capacity <= 0 {
		capacity = math.MaxInt32
	}
	maxCompiles := conf.MaxConcurrentCompiles
	if maxCompiles <= 0 {
		maxCompiles = 1
	}
	c := &Cache{
		backend:   backend,
		logger:    logger,
		metrics:   metrics,
		compiling: locker.New(),
		compiles:  semaphore.NewWeighted(maxCompiles),
	}
	units, err := lru.NewWithEvict[uint64, *unit](capacity, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.units = units
	return c, nil
}

// Execute runs the plan of req, compiling it first if its fingerprint has not been
// seen. The returned ResultView keeps the unit alive until it is released.
func (c *Cache) Execute(ctx context.Context, req Request) (fuse.ResultView, error) {
	u, err := c.acquire(ctx, req)
	if err != nil {
		return fuse.ResultView{}, err
	}
	res, err := u.execute(req.Inputs)
	if err != nil {
		u.release()
		return fuse.ResultView{}, errors.ExecutionError{Code: errors.NativeFault, Fingerprint: req.Fingerprint, Unit: u.name, Err: err}
	}
	c.metrics.LiveResults.Inc()
	return fuse.NewResultView(res.Data, int(res.Size), req.Schema, func() {
		u.entry.FreeResult(res)
		c.metrics.LiveResults.Dec()
		u.release()
	}), nil
}

// Count runs the plan of a count action, compiling it first if its fingerprint has not been seen
func (c *Cache) Count(ctx context.Context, req Request) (uint64, error) {
	u, err := c.acquire(ctx, req)
	if err != nil {
		return 0, err
	}
	defer u.release()
	res, err := u.execute(req.Inputs)
	if err != nil {
		return 0, errors.ExecutionError{Code: errors.NativeFault, Fingerprint: req.Fingerprint, Unit: u.name, Err: err}
	}
	n := res.Size
	u.entry.FreeResult(res)
	return n, nil
}

// Contains returns true iff a unit for fingerprint is cached
func (c *Cache) Contains(fingerprint uint64) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.units.Contains(fingerprint)
}

// Len returns the number of cached units
func (c *Cache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.units.Len()
}

// Evict removes the unit for fingerprint from the Cache. The unit is closed once
// no results depend on it; a later request for fingerprint compiles it again.
func (c *Cache) Evict(fingerprint uint64) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	removed := c.units.Remove(fingerprint)
	c.metrics.CachedUnits.Set(float64(c.units.Len()))
	return removed
}

// Close evicts every unit and refuses further requests. Units with live results
// are closed when their last result is released.
func (c *Cache) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.units.Purge()
	c.metrics.CachedUnits.Set(0)
	c.errLock.Lock()
	defer c.errLock.Unlock()
	return c.closeErr.ErrorOrNil()
}

// acquire returns the unit for req, retained once on behalf of the caller
func (c *Cache) acquire(ctx context.Context, req Request) (*unit, error) {
	if u, err := c.lookup(req.Fingerprint); u != nil || err != nil {
		return u, err
	}
	// at most one build per fingerprint: racing misses wait here, then hit
	key := fmt.Sprintf("%016x", req.Fingerprint)
	c.compiling.Lock(key)
	defer c.compiling.Unlock(key)
	if u, err := c.lookup(req.Fingerprint); u != nil || err != nil {
		return u, err
	}
	c.metrics.CacheLookups.WithLabelValues("miss").Inc()
	u, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		if err := u.lib.Close(); err != nil {
			level.Warn(c.logger).Log("msg", "unable to close unit", "unit", u.name, "err", err)
		}
		return nil, errors.ErrCacheClosed
	}
	u.retain()
	c.units.Add(req.Fingerprint, u)
	c.metrics.CachedUnits.Set(float64(c.units.Len()))
	return u, nil
}

// lookup returns the cached unit for fingerprint, retained, or nil on a miss
func (c *Cache) lookup(fingerprint uint64) (*unit, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return nil, errors.ErrCacheClosed
	}
	u, ok := c.units.Get(fingerprint)
	if !ok {
		return nil, nil
	}
	u.retain()
	c.metrics.CacheLookups.WithLabelValues("hit").Inc()
	return u, nil
}

// build compiles, loads and initializes a new unit. Failures are never cached.
func (c *Cache) build(ctx context.Context, req Request) (*unit, error) {
	if err := c.compiles.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.compiles.Release(1)

	gen := atomic.AddUint64(&c.generation, 1)
	name := fmt.Sprintf("fuse_unit_%d_%016x", gen, req.Fingerprint)
	logger := log.With(c.logger, "unit", name)
	start := time.Now()
	fail := func(err error) (*unit, error) {
		c.metrics.CompileFailures.Inc()
		level.Error(logger).Log("msg", "unable to build unit", "err", err)
		diagnostic := ""
		var buildErr *native.BuildError
		if errors.As(err, &buildErr) {
			diagnostic = buildErr.Output
		}
		return nil, errors.ExecutionError{
			Code:        errors.CompileFailed,
			Fingerprint: req.Fingerprint,
			Unit:        name,
			Diagnostic:  diagnostic,
			Err:         err,
		}
	}

	c.metrics.Compiles.Inc()
	lib, err := c.backend.Build(ctx, req.Plan, name)
	if err != nil {
		return fail(err)
	}
	entry, err := native.Bind(lib)
	if err == nil {
		err = util.SafeInvoke("GeneratePlan", func() error {
			return entry.GeneratePlan(req.Plan, name)
		})
	}
	if err != nil {
		if closeErr := lib.Close(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
		return fail(err)
	}
	elapsed := time.Since(start)
	c.metrics.CompileDuration.Observe(elapsed.Seconds())
	level.Debug(logger).Log("msg", "built unit", "duration", elapsed, "reentrant", entry.Reentrant)
	return &unit{
		fingerprint: req.Fingerprint,
		name:        name,
		lib:         lib,
		entry:       entry,
		logger:      logger,
	}, nil
}

// onEvict is invoked by the lru, with c.lock held, whenever a unit leaves the cache
func (c *Cache) onEvict(fingerprint uint64, u *unit) {
	c.metrics.Evictions.Inc()
	if err := u.evict(); err != nil {
		level.Warn(c.logger).Log("msg", "unable to close evicted unit", "unit", u.name, "err", err)
		if c.closed {
			c.errLock.Lock()
			c.closeErr = multierror.Append(c.closeErr, err)
			c.errLock.Unlock()
		}
	}
}
