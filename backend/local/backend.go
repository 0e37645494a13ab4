// Package local provides an in-process native backend. Each unit parses its plan
// and lowers every stage into Go closures, one fused closure per pipeline stage,
// calling UDFs registered with a udf.Registry.
package local

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/fuse/internal/native"
	"github.com/go-sif/fuse/udf"
	"github.com/tidwall/gjson"
)

// Backend builds in-process units for plans whose UDFs are registered with a Registry
type Backend struct {
	registry *udf.Registry
	logger   log.Logger
	builds   int64
	live     int64
}

// New creates a Backend resolving UDF fragments with registry
func New(registry *udf.Registry, logger log.Logger) *Backend {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Backend{registry: registry, logger: logger}
}

// Builds returns the number of units this Backend has built
func (b *Backend) Builds() int {
	return int(atomic.LoadInt64(&b.builds))
}

// LiveResults returns the number of results which have not been freed
func (b *Backend) LiveResults() int {
	return int(atomic.LoadInt64(&b.live))
}

// Build checks that plan is well-formed and returns an unloaded unit for it.
// The unit's GeneratePlan entry point does the actual lowering.
func (b *Backend) Build(ctx context.Context, plan []byte, unit string) (native.Library, error) {
	if err := ctx.Err(); err != nil {
		return nil, &native.BuildError{Unit: unit, Err: err}
	}
	if !gjson.ValidBytes(plan) {
		return nil, &native.BuildError{Unit: unit, Output: "plan is not valid JSON", Err: fmt.Errorf("malformed plan")}
	}
	atomic.AddInt64(&b.builds, 1)
	level.Debug(b.logger).Log("msg", "built local unit", "unit", unit, "bytes", len(plan))
	return &library{backend: b, unit: unit, results: make(map[*native.ResultHandle]struct{})}, nil
}

// library is an in-process unit
type library struct {
	backend *Backend
	unit    string
	prog    *program

	lock    sync.Mutex
	results map[*native.ResultHandle]struct{}
	closed  bool
}

// Lookup returns the entry points of this unit
func (l *library) Lookup(symbol string) (interface{}, error) {
	switch symbol {
	case native.GeneratePlanSymbol:
		return l.generatePlan, nil
	case native.ExecuteSymbol:
		return l.execute, nil
	case native.FreeResultSymbol:
		return l.freeResult, nil
	}
	return nil, fmt.Errorf("unit %s does not export %s", l.unit, symbol)
}

// Close releases this unit. Results must have been freed beforehand.
func (l *library) Close() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.closed = true
	if n := len(l.results); n > 0 {
		return fmt.Errorf("unit %s closed with %d live results", l.unit, n)
	}
	return nil
}

func (l *library) generatePlan(plan []byte, unit string) error {
	if unit != l.unit {
		return fmt.Errorf("unit %s cannot generate code for unit %s", l.unit, unit)
	}
	prog, err := compileProgram(plan, l.backend.registry)
	if err != nil {
		return err
	}
	l.prog = prog
	return nil
}

func (l *library) execute(inputs []native.Buffer) (*native.ResultHandle, error) {
	l.lock.Lock()
	closed := l.closed
	l.lock.Unlock()
	if closed {
		return nil, fmt.Errorf("unit %s is closed", l.unit)
	}
	if l.prog == nil {
		return nil, fmt.Errorf("unit %s has not generated a plan", l.unit)
	}
	res, err := l.prog.run(inputs)
	if err != nil {
		return nil, err
	}
	l.lock.Lock()
	l.results[res] = struct{}{}
	l.lock.Unlock()
	atomic.AddInt64(&l.backend.live, 1)
	return res, nil
}

func (l *library) freeResult(res *native.ResultHandle) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if _, ok := l.results[res]; !ok {
		return
	}
	delete(l.results, res)
	res.Data = nil
	atomic.AddInt64(&l.backend.live, -1)
}
