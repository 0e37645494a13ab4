// Package native defines the boundary between the compilation cache and compiled
// units: the entry points every unit exports, and the backends which build them.
package native

import (
	"context"
	"fmt"
)

const (
	// GeneratePlanSymbol builds a unit's code for a serialized plan. It is called once per unit.
	GeneratePlanSymbol = "GeneratePlan"
	// ExecuteSymbol runs a unit against its input buffers
	ExecuteSymbol = "Execute"
	// FreeResultSymbol reclaims the memory of a ResultHandle returned by Execute
	FreeResultSymbol = "FreeResult"
	// ReentrantSymbol is an optional *bool. Units which export it as false are never executed concurrently.
	ReentrantSymbol = "Reentrant"
)

// Buffer describes one input of a unit: Len packed records stored in Data
type Buffer struct {
	Data []byte
	Len  int
}

// ResultHandle is the raw result of executing a unit. For collect and reduce
// actions, Data holds Size packed records of the plan's output type. For count
// actions, Data is nil and Size is the count.
type ResultHandle struct {
	Data []byte
	Size uint64
}

// EntryPoints are the functions exported by a compiled unit
type EntryPoints struct {
	GeneratePlan func(plan []byte, unit string) error
	Execute      func(inputs []Buffer) (*ResultHandle, error)
	FreeResult   func(handle *ResultHandle)
	Reentrant    bool
}

// A Library is a loaded compiled unit
type Library interface {
	Lookup(symbol string) (interface{}, error) // Lookup returns an exported symbol of this Library
	Close() error                              // Close releases the resources held by this Library. It is never called while a result of the Library is live.
}

// A Backend builds Libraries from serialized plans. unit is unique per build
// within a process, and may be used to name artifacts.
type Backend interface {
	Build(ctx context.Context, plan []byte, unit string) (Library, error)
}

// BuildError occurs when a Backend cannot build a unit. Output holds the
// diagnostics produced by the build.
type BuildError struct {
	Unit   string
	Output string
	Err    error
}

// Error returns a textual representation of this BuildError
func (e *BuildError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("unable to build unit %s: %v", e.Unit, e.Err)
	}
	return fmt.Sprintf("unable to build unit %s: %v\n%s", e.Unit, e.Err, e.Output)
}

// Unwrap returns the underlying cause
func (e *BuildError) Unwrap() error {
	return e.Err
}

// Bind looks up the entry points of lib
func Bind(lib Library) (*EntryPoints, error) {
	ep := &EntryPoints{Reentrant: true}
	sym, err := lib.Lookup(GeneratePlanSymbol)
	if err != nil {
		return nil, err
	}
	var ok bool
	if ep.GeneratePlan, ok = sym.(func([]byte, string) error); !ok {
		return nil, fmt.Errorf("symbol %s has unexpected type %T", GeneratePlanSymbol, sym)
	}
	if sym, err = lib.Lookup(ExecuteSymbol); err != nil {
		return nil, err
	}
	if ep.Execute, ok = sym.(func([]Buffer) (*ResultHandle, error)); !ok {
		return nil, fmt.Errorf("symbol %s has unexpected type %T", ExecuteSymbol, sym)
	}
	if sym, err = lib.Lookup(FreeResultSymbol); err != nil {
		return nil, err
	}
	if ep.FreeResult, ok = sym.(func(*ResultHandle)); !ok {
		return nil, fmt.Errorf("symbol %s has unexpected type %T", FreeResultSymbol, sym)
	}
	// Reentrant is optional
	if sym, err = lib.Lookup(ReentrantSymbol); err == nil {
		reentrant, ok := sym.(*bool)
		if !ok {
			return nil, fmt.Errorf("symbol %s has unexpected type %T", ReentrantSymbol, sym)
		}
		ep.Reentrant = *reentrant
	}
	return ep, nil
}
