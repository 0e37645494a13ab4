package udf

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	ferrors "github.com/go-sif/fuse/errors"
	"github.com/go-sif/fuse/schema"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Definition is a UDF registered with a Registry
type Definition struct {
	Ref
	Fn    Func
	Typer Typer
}

// fragment is the JSON layout of a Fragment produced by a Registry
type fragment struct {
	Symbol     string          `json:"symbol"`
	SourceHash string          `json:"source_hash"`
	Args       []schema.Schema `json:"args"`
	Returns    schema.Schema   `json:"returns"`
}

// Registry is an in-process Compiler for Go functions. Fragments it produces
// name the registered symbol, so a backend sharing the Registry can Resolve them.
type Registry struct {
	lock sync.RWMutex
	defs map[string]*Definition
	gens map[string]uint64
}

// NewRegistry returns an empty Registry
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition), gens: make(map[string]uint64)}
}

// Define registers fn under name and returns a Ref to it. source should be the
// function's source text; it defaults to name. Redefining a name replaces the
// previous Definition and bumps its Generation, so Refs to the old function stop
// compiling and graphs using the new one fingerprint differently.
func (r *Registry) Define(name string, source string, typer Typer, fn Func) Ref {
	if source == "" {
		source = name
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.gens[name]++
	ref := Ref{Name: name, Source: source, Generation: r.gens[name]}
	r.defs[name] = &Definition{Ref: ref, Fn: fn, Typer: typer}
	return ref
}

// Lookup returns the Definition registered under name
func (r *Registry) Lookup(name string) (*Definition, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Compile types ref against args, producing a Fragment which names the registered symbol
func (r *Registry) Compile(ref Ref, args []schema.Schema) (Fragment, schema.Schema, error) {
	if ref.IsZero() {
		return "", schema.Schema{}, ferrors.UdfCompileError{Args: formatArgs(args), Reason: "no function given"}
	}
	def, ok := r.Lookup(ref.Name)
	if !ok {
		return "", schema.Schema{}, ferrors.UdfCompileError{Name: ref.Name, Args: formatArgs(args), Reason: "function is not defined"}
	}
	if def.Source != ref.Source {
		return "", schema.Schema{}, ferrors.UdfCompileError{Name: ref.Name, Args: formatArgs(args), Reason: "function source does not match its definition"}
	}
	if def.Generation != ref.Generation {
		return "", schema.Schema{}, ferrors.UdfCompileError{Name: ref.Name, Args: formatArgs(args), Reason: "function has been redefined"}
	}
	if def.Typer == nil {
		return "", schema.Schema{}, ferrors.UdfCompileError{Name: ref.Name, Args: formatArgs(args), Reason: "function has no typer"}
	}
	ret, err := def.Typer(args)
	if err != nil {
		return "", schema.Schema{}, ferrors.UdfCompileError{Name: ref.Name, Args: formatArgs(args), Reason: "cannot infer return type", Err: err}
	}
	if !ret.IsValid() {
		return "", schema.Schema{}, ferrors.UdfCompileError{Name: ref.Name, Args: formatArgs(args), Reason: "inferred return type is invalid"}
	}
	if args == nil {
		args = []schema.Schema{}
	}
	data, err := json.Marshal(fragment{
		Symbol:     ref.Name,
		SourceHash: sourceHash(ref),
		Args:       args,
		Returns:    ret,
	})
	if err != nil {
		return "", schema.Schema{}, ferrors.UdfCompileError{Name: ref.Name, Args: formatArgs(args), Reason: "cannot encode fragment", Err: err}
	}
	return Fragment(data), ret, nil
}

// Resolve returns the Definition a Fragment refers to, along with the argument
// and return Schemas it was compiled for
func (r *Registry) Resolve(frag Fragment) (*Definition, []schema.Schema, schema.Schema, error) {
	var f fragment
	if err := json.Unmarshal([]byte(frag), &f); err != nil {
		return nil, nil, schema.Schema{}, fmt.Errorf("malformed fragment: %w", err)
	}
	def, ok := r.Lookup(f.Symbol)
	if !ok {
		return nil, nil, schema.Schema{}, fmt.Errorf("fragment refers to undefined function %s", f.Symbol)
	}
	if sourceHash(def.Ref) != f.SourceHash {
		return nil, nil, schema.Schema{}, fmt.Errorf("function %s has been redefined since it was compiled", f.Symbol)
	}
	return def, f.Args, f.Returns, nil
}

// sourceHash identifies one definition of a function
func sourceHash(ref Ref) string {
	h := xxhash.New()
	h.WriteString(ref.Source)
	var gen [8]byte
	binary.LittleEndian.PutUint64(gen[:], ref.Generation)
	h.Write(gen[:])
	return fmt.Sprintf("%016x", h.Sum64())
}

func formatArgs(args []schema.Schema) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
