// Package udf defines the boundary between the operator graph and the compiler
// which turns user-defined functions into code fragments for the native backend.
package udf

import (
	"github.com/go-sif/fuse/schema"
)

// Ref identifies a user-defined function. Source is the function's source text
// (or an equivalent stable listing); it is what fingerprints are computed from,
// so it must be identical across process runs for the same function.
// Generation counts how many times Name has been defined in its Registry, so
// that a redefinition never shares a fingerprint with the function it replaced.
type Ref struct {
	Name       string
	Source     string
	Generation uint64
}

// IsZero returns true iff this Ref does not name a function
func (r Ref) IsZero() bool {
	return r.Name == "" && r.Source == ""
}

// Fragment is an opaque, compiled piece of code produced by a Compiler.
// The operator graph embeds it verbatim in serialized plans.
type Fragment string

// Compiler types a function against argument Schemas and produces a code fragment.
// Implementations return errors.UdfCompileError when the function cannot be typed.
type Compiler interface {
	Compile(ref Ref, args []schema.Schema) (Fragment, schema.Schema, error)
}

// Func is the in-process representation of a UDF. Tuples and arrays are passed
// as []interface{}, scalars as the Go type matching their Kind.
type Func func(args ...interface{}) (interface{}, error)

// Typer infers the return Schema of a UDF from its argument Schemas
type Typer func(args []schema.Schema) (schema.Schema, error)
