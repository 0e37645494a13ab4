package udf

import (
	"fmt"

	"github.com/go-sif/fuse/schema"
)

// Returns is a Typer for functions with a fixed return Schema
func Returns(s schema.Schema) Typer {
	return func(args []schema.Schema) (schema.Schema, error) {
		return s, nil
	}
}

// SameAsArg is a Typer for functions returning the Schema of their i'th argument
func SameAsArg(i int) Typer {
	return func(args []schema.Schema) (schema.Schema, error) {
		if i >= len(args) {
			return schema.Schema{}, fmt.Errorf("function takes %d arguments, but argument %d was requested", len(args), i)
		}
		return args[i], nil
	}
}

// ArrayOfArg is a Typer for flat-map style functions returning n values of their i'th argument
func ArrayOfArg(i int, n int) Typer {
	return func(args []schema.Schema) (schema.Schema, error) {
		if i >= len(args) {
			return schema.Schema{}, fmt.Errorf("function takes %d arguments, but argument %d was requested", len(args), i)
		}
		return schema.ArrayOf(args[i], n), nil
	}
}

// Expecting wraps a Typer so that compilation fails unless the arguments match want
func Expecting(want []schema.Schema, typer Typer) Typer {
	return func(args []schema.Schema) (schema.Schema, error) {
		if len(args) != len(want) {
			return schema.Schema{}, fmt.Errorf("expected %d arguments, got %d", len(want), len(args))
		}
		for i := range want {
			if !want[i].Equal(args[i]) {
				return schema.Schema{}, fmt.Errorf("argument %d: expected %s, got %s", i, want[i], args[i])
			}
		}
		return typer(args)
	}
}
