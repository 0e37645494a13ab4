package dataframe

import (
	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/errors"
	"github.com/go-sif/fuse/schema"
	"github.com/go-sif/fuse/udf"
)

// compile types fn against the normalized argument Schemas
func compile(compiler udf.Compiler, fn udf.Ref, args ...schema.Schema) (udf.Fragment, schema.Schema, error) {
	if compiler == nil {
		return "", schema.Schema{}, errors.UdfCompileError{Name: fn.Name, Reason: "no udf compiler is configured"}
	}
	normalized := make([]schema.Schema, len(args))
	for i, a := range args {
		normalized[i] = a.Normalize()
	}
	return compiler.Compile(fn, normalized)
}

func parentOf(d fuse.DataFrame, op fuse.OpType) (*dataFrameImpl, error) {
	if d == nil {
		return nil, errors.SchemaError{Code: errors.WrongParentCount, Op: string(op), Detail: "parent must not be nil"}
	}
	return asImpl(d)
}

// Map returns a DataFrame which transforms each row of d with fn
func Map(d fuse.DataFrame, fn udf.Ref) (fuse.DataFrame, error) {
	parent, err := parentOf(d, fuse.MapOpType)
	if err != nil {
		return nil, err
	}
	frag, ret, err := compile(parent.compiler, fn, parent.schema)
	if err != nil {
		return nil, err
	}
	df := newNode(fuse.MapOpType, parent.compiler, ret, parent)
	df.fn = fn
	df.fragment = frag
	return df, nil
}

// Filter returns a DataFrame which keeps the rows of d for which fn returns true
func Filter(d fuse.DataFrame, fn udf.Ref) (fuse.DataFrame, error) {
	parent, err := parentOf(d, fuse.FilterOpType)
	if err != nil {
		return nil, err
	}
	frag, ret, err := compile(parent.compiler, fn, parent.schema)
	if err != nil {
		return nil, err
	}
	if ret.Kind() != schema.Bool {
		return nil, errors.SchemaError{
			Code:     errors.FilterMustReturnBool,
			Op:       string(fuse.FilterOpType),
			Expected: schema.BoolType().String(),
			Found:    ret.String(),
			Detail:   fn.Name,
		}
	}
	df := newNode(fuse.FilterOpType, parent.compiler, parent.schema, parent)
	df.fn = fn
	df.fragment = frag
	return df, nil
}

// FlatMap returns a DataFrame which replaces each row of d with the elements of
// the array fn returns for it
func FlatMap(d fuse.DataFrame, fn udf.Ref) (fuse.DataFrame, error) {
	parent, err := parentOf(d, fuse.FlatMapOpType)
	if err != nil {
		return nil, err
	}
	frag, ret, err := compile(parent.compiler, fn, parent.schema)
	if err != nil {
		return nil, err
	}
	if !ret.IsArray() {
		return nil, errors.SchemaError{
			Code:     errors.FlatMapMustReturnArray,
			Op:       string(fuse.FlatMapOpType),
			Expected: "[...]",
			Found:    ret.String(),
			Detail:   fn.Name,
		}
	}
	df := newNode(fuse.FlatMapOpType, parent.compiler, ret.Elem(), parent)
	df.fn = fn
	df.fragment = frag
	return df, nil
}

// Flatten returns a DataFrame which replaces each array row of d with its elements
func Flatten(d fuse.DataFrame) (fuse.DataFrame, error) {
	parent, err := parentOf(d, fuse.FlattenOpType)
	if err != nil {
		return nil, err
	}
	if !parent.schema.IsArray() {
		return nil, errors.SchemaError{
			Code:     errors.FlattenRequiresArray,
			Op:       string(fuse.FlattenOpType),
			Expected: "[...]",
			Found:    parent.schema.String(),
		}
	}
	return newNode(fuse.FlattenOpType, parent.compiler, parent.schema.Elem(), parent), nil
}

// Join returns a DataFrame which equi-joins left and right on their leading field.
// hashRight selects the input the hash table is built from; the other input probes it.
func Join(left, right fuse.DataFrame, hashRight bool) (fuse.DataFrame, error) {
	l, err := parentOf(left, fuse.JoinOpType)
	if err != nil {
		return nil, err
	}
	r, err := parentOf(right, fuse.JoinOpType)
	if err != nil {
		return nil, err
	}
	out, ok := schema.JoinOutput(l.schema, r.schema)
	if !ok {
		return nil, errors.SchemaError{
			Code:     errors.JoinKeyMismatch,
			Op:       string(fuse.JoinOpType),
			Expected: schema.JoinKey(l.schema).String(),
			Found:    schema.JoinKey(r.schema).String(),
		}
	}
	df := newNode(fuse.JoinOpType, l.compiler, out, l, r)
	df.hashRight = hashRight
	return df, nil
}

// Cartesian returns a DataFrame which produces every pairing of a row of left with a row of right
func Cartesian(left, right fuse.DataFrame) (fuse.DataFrame, error) {
	l, err := parentOf(left, fuse.CartesianOpType)
	if err != nil {
		return nil, err
	}
	r, err := parentOf(right, fuse.CartesianOpType)
	if err != nil {
		return nil, err
	}
	return newNode(fuse.CartesianOpType, l.compiler, schema.CartesianOutput(l.schema, r.schema), l, r), nil
}

// Reduce returns a DataFrame which folds every row of d into one using fn,
// which must return the Schema of its arguments
func Reduce(d fuse.DataFrame, fn udf.Ref) (fuse.DataFrame, error) {
	parent, err := parentOf(d, fuse.ReduceOpType)
	if err != nil {
		return nil, err
	}
	frag, ret, err := compile(parent.compiler, fn, parent.schema, parent.schema)
	if err != nil {
		return nil, err
	}
	if expected := parent.schema.Normalize(); !ret.Normalize().Equal(expected) {
		return nil, errors.SchemaError{
			Code:     errors.ReduceTypeMismatch,
			Op:       string(fuse.ReduceOpType),
			Expected: expected.String(),
			Found:    ret.String(),
			Detail:   fn.Name,
		}
	}
	df := newNode(fuse.ReduceOpType, parent.compiler, parent.schema, parent)
	df.fn = fn
	df.fragment = frag
	return df, nil
}

// ReduceByKey returns a DataFrame which folds together the rows of d sharing a
// leading key field. fn receives and returns the remaining (value) fields.
func ReduceByKey(d fuse.DataFrame, fn udf.Ref) (fuse.DataFrame, error) {
	parent, err := parentOf(d, fuse.ReduceByKeyOpType)
	if err != nil {
		return nil, err
	}
	value, ok := keyedValue(parent.schema)
	if !ok {
		return nil, errors.SchemaError{
			Code:     errors.ReduceByKeyRequiresKey,
			Op:       string(fuse.ReduceByKeyOpType),
			Expected: "(key, value...)",
			Found:    parent.schema.String(),
		}
	}
	frag, ret, err := compile(parent.compiler, fn, value, value)
	if err != nil {
		return nil, err
	}
	if expected := value.Normalize(); !ret.Normalize().Equal(expected) {
		return nil, errors.SchemaError{
			Code:     errors.ReduceTypeMismatch,
			Op:       string(fuse.ReduceByKeyOpType),
			Expected: expected.String(),
			Found:    ret.String(),
			Detail:   fn.Name,
		}
	}
	df := newNode(fuse.ReduceByKeyOpType, parent.compiler, parent.schema, parent)
	df.fn = fn
	df.fragment = frag
	return df, nil
}

// keyedValue returns the value part of a (key, value...) row Schema: the single
// value field, or a tuple of all of them
func keyedValue(s schema.Schema) (schema.Schema, bool) {
	if !s.IsTuple() || s.NumFields() < 2 {
		return schema.Schema{}, false
	}
	fields := s.Fields()
	if len(fields) == 2 {
		return fields[1], true
	}
	return schema.TupleOf(fields[1:]...), true
}
