package local

import (
	"fmt"

	"github.com/go-sif/fuse/internal/native"
	"github.com/go-sif/fuse/internal/partition"
	"github.com/go-sif/fuse/schema"
)

// joinStream builds a hash table from one input, keyed by the leading field,
// and probes it with every row of the other
func (p *program) joinStream(op *planOp) (stream, error) {
	left, err := p.streamOf(op.preds[0])
	if err != nil {
		return nil, err
	}
	right, err := p.streamOf(op.preds[1])
	if err != nil {
		return nil, err
	}
	ls, rs := p.ops[op.preds[0]].output, p.ops[op.preds[1]].output
	keySchema := schema.JoinKey(ls)
	hashRight := op.raw.Get("hash_side").String() != "left"
	build, probe := left, right
	buildSchema, probeSchema := ls, rs
	if hashRight {
		build, probe = right, left
		buildSchema, probeSchema = rs, ls
	}
	return func(inputs []native.Buffer, emit emitFn) error {
		table := newKeyIndex()
		err := build(inputs, func(row interface{}) error {
			key := joinKey(buildSchema, row)
			packed, hash, err := keyOf(keySchema, key)
			if err != nil {
				return err
			}
			e := table.get(packed, hash, key, true)
			e.values = append(e.values, joinPayload(buildSchema, row))
			return nil
		})
		if err != nil {
			return err
		}
		return probe(inputs, func(row interface{}) error {
			key := joinKey(probeSchema, row)
			packed, hash, err := keyOf(keySchema, key)
			if err != nil {
				return err
			}
			e := table.get(packed, hash, key, false)
			if e == nil {
				return nil
			}
			probePayload := joinPayload(probeSchema, row)
			for _, buildPayload := range e.values {
				lp, rp := buildPayload.([]interface{}), probePayload
				if hashRight {
					lp, rp = probePayload, buildPayload.([]interface{})
				}
				if err := emit(joinRow(op.output, e.value, lp, rp)); err != nil {
					return err
				}
			}
			return nil
		})
	}, nil
}

func joinKey(s schema.Schema, row interface{}) interface{} {
	if s.IsTuple() && s.NumFields() > 0 {
		return row.([]interface{})[0]
	}
	return row
}

func joinPayload(s schema.Schema, row interface{}) []interface{} {
	if !s.IsTuple() || s.NumFields() < 2 {
		return []interface{}{}
	}
	vals := row.([]interface{})
	out := []interface{}{}
	fields := s.Fields()
	for i := 1; i < len(fields); i++ {
		out = append(out, flattenValue(fields[i], vals[i])...)
	}
	return out
}

func joinRow(out schema.Schema, key interface{}, lp, rp []interface{}) interface{} {
	if !out.IsTuple() {
		return key
	}
	row := make([]interface{}, 0, 1+len(lp)+len(rp))
	row = append(row, key)
	row = append(row, lp...)
	return append(row, rp...)
}

// cartesianStream materializes the right input, then pairs every left row with each right row
func (p *program) cartesianStream(op *planOp) (stream, error) {
	left, err := p.streamOf(op.preds[0])
	if err != nil {
		return nil, err
	}
	right, err := p.streamOf(op.preds[1])
	if err != nil {
		return nil, err
	}
	ls, rs := p.ops[op.preds[0]].output, p.ops[op.preds[1]].output
	return func(inputs []native.Buffer, emit emitFn) error {
		rights := [][]interface{}{}
		err := right(inputs, func(row interface{}) error {
			rights = append(rights, columns(rs, row))
			return nil
		})
		if err != nil {
			return err
		}
		return left(inputs, func(row interface{}) error {
			lcols := columns(ls, row)
			for _, rcols := range rights {
				out := make([]interface{}, 0, len(lcols)+len(rcols))
				out = append(out, lcols...)
				out = append(out, rcols...)
				if err := emit(out); err != nil {
					return err
				}
			}
			return nil
		})
	}, nil
}

// reduceStream folds every row into one, emitting nothing for empty input
func (p *program) reduceStream(op *planOp) (stream, error) {
	if op.fn == nil {
		return nil, fmt.Errorf("operator %d has no func", op.id)
	}
	parent, err := p.streamOf(op.preds[0])
	if err != nil {
		return nil, err
	}
	s := op.output
	args := []schema.Schema{s, s}
	return func(inputs []native.Buffer, emit emitFn) error {
		var acc interface{}
		seen := false
		err := parent(inputs, func(row interface{}) error {
			if !seen {
				acc, seen = row, true
				return nil
			}
			out, err := op.fn.call(op.op, args, acc, row)
			if err != nil {
				return err
			}
			acc, err = partition.Coerce(s, denormalizeValue(s, out))
			return err
		})
		if err != nil || !seen {
			return err
		}
		return emit(acc)
	}, nil
}

// reduceByKeyStream folds together rows sharing a leading key, emitting one row
// per key in order of first appearance
func (p *program) reduceByKeyStream(op *planOp) (stream, error) {
	if op.fn == nil {
		return nil, fmt.Errorf("operator %d has no func", op.id)
	}
	parent, err := p.streamOf(op.preds[0])
	if err != nil {
		return nil, err
	}
	s := op.output
	if !s.IsTuple() || s.NumFields() < 2 {
		return nil, fmt.Errorf("operator %d has unkeyed rows %s", op.id, s)
	}
	fields := s.Fields()
	keySchema := fields[0]
	valueSchema := fields[1]
	if len(fields) > 2 {
		valueSchema = schema.TupleOf(fields[1:]...)
	}
	args := []schema.Schema{valueSchema, valueSchema}
	return func(inputs []native.Buffer, emit emitFn) error {
		groups := newKeyIndex()
		err := parent(inputs, func(row interface{}) error {
			vals := row.([]interface{})
			var value interface{} = vals[1]
			if len(fields) > 2 {
				value = append([]interface{}{}, vals[1:]...)
			}
			packed, hash, err := keyOf(keySchema, vals[0])
			if err != nil {
				return err
			}
			e := groups.get(packed, hash, vals[0], true)
			if len(e.values) == 0 {
				e.values = []interface{}{value}
				return nil
			}
			out, err := op.fn.call(op.op, args, e.values[0], value)
			if err != nil {
				return err
			}
			e.values[0], err = partition.Coerce(valueSchema, denormalizeValue(valueSchema, out))
			return err
		})
		if err != nil {
			return err
		}
		for _, e := range groups.order {
			row := []interface{}{e.value}
			if len(fields) > 2 {
				row = append(row, e.values[0].([]interface{})...)
			} else {
				row = append(row, e.values[0])
			}
			if err := emit(row); err != nil {
				return err
			}
		}
		return nil
	}, nil
}
