package local

import (
	"fmt"

	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/internal/native"
	"github.com/go-sif/fuse/internal/partition"
	"github.com/go-sif/fuse/internal/util"
	"github.com/go-sif/fuse/schema"
	"github.com/go-sif/fuse/udf"
	"github.com/tidwall/gjson"
)

// emitFn receives the rows produced by a stream
type emitFn func(row interface{}) error

// A stream produces every row of an operator, pushing them into emit
type stream func(inputs []native.Buffer, emit emitFn) error

// A step is the body of a fused pipeline: it processes one row, pushing any output rows into emit
type step func(row interface{}, emit emitFn) error

// planOp is one parsed operator of a plan
type planOp struct {
	id     int
	preds  []int
	op     fuse.OpType
	output schema.Schema
	stage  int
	fn     *boundFunc
	raw    gjson.Result
}

// boundFunc is a resolved UDF
type boundFunc struct {
	name string
	fn   udf.Func
	args []schema.Schema
}

// call invokes the UDF with values in the layout of their (unnormalized) Schemas
func (b *boundFunc) call(op fuse.OpType, argSchemas []schema.Schema, args ...interface{}) (interface{}, error) {
	normalized := make([]interface{}, len(args))
	for i, a := range args {
		normalized[i] = normalizeValue(argSchemas[i], a)
	}
	return util.SafeCall(string(op), b.name, b.fn, normalized...)
}

// program is a lowered plan
type program struct {
	action fuse.Action
	ops    []*planOp
	root   stream
}

func compileProgram(plan []byte, registry *udf.Registry) (*program, error) {
	doc := gjson.ParseBytes(plan)
	p := &program{action: fuse.Action(doc.Get("action").String())}
	switch p.action {
	case fuse.CollectAction, fuse.CountAction, fuse.ReduceAction:
	default:
		return nil, fmt.Errorf("unknown action %q", p.action)
	}
	var parseErr error
	doc.Get("dag").ForEach(func(_, raw gjson.Result) bool {
		op, err := parseOp(raw, registry)
		if err != nil {
			parseErr = err
			return false
		}
		if op.id != len(p.ops) {
			parseErr = fmt.Errorf("operator %d is out of order", op.id)
			return false
		}
		for _, pred := range op.preds {
			if pred < 0 || pred >= op.id {
				parseErr = fmt.Errorf("operator %d has invalid predecessor %d", op.id, pred)
				return false
			}
		}
		p.ops = append(p.ops, op)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if len(p.ops) == 0 {
		return nil, fmt.Errorf("plan has no operators")
	}
	root, err := p.streamOf(len(p.ops) - 1)
	if err != nil {
		return nil, err
	}
	p.root = root
	return p, nil
}

func parseOp(raw gjson.Result, registry *udf.Registry) (*planOp, error) {
	op := &planOp{
		id:    int(raw.Get("id").Int()),
		op:    fuse.OpType(raw.Get("op").String()),
		stage: int(raw.Get("stage").Int()),
		raw:   raw,
	}
	for _, pred := range raw.Get("predecessors").Array() {
		op.preds = append(op.preds, int(pred.Int()))
	}
	if len(op.preds) != op.op.NumParents() {
		return nil, fmt.Errorf("operator %d (%s) has %d predecessors", op.id, op.op, len(op.preds))
	}
	if err := op.output.UnmarshalJSON([]byte(raw.Get("output_type").Raw)); err != nil {
		return nil, fmt.Errorf("operator %d: %w", op.id, err)
	}
	if frag := raw.Get("func"); frag.Exists() {
		def, args, _, err := registry.Resolve(udf.Fragment(frag.String()))
		if err != nil {
			return nil, fmt.Errorf("operator %d: %w", op.id, err)
		}
		op.fn = &boundFunc{name: def.Name, fn: def.Fn, args: args}
	}
	return op, nil
}

func isPipe(t fuse.OpType) bool {
	switch t {
	case fuse.MapOpType, fuse.FilterOpType, fuse.FlatMapOpType, fuse.FlattenOpType:
		return true
	}
	return false
}

// streamOf lowers the operator with the given id, and everything feeding it
func (p *program) streamOf(id int) (stream, error) {
	op := p.ops[id]
	if isPipe(op.op) {
		return p.pipelineStream(op)
	}
	switch op.op {
	case fuse.CollectionSourceOpType:
		return collectionStream(op)
	case fuse.RangeSourceOpType:
		return rangeStream(op)
	case fuse.GeneratorSourceOpType:
		return generatorStream(op)
	case fuse.CsvSourceOpType:
		return csvStream(op)
	case fuse.JoinOpType:
		return p.joinStream(op)
	case fuse.CartesianOpType:
		return p.cartesianStream(op)
	case fuse.ReduceOpType:
		return p.reduceStream(op)
	case fuse.ReduceByKeyOpType:
		return p.reduceByKeyStream(op)
	}
	return nil, fmt.Errorf("operator %d has unknown type %q", op.id, op.op)
}

// pipelineStream fuses the run of pipe operators of one stage ending at last into a single step
func (p *program) pipelineStream(last *planOp) (stream, error) {
	run := []*planOp{}
	cur := last
	for isPipe(cur.op) && cur.stage == last.stage {
		run = append([]*planOp{cur}, run...)
		cur = p.ops[cur.preds[0]]
	}
	base, err := p.streamOf(cur.id)
	if err != nil {
		return nil, err
	}
	body := step(func(row interface{}, emit emitFn) error {
		return emit(row)
	})
	inSchema := cur.output
	schemas := make([]schema.Schema, len(run))
	for i, op := range run {
		schemas[i] = inSchema
		inSchema = op.output
	}
	for i := len(run) - 1; i >= 0; i-- {
		body, err = lowerPipe(run[i], schemas[i], body)
		if err != nil {
			return nil, err
		}
	}
	return func(inputs []native.Buffer, emit emitFn) error {
		return base(inputs, func(row interface{}) error {
			return body(row, emit)
		})
	}, nil
}

// lowerPipe wraps next with one pipe operator, whose input rows have Schema in
func lowerPipe(op *planOp, in schema.Schema, next step) (step, error) {
	if op.op != fuse.FlattenOpType && op.fn == nil {
		return nil, fmt.Errorf("operator %d (%s) has no func", op.id, op.op)
	}
	args := []schema.Schema{in}
	switch op.op {
	case fuse.MapOpType:
		return func(row interface{}, emit emitFn) error {
			out, err := op.fn.call(op.op, args, row)
			if err != nil {
				return err
			}
			if out, err = partition.Coerce(op.output, out); err != nil {
				return err
			}
			return next(out, emit)
		}, nil
	case fuse.FilterOpType:
		return func(row interface{}, emit emitFn) error {
			keep, err := op.fn.call(op.op, args, row)
			if err != nil {
				return err
			}
			b, ok := keep.(bool)
			if !ok {
				return fmt.Errorf("filter %s returned %T, not bool", op.fn.name, keep)
			}
			if !b {
				return nil
			}
			return next(row, emit)
		}, nil
	case fuse.FlatMapOpType:
		return func(row interface{}, emit emitFn) error {
			out, err := op.fn.call(op.op, args, row)
			if err != nil {
				return err
			}
			elems, ok := out.([]interface{})
			if !ok {
				return fmt.Errorf("flat_map %s returned %T, not an array", op.fn.name, out)
			}
			for _, e := range elems {
				v, err := partition.Coerce(op.output, e)
				if err != nil {
					return err
				}
				if err := next(v, emit); err != nil {
					return err
				}
			}
			return nil
		}, nil
	case fuse.FlattenOpType:
		return func(row interface{}, emit emitFn) error {
			elems, ok := row.([]interface{})
			if !ok {
				return fmt.Errorf("flatten received %T, not an array", row)
			}
			for _, e := range elems {
				if err := next(e, emit); err != nil {
					return err
				}
			}
			return nil
		}, nil
	}
	return nil, fmt.Errorf("operator %d has unknown pipe type %q", op.id, op.op)
}

// run executes the program against its input buffers
func (p *program) run(inputs []native.Buffer) (*native.ResultHandle, error) {
	if p.action == fuse.CountAction {
		var n uint64
		err := p.root(inputs, func(interface{}) error {
			n++
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &native.ResultHandle{Size: n}, nil
	}
	out := p.ops[len(p.ops)-1].output
	part := partition.CreatePartition(out, 64)
	err := p.root(inputs, func(row interface{}) error {
		return part.AppendRow(row)
	})
	if err != nil {
		return nil, err
	}
	return &native.ResultHandle{Data: part.Bytes(), Size: uint64(part.GetNumRows())}, nil
}
