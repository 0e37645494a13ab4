package dataframe

import (
	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/errors"
	"github.com/go-sif/fuse/internal/native"
	"github.com/go-sif/fuse/schema"
	"github.com/go-sif/fuse/udf"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WireOp is one operator of a serialized plan. Field order is fixed, so equal
// plans always serialize to identical bytes.
type WireOp struct {
	ID           int            `json:"id"`
	Predecessors []int          `json:"predecessors"`
	Op           fuse.OpType    `json:"op"`
	OutputType   schema.Schema  `json:"output_type"`
	Stage        int            `json:"stage"`
	Depth        int            `json:"depth,omitempty"`
	Func         udf.Fragment   `json:"func,omitempty"`
	InputType    *schema.Schema `json:"input_type,omitempty"`
	AddIndex     *bool          `json:"add_index,omitempty"`
	Input        *int           `json:"input,omitempty"`
	From         *int64         `json:"from,omitempty"`
	To           *int64         `json:"to,omitempty"`
	Step         *int64         `json:"step,omitempty"`
	Path         string         `json:"path,omitempty"`
	Filters      []int          `json:"filters,omitempty"`
	HeaderLines  int            `json:"header_lines,omitempty"`
	Delimiter    string         `json:"delimiter,omitempty"`
	Comment      string         `json:"comment,omitempty"`
	HashSide     string         `json:"hash_side,omitempty"`
}

// WirePlan is the document handed to a native backend
type WirePlan struct {
	Action fuse.Action `json:"action"`
	Dag    []WireOp    `json:"dag"`
}

// A SerializedPlan is everything the compilation cache needs to build and run a plan
type SerializedPlan struct {
	JSON         []byte
	Fingerprint  uint64
	Action       fuse.Action
	Inputs       []native.Buffer // collection inputs, in "input" index order
	OutputSchema schema.Schema
	NumStages    int // excluding empty stages
	Graph        *StageGraph
}

// serializer holds the state of one serialization pass
type serializer struct {
	ops       []WireOp
	inputs    []native.Buffer
	emitted   map[*stageImpl]int
	numStages int
}

// Serialize lowers a StageGraph to the wire format. Operators are numbered in
// post-order from the terminal stage, visiting source stages in parent order,
// and empty stages are elided.
func (g *StageGraph) Serialize(action fuse.Action) (*SerializedPlan, error) {
	s := &serializer{
		ops:     []WireOp{},
		inputs:  []native.Buffer{},
		emitted: make(map[*stageImpl]int),
	}
	last, err := s.emit(g.terminal)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(WirePlan{Action: action, Dag: s.ops})
	if err != nil {
		return nil, err
	}
	fp := combine(string(action), newFingerprinter().of(g.root))
	return &SerializedPlan{
		JSON:         data,
		Fingerprint:  fp,
		Action:       action,
		Inputs:       s.inputs,
		OutputSchema: s.ops[last].OutputType,
		NumStages:    s.numStages,
		Graph:        g,
	}, nil
}

// emit serializes st and the stages feeding it, returning the id of st's last operator
func (s *serializer) emit(st *stageImpl) (int, error) {
	if id, ok := s.emitted[st]; ok {
		return id, nil
	}
	preds := make([]int, 0, len(st.sourceStages))
	for _, src := range st.sourceStages {
		id, err := s.emit(src)
		if err != nil {
			return 0, err
		}
		preds = append(preds, id)
	}
	var last int
	switch st.kind {
	case EmptyStage:
		if len(preds) != 1 {
			return 0, errors.SchedulerError{Code: errors.MissingBreakerAncestor, Stage: st.id, Op: "empty"}
		}
		last = preds[0]
	case PipelineStage:
		s.numStages++
		switch {
		case st.source != nil:
			last = s.add(s.sourceOp(st.id, st.source))
		case len(preds) == 1:
			last = preds[0]
		default:
			return 0, errors.SchedulerError{Code: errors.MissingBreakerAncestor, Stage: st.id, Op: "pipeline"}
		}
		for _, instr := range st.program {
			op := s.pipeOp(st.id, instr)
			op.Predecessors = []int{last}
			last = s.add(op)
		}
	case BreakerStage:
		s.numStages++
		if len(preds) != st.breaker.opType.NumParents() {
			return 0, errors.SchedulerError{Code: errors.MissingBreakerAncestor, Stage: st.id, Op: st.breaker.String()}
		}
		op := WireOp{
			Predecessors: preds,
			Op:           st.breaker.opType,
			OutputType:   st.breaker.schema,
			Stage:        st.id,
			Func:         st.breaker.fragment,
		}
		if st.breaker.opType == fuse.JoinOpType {
			op.HashSide = hashSide(st.hashRight)
		}
		last = s.add(op)
	default:
		return 0, errors.SchedulerError{Code: errors.UnknownOperator, Stage: st.id, Op: st.kind.String()}
	}
	s.emitted[st] = last
	return last, nil
}

// add appends op to the plan, assigning its id
func (s *serializer) add(op WireOp) int {
	op.ID = len(s.ops)
	if op.Predecessors == nil {
		op.Predecessors = []int{}
	}
	s.ops = append(s.ops, op)
	return op.ID
}

func (s *serializer) sourceOp(stage int, n *dataFrameImpl) WireOp {
	op := WireOp{Op: n.opType, OutputType: n.schema, Stage: stage}
	switch n.opType {
	case fuse.CollectionSourceOpType:
		input := len(s.inputs)
		s.inputs = append(s.inputs, native.Buffer{Data: n.source.data, Len: n.source.length})
		rowSchema := n.source.rowSchema
		addIndex := n.source.addIndex
		op.InputType = &rowSchema
		op.AddIndex = &addIndex
		op.Input = &input
	case fuse.RangeSourceOpType:
		from, to, step := n.source.from, n.source.to, n.source.step
		op.From, op.To, op.Step = &from, &to, &step
	case fuse.GeneratorSourceOpType:
		op.Func = n.fragment
	case fuse.CsvSourceOpType:
		op.Path = n.source.path
		op.Filters = n.source.filters
		op.HeaderLines = n.source.csv.HeaderLines
		op.Delimiter = string(n.source.csv.Delimiter)
		if n.source.csv.Comment != 0 {
			op.Comment = string(n.source.csv.Comment)
		}
	}
	return op
}

func (s *serializer) pipeOp(stage int, instr instruction) WireOp {
	return WireOp{
		Op:         instr.node.opType,
		OutputType: instr.node.schema,
		Stage:      stage,
		Depth:      instr.depth,
		Func:       instr.node.fragment,
	}
}

// Plan validates, schedules and serializes the graph rooted at d for action
func Plan(d fuse.DataFrame, action fuse.Action) (*SerializedPlan, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}
	g, err := Schedule(d)
	if err != nil {
		return nil, err
	}
	return g.Serialize(action)
}
