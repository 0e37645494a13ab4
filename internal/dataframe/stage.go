package dataframe

import (
	"fmt"
	"strings"

	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/schema"
)

// StageKind classifies a Stage
type StageKind uint8

const (
	// PipelineStage is a fused run of map, filter, flat_map and flatten operators,
	// optionally headed by a source
	PipelineStage StageKind = iota
	// BreakerStage holds the glue of one shuffle operator
	BreakerStage
	// EmptyStage passes rows through unchanged between two adjacent breakers
	EmptyStage
)

// String returns a textual representation of this StageKind
func (k StageKind) String() string {
	switch k {
	case PipelineStage:
		return "pipeline"
	case BreakerStage:
		return "breaker"
	case EmptyStage:
		return "empty"
	}
	return "unknown"
}

// A stageImpl is a group of operators destined to become one piece of native code.
// Stages are created by one scheduling pass and are never modified afterwards.
type stageImpl struct {
	id           int
	kind         StageKind
	source       *dataFrameImpl   // the source operator heading a pipeline stage, if any
	pipe         []*dataFrameImpl // fused pipe operators, in execution order
	program      []instruction    // pipe lowered to IR
	breaker      *dataFrameImpl   // the shuffle operator of a breaker stage
	hashRight    bool             // for join breakers, whether the hash table is built from the right input
	sourceStages []*stageImpl     // stages feeding this one, in parent order
	sink         *stageImpl       // the stage consuming this one's rows, nil for the terminal stage
}

// createStage is a factory for Stages, safely assigning deterministic IDs
func createStage(id int, kind StageKind) *stageImpl {
	return &stageImpl{
		id:           id,
		kind:         kind,
		pipe:         []*dataFrameImpl{},
		sourceStages: []*stageImpl{},
	}
}

// ID returns the ID for this Stage
func (s *stageImpl) ID() int {
	return s.id
}

// Kind returns the StageKind of this Stage
func (s *stageImpl) Kind() StageKind {
	return s.kind
}

// IsEmpty returns true iff this is a pass-through Stage between two breakers
func (s *stageImpl) IsEmpty() bool {
	return s.kind == EmptyStage
}

// OutgoingSchema is the Schema for data leaving this Stage
func (s *stageImpl) OutgoingSchema() schema.Schema {
	switch s.kind {
	case BreakerStage:
		return s.breaker.schema
	case EmptyStage:
		return s.sourceStages[0].OutgoingSchema()
	}
	if len(s.pipe) > 0 {
		return s.pipe[len(s.pipe)-1].schema
	}
	if s.source != nil {
		return s.source.schema
	}
	return s.sourceStages[0].OutgoingSchema()
}

// String returns a one-line description of this Stage
func (s *stageImpl) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stage %d (%s)", s.id, s.kind)
	if len(s.sourceStages) > 0 {
		ids := make([]string, len(s.sourceStages))
		for i, src := range s.sourceStages {
			ids[i] = fmt.Sprintf("%d", src.id)
		}
		fmt.Fprintf(&b, " <- [%s]", strings.Join(ids, ", "))
	}
	if s.source != nil {
		fmt.Fprintf(&b, ": %s", s.source)
	}
	for _, instr := range s.program {
		fmt.Fprintf(&b, "; %s", instr)
	}
	if s.breaker != nil {
		fmt.Fprintf(&b, ": %s", s.breaker)
		if s.breaker.opType == fuse.JoinOpType {
			fmt.Fprintf(&b, " hash=%s", hashSide(s.hashRight))
		}
	}
	return b.String()
}

func hashSide(hashRight bool) string {
	if hashRight {
		return "right"
	}
	return "left"
}
