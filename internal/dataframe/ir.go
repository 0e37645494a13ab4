package dataframe

import (
	"fmt"

	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/errors"
)

// opcode identifies an IR instruction of a fused pipeline
type opcode uint8

const (
	// assign replaces the current row with fn(row)
	opAssign opcode = iota
	// continueUnless skips to the next row unless fn(row) is true
	opContinueUnless
	// iterate loops over the elements of fn(row), opening a nesting level
	opIterate
	// iterateElements loops over the elements of the current (array) row, opening a nesting level
	opIterateElements
)

func (c opcode) String() string {
	switch c {
	case opAssign:
		return "assign"
	case opContinueUnless:
		return "continue_unless"
	case opIterate:
		return "iterate"
	case opIterateElements:
		return "iterate_elements"
	}
	return "unknown"
}

// An instruction is one step of the straight-line body of a fused pipeline.
// depth is the loop nesting level the instruction runs at.
type instruction struct {
	code  opcode
	node  *dataFrameImpl
	depth int
}

func (i instruction) String() string {
	if i.node.fn.Name != "" {
		return fmt.Sprintf("%s(%s)@%d", i.code, i.node.fn.Name, i.depth)
	}
	return fmt.Sprintf("%s@%d", i.code, i.depth)
}

// lowerPipeline turns a run of pipe operators into one fused program
func lowerPipeline(stageID int, pipe []*dataFrameImpl) ([]instruction, error) {
	program := make([]instruction, 0, len(pipe))
	depth := 0
	for _, n := range pipe {
		var code opcode
		switch n.opType {
		case fuse.MapOpType:
			code = opAssign
		case fuse.FilterOpType:
			code = opContinueUnless
		case fuse.FlatMapOpType:
			code = opIterate
		case fuse.FlattenOpType:
			code = opIterateElements
		default:
			return nil, errors.SchedulerError{Code: errors.UnknownOperator, Stage: stageID, Op: n.String()}
		}
		program = append(program, instruction{code: code, node: n, depth: depth})
		if code == opIterate || code == opIterateElements {
			depth++
		}
	}
	return program, nil
}
