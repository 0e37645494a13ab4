package integration_test

import (
	"fmt"

	"github.com/go-sif/fuse/schema"
	"github.com/go-sif/fuse/udf"
)

// registry returns a Registry with the UDFs used throughout these tests
func registry() (*udf.Registry, map[string]udf.Ref) {
	reg := udf.NewRegistry()
	i64 := schema.Int64Type()
	refs := map[string]udf.Ref{
		"inc": reg.Define("inc", "func(x int64) int64 { return x + 1 }", udf.SameAsArg(0), func(args ...interface{}) (interface{}, error) {
			return args[0].(int64) + 1, nil
		}),
		"double": reg.Define("double", "func(x int64) int64 { return x * 2 }", udf.SameAsArg(0), func(args ...interface{}) (interface{}, error) {
			return args[0].(int64) * 2, nil
		}),
		"isEven": reg.Define("isEven", "func(x int64) bool { return x%2 == 0 }", udf.Returns(schema.BoolType()), func(args ...interface{}) (interface{}, error) {
			return args[0].(int64)%2 == 0, nil
		}),
		"half": reg.Define("half", "func(x int64) int64 { return x / 2 }", udf.SameAsArg(0), func(args ...interface{}) (interface{}, error) {
			return args[0].(int64) / 2, nil
		}),
		"add": reg.Define("add", "func(a, b int64) int64 { return a + b }", udf.SameAsArg(0), func(args ...interface{}) (interface{}, error) {
			return args[0].(int64) + args[1].(int64), nil
		}),
		"modKey": reg.Define("modKey", "func(x int64) (int64, int64) { return x % 2, 1 }", udf.Returns(schema.TupleOf(i64, i64)), func(args ...interface{}) (interface{}, error) {
			return []interface{}{args[0].(int64) % 2, int64(1)}, nil
		}),
		"pair": reg.Define("pair", "func(x int64) (int64, int64) { return x, x * 10 }", udf.Returns(schema.TupleOf(i64, i64)), func(args ...interface{}) (interface{}, error) {
			return []interface{}{args[0], args[0].(int64) * 10}, nil
		}),
		"triple": reg.Define("triple", "func(x int64) (int64, int64, int64) { return x, x * 13, x + 100 }", udf.Returns(schema.TupleOf(i64, i64, i64)), func(args ...interface{}) (interface{}, error) {
			x := args[0].(int64)
			return []interface{}{x, x * 13, x + 100}, nil
		}),
		"upTo": reg.Define("upTo", "func(x int64) [3]int64 { return {x, x + 1, x + 2} }", udf.ArrayOfArg(0, 3), func(args ...interface{}) (interface{}, error) {
			x := args[0].(int64)
			return []interface{}{x, x + 1, x + 2}, nil
		}),
		"toFloat": reg.Define("toFloat", "func(x int64) float64 { return float64(x) }", udf.Returns(schema.Float64Type()), func(args ...interface{}) (interface{}, error) {
			return float64(args[0].(int64)), nil
		}),
		"failOnFive": reg.Define("failOnFive", "func(x int64) int64 { if x == 5 { fail } return x }", udf.SameAsArg(0), func(args ...interface{}) (interface{}, error) {
			if args[0].(int64) == 5 {
				return nil, fmt.Errorf("cannot handle %d", args[0])
			}
			return args[0], nil
		}),
	}
	return reg, refs
}
