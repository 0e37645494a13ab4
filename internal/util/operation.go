package util

import (
	"fmt"

	"github.com/go-sif/fuse/udf"
)

// SafeCall invokes a UDF such that panics are recovered and nice error messages are constructed.
// op names the operator the UDF belongs to, for error messages.
func SafeCall(op string, name string, fn udf.Func, args ...interface{}) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			if anErr, ok := r.(error); ok {
				err = fmt.Errorf("%s Panic in %s: %w\nArgs: %v\n%s", op, name, anErr, args, GetTrace())
			} else {
				err = fmt.Errorf("%s Panic in %s: %v\nArgs: %v\n%s", op, name, r, args, GetTrace())
			}
		} else if err != nil {
			err = fmt.Errorf("%s Error in %s: %w\nArgs: %v", op, name, err, args)
		}
	}()
	if fn == nil {
		return nil, fmt.Errorf("function has no implementation")
	}
	result, err = fn(args...)
	return
}

// SafeInvoke runs fn such that panics are recovered and returned as errors
func SafeInvoke(what string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if anErr, ok := r.(error); ok {
				err = fmt.Errorf("%s Panic: %w\n%s", what, anErr, GetTrace())
			} else {
				err = fmt.Errorf("%s Panic: %v\n%s", what, r, GetTrace())
			}
		}
	}()
	return fn()
}
