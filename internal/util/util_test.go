package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafeCallRecoversPanics(t *testing.T) {
	_, err := SafeCall("Map", "boom", func(args ...interface{}) (interface{}, error) {
		panic("boom")
	}, int64(1))
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "Map Panic in boom")

	cause := errors.New("bad row")
	_, err = SafeCall("Filter", "picky", func(args ...interface{}) (interface{}, error) {
		return nil, cause
	}, int64(1))
	require.True(t, errors.Is(err, cause))

	res, err := SafeCall("Map", "inc", func(args ...interface{}) (interface{}, error) {
		return args[0].(int64) + 1, nil
	}, int64(1))
	require.Nil(t, err)
	require.Equal(t, int64(2), res)
}

func TestSafeInvokeWrapsPanickedErrors(t *testing.T) {
	cause := fmt.Errorf("segfault")
	err := SafeInvoke("Execute", func() error { panic(cause) })
	require.True(t, errors.Is(err, cause))
	require.Nil(t, SafeInvoke("Execute", func() error { return nil }))
}
