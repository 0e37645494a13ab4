package engine_test

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/backend/local"
	"github.com/go-sif/fuse/datasource/rangesrc"
	"github.com/go-sif/fuse/engine"
	ops "github.com/go-sif/fuse/operations/transform"
	"github.com/go-sif/fuse/schema"
	"github.com/go-sif/fuse/udf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestConfigFlagsAndYaml(t *testing.T) {
	var conf engine.Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	conf.RegisterFlags(fs)
	require.Nil(t, fs.Parse([]string{"-fuse.cache-capacity=8", "-fuse.backend-command=fusec -O2"}))
	require.Equal(t, 8, conf.CacheCapacity)
	require.Equal(t, int64(1), conf.MaxConcurrentCompiles)
	require.Equal(t, "fusec -O2", conf.BackendCommand)
	require.Equal(t, "info", conf.LogLevel)

	path := filepath.Join(t.TempDir(), "fuse.yaml")
	require.Nil(t, os.WriteFile(path, []byte("max_concurrent_compiles: 3\nlog_level: debug\n"), 0o644))
	loaded, err := engine.LoadConfig(path, conf)
	require.Nil(t, err)
	require.Equal(t, 8, loaded.CacheCapacity)
	require.Equal(t, int64(3), loaded.MaxConcurrentCompiles)
	require.Equal(t, "debug", loaded.LogLevel)

	require.Nil(t, os.WriteFile(path, []byte("cache_capacity: [1"), 0o644))
	_, err = engine.LoadConfig(path, conf)
	require.NotNil(t, err)
}

func TestNewValidatesParams(t *testing.T) {
	_, err := engine.New(engine.Params{})
	require.NotNil(t, err)
	_, err = engine.New(engine.Params{Config: engine.Config{LogLevel: "loud"}, Backend: local.New(udf.NewRegistry(), nil)})
	require.NotNil(t, err)
	_, err = engine.New(engine.Params{Config: engine.Config{CacheCapacity: -1}, Backend: local.New(udf.NewRegistry(), nil)})
	require.NotNil(t, err)

	e, err := engine.New(engine.Params{Config: engine.Config{BackendCommand: "fusec"}})
	require.Nil(t, err)
	require.Nil(t, e.Close())
}

func TestExecutionMetricsAndExplain(t *testing.T) {
	reg := udf.NewRegistry()
	inc := reg.Define("inc", "x + 1", udf.SameAsArg(0), func(args ...interface{}) (interface{}, error) {
		return args[0].(int64) + 1, nil
	})
	add := reg.Define("add", "a + b", udf.Expecting([]schema.Schema{schema.Int64Type(), schema.Int64Type()}, udf.SameAsArg(0)),
		func(args ...interface{}) (interface{}, error) {
			return args[0].(int64) + args[1].(int64), nil
		})
	registry := prometheus.NewRegistry()
	e, err := engine.New(engine.Params{Backend: local.New(reg, nil), Registerer: registry})
	require.Nil(t, err)
	defer func() { require.Nil(t, e.Close()) }()

	src, err := rangesrc.Until(reg, 4)
	require.Nil(t, err)
	frame, err := src.To(ops.Map(inc))
	require.Nil(t, err)
	sum, ok, err := e.Reduce(context.Background(), frame, add)
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, int64(10), sum)

	explain, err := e.Explain(frame, fuse.CountAction)
	require.Nil(t, err)
	require.NotContains(t, explain, "(compiled)")
	_, err = e.Count(context.Background(), frame)
	require.Nil(t, err)
	explain, err = e.Explain(frame, fuse.CountAction)
	require.Nil(t, err)
	require.Contains(t, explain, "(compiled)")

	families, err := registry.Gather()
	require.Nil(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["fuse_executions_total"])
	require.True(t, names["fuse_compiles_total"])
	require.True(t, names["fuse_cache_lookups_total"])
}
