// Package engine runs DataFrames. An Engine plans each terminal action, looks the
// plan's fingerprint up in its compilation cache, builds a unit with the native
// backend only on a miss, and executes the unit against the DataFrame's inputs.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/fuse"
	"github.com/go-sif/fuse/internal/dataframe"
	"github.com/go-sif/fuse/internal/native"
	"github.com/go-sif/fuse/internal/stats"
	"github.com/go-sif/fuse/internal/ucache"
	"github.com/go-sif/fuse/logging"
	"github.com/go-sif/fuse/udf"
	"github.com/gofrs/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

// Params holds parameters for constructing a new Engine
type Params struct {
	Logger     log.Logger            // Logger for optional log messages.
	Registerer prometheus.Registerer // Registerer for optional metrics.

	Config  Config         // Config for the Engine.
	Backend native.Backend // Backend which builds units. Defaults to a plugin backend running Config.BackendCommand.
}

// validate validates p and applies defaults
func (p *Params) validate() error {
	if p.Registerer == nil {
		p.Registerer = prometheus.NewRegistry()
	}
	if p.Config.CacheCapacity < 0 {
		return fmt.Errorf("cache capacity must not be negative, got %d", p.Config.CacheCapacity)
	}
	if p.Config.MaxConcurrentCompiles <= 0 {
		p.Config.MaxConcurrentCompiles = 1
	}
	lvl, err := logging.ParseLevel(p.Config.LogLevel)
	if err != nil {
		return err
	}
	if p.Logger == nil {
		p.Logger = log.NewNopLogger()
	} else {
		p.Logger = level.NewFilter(p.Logger, levelOption(lvl))
	}
	if p.Backend == nil {
		cmd := strings.Fields(p.Config.BackendCommand)
		if len(cmd) == 0 {
			return errors.New("a backend or a backend command is required")
		}
		if p.Config.WorkDir == "" {
			p.Config.WorkDir = os.TempDir()
		}
		p.Backend = &native.PluginBackend{Command: cmd, WorkDir: p.Config.WorkDir, Logger: p.Logger}
	}
	return nil
}

func levelOption(lvl int) level.Option {
	switch {
	case lvl <= logging.DebugLevel:
		return level.AllowDebug()
	case lvl == logging.InfoLevel:
		return level.AllowInfo()
	case lvl == logging.WarnLevel:
		return level.AllowWarn()
	default:
		return level.AllowError()
	}
}

// Engine executes terminal actions on DataFrames
type Engine struct {
	logger  log.Logger
	metrics *stats.Metrics
	cache   *ucache.Cache
}

// New creates a new Engine
func New(params Params) (*Engine, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	metrics := stats.NewMetrics(params.Registerer)
	cache, err := ucache.New(ucache.Config{
		Capacity:              params.Config.CacheCapacity,
		MaxConcurrentCompiles: params.Config.MaxConcurrentCompiles,
	}, params.Backend, params.Logger, metrics)
	if err != nil {
		return nil, err
	}
	return &Engine{
		logger:  params.Logger,
		metrics: metrics,
		cache:   cache,
	}, nil
}

// execution is the state of one terminal action
type execution struct {
	id     string
	action fuse.Action
	plan   *dataframe.SerializedPlan
	logger log.Logger
	start  time.Time
}

func (e *Engine) prepare(df fuse.DataFrame, action fuse.Action) (*execution, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	ex := &execution{id: id.String(), action: action, start: time.Now()}
	ex.logger = log.With(e.logger, "execution", ex.id, "action", action)
	plan, err := dataframe.Plan(df, action)
	if err != nil {
		e.finish(ex, err)
		return nil, err
	}
	ex.plan = plan
	ex.logger = log.With(ex.logger, "fingerprint", fmt.Sprintf("%016x", plan.Fingerprint))
	level.Debug(ex.logger).Log("msg", "planned", "stages", plan.NumStages, "inputs", len(plan.Inputs))
	return ex, nil
}

func (ex *execution) request() ucache.Request {
	return ucache.Request{
		Plan:        ex.plan.JSON,
		Fingerprint: ex.plan.Fingerprint,
		Inputs:      ex.plan.Inputs,
		Schema:      ex.plan.OutputSchema,
	}
}

func (e *Engine) finish(ex *execution, err error) {
	elapsed := time.Since(ex.start)
	e.metrics.ExecuteDuration.WithLabelValues(string(ex.action)).Observe(elapsed.Seconds())
	if err != nil {
		e.metrics.Executions.WithLabelValues(string(ex.action), statusFailure).Inc()
		level.Error(ex.logger).Log("msg", "execution failed", "duration", elapsed, "err", err)
		return
	}
	e.metrics.Executions.WithLabelValues(string(ex.action), statusSuccess).Inc()
	level.Info(ex.logger).Log("msg", "execution finished", "duration", elapsed)
}

// Collect materializes every row of df. The returned view keeps its compiled unit
// alive, and must be released once the rows are no longer needed.
func (e *Engine) Collect(ctx context.Context, df fuse.DataFrame) (fuse.ResultView, error) {
	ex, err := e.prepare(df, fuse.CollectAction)
	if err != nil {
		return fuse.ResultView{}, err
	}
	view, err := e.cache.Execute(ctx, ex.request())
	e.finish(ex, err)
	return view, err
}

// Count returns the number of rows df produces
func (e *Engine) Count(ctx context.Context, df fuse.DataFrame) (uint64, error) {
	ex, err := e.prepare(df, fuse.CountAction)
	if err != nil {
		return 0, err
	}
	n, err := e.cache.Count(ctx, ex.request())
	e.finish(ex, err)
	return n, err
}

// Reduce folds every row of df into one with fn. ok is false when df is empty.
func (e *Engine) Reduce(ctx context.Context, df fuse.DataFrame, fn udf.Ref) (result interface{}, ok bool, err error) {
	reduced, err := dataframe.Reduce(df, fn)
	if err != nil {
		return nil, false, err
	}
	ex, err := e.prepare(reduced, fuse.ReduceAction)
	if err != nil {
		return nil, false, err
	}
	defer func() { e.finish(ex, err) }()
	view, err := e.cache.Execute(ctx, ex.request())
	if err != nil {
		return nil, false, err
	}
	defer view.Release()
	if view.Len() == 0 {
		return nil, false, nil
	}
	result, err = view.Row(0)
	if err != nil {
		return nil, false, err
	}
	return result, true, nil
}

// Explain describes the stages df is scheduled into for action, without executing anything
func (e *Engine) Explain(df fuse.DataFrame, action fuse.Action) (string, error) {
	plan, err := dataframe.Plan(df, action)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s plan %016x: %d stages, %d inputs", action, plan.Fingerprint, plan.NumStages, len(plan.Inputs))
	if e.cache.Contains(plan.Fingerprint) {
		b.WriteString(" (compiled)")
	}
	b.WriteString("\n")
	b.WriteString(plan.Graph.String())
	return b.String(), nil
}

// Fingerprint returns the structural fingerprint of the plan for df and action.
// DataFrames with equal fingerprints share a compiled unit.
func (e *Engine) Fingerprint(df fuse.DataFrame, action fuse.Action) (uint64, error) {
	return dataframe.PlanFingerprint(df, action)
}

// CompiledUnits returns the number of units held by the compilation cache
func (e *Engine) CompiledUnits() int {
	return e.cache.Len()
}

// Evict drops the compiled unit for the plan of df and action, if there is one.
// The unit is closed once results depending on it have been released.
func (e *Engine) Evict(df fuse.DataFrame, action fuse.Action) (bool, error) {
	fp, err := dataframe.PlanFingerprint(df, action)
	if err != nil {
		return false, err
	}
	return e.cache.Evict(fp), nil
}

// Close releases every compiled unit. The Engine cannot be used afterwards.
func (e *Engine) Close() error {
	return e.cache.Close()
}
