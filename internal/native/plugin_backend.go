package native

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"plugin"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// PluginBackend builds units by running an external compiler command which turns
// a serialized plan into a Go plugin, and loads the result with package plugin.
// The command is invoked as
//
//	Command[0] Command[1:]... -plan <dir>/<unit>.json -out <dir>/<unit>.so -unit <unit>
type PluginBackend struct {
	Command []string
	WorkDir string
	Logger  log.Logger
}

// pluginLibrary is a Library loaded from a Go plugin
type pluginLibrary struct {
	plugin    *plugin.Plugin
	artifacts []string
}

// Lookup returns an exported symbol of the plugin
func (l *pluginLibrary) Lookup(symbol string) (interface{}, error) {
	sym, err := l.plugin.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

// Close removes the unit's build artifacts. Go plugins cannot be unloaded,
// so the code itself stays mapped until the process exits.
func (l *pluginLibrary) Close() error {
	var firstErr error
	for _, path := range l.artifacts {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Build compiles and loads the unit for plan
func (b *PluginBackend) Build(ctx context.Context, plan []byte, unit string) (Library, error) {
	logger := b.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if len(b.Command) == 0 {
		return nil, &BuildError{Unit: unit, Err: fmt.Errorf("no compiler command is configured")}
	}
	if err := os.MkdirAll(b.WorkDir, 0o755); err != nil {
		return nil, &BuildError{Unit: unit, Err: err}
	}
	planPath := filepath.Join(b.WorkDir, unit+".json")
	archivePath := filepath.Join(b.WorkDir, unit+".plan.lz4")
	outPath := filepath.Join(b.WorkDir, unit+".so")
	if err := os.WriteFile(planPath, plan, 0o644); err != nil {
		return nil, &BuildError{Unit: unit, Err: err}
	}
	// the compressed plan is kept after failed builds, so they can be reproduced
	if err := writeArchive(archivePath, plan); err != nil {
		level.Warn(logger).Log("msg", "unable to archive plan", "unit", unit, "err", err)
	}

	args := append(append([]string{}, b.Command[1:]...), "-plan", planPath, "-out", outPath, "-unit", unit)
	cmd := exec.CommandContext(ctx, b.Command[0], args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	level.Debug(logger).Log("msg", "building unit", "unit", unit, "command", b.Command[0])
	if err := cmd.Run(); err != nil {
		os.Remove(planPath)
		return nil, &BuildError{Unit: unit, Output: output.String(), Err: err}
	}
	p, err := plugin.Open(outPath)
	if err != nil {
		os.Remove(planPath)
		return nil, &BuildError{Unit: unit, Output: output.String(), Err: err}
	}
	return &pluginLibrary{plugin: p, artifacts: []string{planPath, archivePath, outPath}}, nil
}

func writeArchive(path string, plan []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ArchivePlan(f, plan); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
