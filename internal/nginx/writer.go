package nginx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gondar-software/domain-manager/internal/system"
)

// FileWriter replaces a file's contents in one step.
type FileWriter interface {
	WriteFile(ctx context.Context, path string, data []byte) error
}

// AtomicWriter writes a sibling temp file and renames it over the target, so
// readers see either the old or the new contents.
type AtomicWriter struct{}

func (AtomicWriter) WriteFile(_ context.Context, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// PrivilegedWriter stages the data in the process temp dir, copies it next to
// the target with elevated rights and moves it into place.
type PrivilegedWriter struct {
	runner system.Runner
}

// NewPrivilegedWriter takes a runner that already elevates, such as
// system.NewExecRunner(true).
func NewPrivilegedWriter(runner system.Runner) *PrivilegedWriter {
	return &PrivilegedWriter{runner: runner}
}

func (w *PrivilegedWriter) WriteFile(ctx context.Context, path string, data []byte) error {
	tmp, err := os.CreateTemp("", "nginx-config-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	staged := path + ".domain-manager.tmp"
	if _, err := w.runner.Run(ctx, "cp", tmpName, staged); err != nil {
		return fmt.Errorf("failed to stage %s: %w", staged, err)
	}
	if _, err := w.runner.Run(ctx, "mv", "-f", staged, path); err != nil {
		_, _ = w.runner.Run(ctx, "rm", "-f", staged)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
