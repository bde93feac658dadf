package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// sketchFileName is the compilation unit name. arduino-cli requires
// the .ino file to match its enclosing directory name.
const sketchFileName = "sketch"

// Compile writes source into a fresh scratch directory and compiles it
// for the given board. The scratch directory is removed on every exit
// path. Compiler failures come back as a failed Result with captured
// diagnostics, not as an error.
func (c *CLI) Compile(ctx context.Context, source, fqbn string) (Result, error) {
	if !c.Available() {
		return Result{}, ErrUnavailable
	}
	sketchDir, cleanup, err := writeSketch(source, "sketch-build-")
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	return c.capture(ctx, "compile", "--fqbn", fqbn, sketchDir)
}

// Upload compiles nothing itself: it transfers the sketch in a fresh
// scratch directory to the board on the given port. Callers run a
// build phase first so transfer failures are attributable.
func (c *CLI) Upload(ctx context.Context, source, port, fqbn string) (Result, error) {
	if !c.Available() {
		return Result{}, ErrUnavailable
	}
	sketchDir, cleanup, err := writeSketch(source, "sketch-deploy-")
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	return c.capture(ctx, "upload", "-p", port, "--fqbn", fqbn, sketchDir, "--verbose")
}

func writeSketch(source, prefix string) (string, func(), error) {
	scratch, err := os.MkdirTemp("", prefix)
	if err != nil {
		return "", nil, fmt.Errorf("create scratch dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(scratch) }

	sketchDir := filepath.Join(scratch, sketchFileName)
	if err := os.Mkdir(sketchDir, 0o755); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("create sketch dir: %w", err)
	}
	inoPath := filepath.Join(sketchDir, sketchFileName+".ino")
	if err := os.WriteFile(inoPath, []byte(source), 0o644); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write sketch source: %w", err)
	}
	return sketchDir, cleanup, nil
}
