// Package toolchain locates and drives the arduino-cli executable.
// The CLI is treated as a capability: when it cannot be found the rest
// of the system degrades to generation-only mode instead of failing.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ErrUnavailable is returned by operations that require the CLI when
// no working executable was found on PATH.
var ErrUnavailable = errors.New("arduino-cli not available")

// candidateNames are the platform-conventional executable names probed
// during discovery, in order.
var candidateNames = []string{"arduino-cli", "arduino-cli.exe"}

const healthCheckTimeout = 10 * time.Second

// Result captures one toolchain invocation: full stdout/stderr and
// whether the process exited zero.
type Result struct {
	Success bool   `json:"success"`
	Stdout  string `json:"stdout"`
	Stderr  string `json:"stderr"`
}

// CLI wraps a resolved arduino-cli path. The path is resolved once at
// construction and may be refreshed with Relocate on status checks.
type CLI struct {
	mu   sync.RWMutex
	path string
}

// Find probes PATH for a working arduino-cli. Candidates that resolve
// but fail the version health check are skipped. A CLI with an empty
// path is returned when nothing qualifies; callers check Available.
func Find(ctx context.Context) *CLI {
	c := &CLI{}
	c.path = locate(ctx)
	return c
}

func locate(ctx context.Context) string {
	for _, name := range candidateNames {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err = exec.CommandContext(checkCtx, path, "version").Run()
		cancel()
		if err != nil {
			log.Printf("toolchain: %s found but not runnable: %v", path, err)
			continue
		}
		log.Printf("toolchain: using arduino-cli at %s", path)
		return path
	}
	log.Printf("toolchain: arduino-cli not found; compile and deploy disabled")
	return ""
}

// Relocate re-runs discovery and swaps the stored path. Used by the
// device status endpoint so a CLI installed after boot is picked up.
func (c *CLI) Relocate(ctx context.Context) string {
	path := locate(ctx)
	c.mu.Lock()
	c.path = path
	c.mu.Unlock()
	return path
}

// Path returns the resolved executable path, empty when unavailable.
func (c *CLI) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path
}

// Available reports whether a working CLI was resolved.
func (c *CLI) Available() bool {
	return c != nil && c.Path() != ""
}

// Version runs the version subcommand and returns its trimmed output.
func (c *CLI) Version(ctx context.Context) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, c.Path(), "version").Output()
	if err != nil {
		return "", fmt.Errorf("version check: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// UpdateIndex refreshes the package index.
func (c *CLI) UpdateIndex(ctx context.Context) error {
	return c.runQuiet(ctx, "core", "update-index")
}

// InstallCore installs a platform core, e.g. "Seeeduino:samd".
func (c *CLI) InstallCore(ctx context.Context, core string) error {
	return c.runQuiet(ctx, "core", "install", core)
}

// InstallLibrary installs a single library by name.
func (c *CLI) InstallLibrary(ctx context.Context, name string) error {
	return c.runQuiet(ctx, "lib", "install", name)
}

// runQuiet executes a CLI subcommand discarding its output. Used for
// environment provisioning where failures are logged by the caller and
// real problems surface through compile diagnostics.
func (c *CLI) runQuiet(ctx context.Context, args ...string) error {
	if !c.Available() {
		return ErrUnavailable
	}
	cmd := exec.CommandContext(ctx, c.Path(), args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("arduino-cli %s: %w", strings.Join(args, " "), err)
	}
	return nil
}

// capture executes a CLI subcommand with full stdout/stderr capture.
// A non-zero exit is not an error: it is a failed Result carrying the
// diagnostics. Errors are reserved for invocation problems.
func (c *CLI) capture(ctx context.Context, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Path(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Success: err == nil,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return res, nil
		}
		return res, fmt.Errorf("arduino-cli %s: %w", args[0], err)
	}
	return res, nil
}

// CoreFromFQBN derives the installable core identifier from a fully
// qualified board name: the first two colon-separated segments.
func CoreFromFQBN(fqbn string) string {
	parts := strings.Split(fqbn, ":")
	if len(parts) < 2 {
		return fqbn
	}
	return parts[0] + ":" + parts[1]
}
