package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestCoreFromFQBN(t *testing.T) {
	cases := []struct {
		fqbn string
		want string
	}{
		{"Seeeduino:samd:seeed_XIAO_m0", "Seeeduino:samd"},
		{"arduino:avr:uno", "arduino:avr"},
		{"esp32:esp32", "esp32:esp32"},
		{"bare", "bare"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := CoreFromFQBN(tc.fqbn); got != tc.want {
			t.Errorf("CoreFromFQBN(%q) = %q, want %q", tc.fqbn, got, tc.want)
		}
	}
}

// stubCLI drops a shell script named arduino-cli onto a fresh PATH.
// The script echoes its arguments and exits with the given code.
func stubCLI(t *testing.T, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub requires a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "arduino-cli")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", dir)
}

func TestFindResolvesWorkingCLI(t *testing.T) {
	stubCLI(t, `echo "arduino-cli Version: 1.0.4"`)

	cli := Find(context.Background())
	if !cli.Available() {
		t.Fatal("expected CLI to be available")
	}
	version, err := cli.Version(context.Background())
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(version, "1.0.4") {
		t.Fatalf("unexpected version output: %q", version)
	}
}

func TestFindSkipsBrokenCLI(t *testing.T) {
	stubCLI(t, "exit 1")

	cli := Find(context.Background())
	if cli.Available() {
		t.Fatal("a CLI failing its health check must not be selected")
	}
	if _, err := cli.Version(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFindWithEmptyPath(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	cli := Find(context.Background())
	if cli.Available() {
		t.Fatal("expected no CLI on an empty PATH")
	}
	if _, err := cli.Compile(context.Background(), "void setup(){}", "arduino:avr:uno"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from Compile, got %v", err)
	}
}

func TestRelocatePicksUpNewInstall(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	cli := Find(context.Background())
	if cli.Available() {
		t.Fatal("expected no CLI before install")
	}

	stubCLI(t, `echo "arduino-cli Version: 1.0.4"`)
	if path := cli.Relocate(context.Background()); path == "" {
		t.Fatal("expected relocate to find the new install")
	}
	if !cli.Available() {
		t.Fatal("expected CLI to be available after relocate")
	}
}

func TestCompileCapturesSuccess(t *testing.T) {
	stubCLI(t, `if [ "$1" = "version" ]; then echo ok; exit 0; fi
echo "Sketch uses 9600 bytes"`)

	cli := Find(context.Background())
	res, err := cli.Compile(context.Background(), "void setup(){}\nvoid loop(){}", "Seeeduino:samd:seeed_XIAO_m0")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if !strings.Contains(res.Stdout, "Sketch uses") {
		t.Fatalf("stdout not captured: %q", res.Stdout)
	}
}

func TestCompileCapturesFailure(t *testing.T) {
	stubCLI(t, `if [ "$1" = "version" ]; then echo ok; exit 0; fi
echo "error: expected ';' before 'loop'" >&2
exit 1`)

	cli := Find(context.Background())
	res, err := cli.Compile(context.Background(), "broken", "Seeeduino:samd:seeed_XIAO_m0")
	if err != nil {
		t.Fatalf("a compiler diagnostic is not an invocation error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failed result")
	}
	if !strings.Contains(res.Stderr, "expected ';'") {
		t.Fatalf("stderr not captured: %q", res.Stderr)
	}
}

func TestCompileCleansScratchDir(t *testing.T) {
	stubCLI(t, `if [ "$1" = "version" ]; then echo ok; exit 0; fi
exit 0`)
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	cli := Find(context.Background())
	if _, err := cli.Compile(context.Background(), "void setup(){}", "arduino:avr:uno"); err != nil {
		t.Fatalf("compile: %v", err)
	}

	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatalf("read tmp: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "sketch-build-") {
			t.Fatalf("scratch dir %s left behind", e.Name())
		}
	}
}
