package sketch

import (
	"context"
	"errors"
	"testing"

	"github.com/sketchforge/backend/pkg/device"
	"github.com/sketchforge/backend/pkg/toolchain"
)

func board(port string, likely bool) device.Candidate {
	return device.Candidate{Port: port, Description: "USB Serial", Likely: likely}
}

func TestDeployWithoutToolchain(t *testing.T) {
	tc := &fakeToolchain{available: false}
	_, err := newTestService(nil, tc, &fakeProvisioner{}, nil).Deploy(context.Background(), "code", PortAuto, "")
	if !errors.Is(err, ErrToolchainUnavailable) {
		t.Fatalf("expected ErrToolchainUnavailable, got %v", err)
	}
	if len(tc.compiled) != 0 {
		t.Fatal("build phase must not run without a toolchain")
	}
}

func TestDeployBuildFailure(t *testing.T) {
	tc := &fakeToolchain{
		available:      true,
		compileResults: []toolchain.Result{fail("error: expected ';'")},
	}
	_, err := newTestService(nil, tc, &fakeProvisioner{}, nil).Deploy(context.Background(), "code", PortAuto, "")
	var dep *DeployError
	if !errors.As(err, &dep) {
		t.Fatalf("expected DeployError, got %v", err)
	}
	if dep.Phase != PhaseBuild || dep.Diagnostics != "error: expected ';'" {
		t.Fatalf("expected build-phase attribution with compiler stderr, got %+v", dep)
	}
	if len(tc.uploads) != 0 {
		t.Fatal("transfer must not run after a failed build")
	}
}

func TestDeployAutoSelectNoBoard(t *testing.T) {
	tc := &fakeToolchain{available: true, compileResults: []toolchain.Result{pass()}}
	devices := &fakeDevices{candidates: []device.Candidate{board("/dev/ttyUSB0", false)}}

	_, err := newTestService(nil, tc, &fakeProvisioner{}, devices).Deploy(context.Background(), "code", PortAuto, "")
	var dep *DeployError
	if !errors.As(err, &dep) {
		t.Fatalf("expected DeployError, got %v", err)
	}
	if dep.Phase != PhaseTransfer || !errors.Is(dep, ErrDeviceNotFound) {
		t.Fatalf("expected transfer-phase device-not-found, got %+v", dep)
	}
	if dep.Hint == "" {
		t.Fatal("expected a remediation hint")
	}
	if len(tc.uploads) != 0 {
		t.Fatal("transfer must not run without a port")
	}
}

func TestDeployAutoSelectPicksFirstLikely(t *testing.T) {
	tc := &fakeToolchain{
		available:      true,
		compileResults: []toolchain.Result{pass()},
		uploadResult:   toolchain.Result{Success: true, Stdout: "verified"},
	}
	devices := &fakeDevices{candidates: []device.Candidate{
		board("/dev/ttyS0", false),
		board("/dev/ttyACM0", true),
		board("/dev/ttyACM1", true),
	}}

	result, err := newTestService(nil, tc, &fakeProvisioner{}, devices).Deploy(context.Background(), "code", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Port != "/dev/ttyACM0" {
		t.Fatalf("expected first likely board, got %q", result.Port)
	}
	if len(tc.uploads) != 1 || tc.uploads[0].port != "/dev/ttyACM0" {
		t.Fatalf("upload call mismatch: %v", tc.uploads)
	}
}

func TestDeployExplicitPortSkipsEnumeration(t *testing.T) {
	tc := &fakeToolchain{
		available:      true,
		compileResults: []toolchain.Result{pass()},
		uploadResult:   toolchain.Result{Success: true, Stdout: "done"},
	}
	// No candidates at all: an explicit port must not consult the lister.
	result, err := newTestService(nil, tc, &fakeProvisioner{}, &fakeDevices{}).Deploy(context.Background(), "code", "COM7", "Seeeduino:samd:seeed_XIAO_m0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Port != "COM7" || result.Output != "done" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if tc.uploads[0].fqbn != "Seeeduino:samd:seeed_XIAO_m0" {
		t.Fatalf("fqbn not threaded through: %+v", tc.uploads[0])
	}
}

func TestDeployTransferFailure(t *testing.T) {
	tc := &fakeToolchain{
		available:      true,
		compileResults: []toolchain.Result{pass()},
		uploadResult:   fail("avrdude: stk500_recv(): programmer is not responding"),
	}
	devices := &fakeDevices{candidates: []device.Candidate{board("/dev/ttyACM0", true)}}

	_, err := newTestService(nil, tc, &fakeProvisioner{}, devices).Deploy(context.Background(), "code", PortAuto, "")
	var dep *DeployError
	if !errors.As(err, &dep) {
		t.Fatalf("expected DeployError, got %v", err)
	}
	if dep.Phase != PhaseTransfer || dep.Diagnostics == "" {
		t.Fatalf("expected transfer-phase diagnostics, got %+v", dep)
	}
}
