package sketch

import (
	"errors"
	"fmt"

	"github.com/sketchforge/backend/pkg/toolchain"
)

var (
	// ErrToolchainUnavailable means no build toolchain is installed.
	// Generation still works; validation and deploy do not.
	ErrToolchainUnavailable = errors.New("build toolchain unavailable")

	// ErrDeviceNotFound means auto-selection found no likely board.
	ErrDeviceNotFound = errors.New("no target board detected")

	// ErrMalformedArtifact means the collaborator answered but its
	// response could not be parsed into a usable artifact.
	ErrMalformedArtifact = errors.New("collaborator returned an unusable artifact")
)

// GenerationError wraps any failure to obtain an initial artifact,
// whether the collaborator was unreachable or its response malformed.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("code generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// RepairExhaustedError reports that the repair loop gave up. It always
// carries the most recent artifact and its build diagnostics so the
// caller can render them; earlier attempts are never returned.
type RepairExhaustedError struct {
	Attempts int
	Artifact *Artifact
	Result   toolchain.Result
}

func (e *RepairExhaustedError) Error() string {
	return fmt.Sprintf("sketch failed to compile after %d attempts", e.Attempts)
}

// Phase identifies which half of the deploy pipeline failed.
type Phase string

const (
	PhaseBuild    Phase = "build"
	PhaseTransfer Phase = "transfer"
)

// DeployError is a phase-attributed deploy failure. Diagnostics holds
// captured toolchain stderr when the phase ran a subprocess; Hint is a
// remediation suggestion for device-selection failures.
type DeployError struct {
	Phase       Phase
	Diagnostics string
	Hint        string
	Err         error
}

func (e *DeployError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("deploy %s phase: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("deploy %s phase failed", e.Phase)
}

func (e *DeployError) Unwrap() error { return e.Err }
