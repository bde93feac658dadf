// Package sketch orchestrates the generate -> compile -> repair loop
// and the build-then-flash deploy pipeline.
package sketch

import (
	"context"

	"github.com/sketchforge/backend/pkg/device"
	"github.com/sketchforge/backend/pkg/toolchain"
)

// Artifact is the structured pair produced by the generation
// collaborator. Code is replaced across repair attempts; Wiring is
// expected to stay stable.
type Artifact struct {
	Code   string `json:"arduino_code"`
	Wiring string `json:"wiring_instructions"`
}

// GenerateResult pairs the final artifact with the build that proved
// it. Build is nil and Validated false when no toolchain was available
// and the artifact was accepted unvalidated.
type GenerateResult struct {
	Artifact  *Artifact
	Build     *toolchain.Result
	Validated bool
	Attempts  int
}

// DeployResult reports a completed transfer.
type DeployResult struct {
	Port   string `json:"port"`
	Output string `json:"output"`
}

// RepairRequest carries everything the collaborator needs to fix a
// failing sketch: the original ask, the artifact as it stands, and the
// full compiler stderr.
type RepairRequest struct {
	Description string
	Artifact    *Artifact
	Stderr      string
}

// Generator is the code-generation collaborator.
type Generator interface {
	Generate(ctx context.Context, description string) (*Artifact, error)
	Repair(ctx context.Context, req RepairRequest) (*Artifact, error)
}

// Toolchain is the subset of the build toolchain the pipelines use.
type Toolchain interface {
	Available() bool
	Compile(ctx context.Context, source, fqbn string) (toolchain.Result, error)
	Upload(ctx context.Context, source, port, fqbn string) (toolchain.Result, error)
}

// Provisioner prepares the build environment; it never fails.
type Provisioner interface {
	Ensure(ctx context.Context, source, fqbn string)
}

// DeviceLister enumerates classified device candidates.
type DeviceLister interface {
	List(ctx context.Context) []device.Candidate
}

// Logger is the narrow logging surface injected by callers, matching
// what the HTTP layer tees into per-run logs.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}
