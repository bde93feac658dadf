package sketch

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sketchforge/backend/pkg/toolchain"
)

// maxBuildAttempts is the total compile budget per generation session:
// one initial build plus up to two repair round-trips. Fixed by
// design, not configurable per call.
const maxBuildAttempts = 3

// Service wires the collaborator, toolchain, provisioner, and device
// classifier into the two pipelines. Construction is cheap; the HTTP
// layer builds one per request around shared components so each run
// gets its own logger.
type Service struct {
	gen     Generator
	tc      Toolchain
	prov    Provisioner
	devices DeviceLister
	logger  Logger
	fqbn    string
	tracer  trace.Tracer
}

func NewService(gen Generator, tc Toolchain, prov Provisioner, devices DeviceLister, defaultFQBN string, logger Logger) *Service {
	return &Service{
		gen:     gen,
		tc:      tc,
		prov:    prov,
		devices: devices,
		logger:  logger,
		fqbn:    defaultFQBN,
		tracer:  otel.Tracer("sketchforge/sketch"),
	}
}

// GenerateAndValidate runs the repair loop: request an artifact, then
// compile it, feeding diagnostics back to the collaborator on failure
// until the attempt budget is spent.
//
// Without a toolchain the artifact is returned unvalidated. A
// malformed or missing repair response aborts straight to exhaustion;
// the most recent artifact and diagnostics always come back with the
// failure.
func (s *Service) GenerateAndValidate(ctx context.Context, description string) (*GenerateResult, error) {
	ctx, span := s.tracer.Start(ctx, "sketch.generate")
	defer span.End()

	artifact, err := s.gen.Generate(ctx, description)
	if err != nil {
		s.logger.Error("generation failed", "error", err)
		return nil, &GenerationError{Err: err}
	}
	s.logger.Info("artifact generated", "bytes", len(artifact.Code))

	if !s.tc.Available() {
		s.logger.Info("toolchain unavailable, skipping validation")
		return &GenerateResult{Artifact: artifact}, nil
	}

	s.prov.Ensure(ctx, artifact.Code, s.fqbn)

	var last toolchain.Result
	for attempt := 1; attempt <= maxBuildAttempts; attempt++ {
		s.logger.Info("compile attempt", "attempt", attempt)
		res, err := s.compileAttempt(ctx, artifact.Code, attempt)
		if err != nil {
			return nil, err
		}
		last = res

		if res.Success {
			s.logger.Info("compile succeeded", "attempt", attempt)
			build := res
			return &GenerateResult{
				Artifact:  artifact,
				Build:     &build,
				Validated: true,
				Attempts:  attempt,
			}, nil
		}

		if attempt == maxBuildAttempts {
			break
		}

		s.logger.Info("compile failed, requesting repair", "attempt", attempt)
		repaired, err := s.gen.Repair(ctx, RepairRequest{
			Description: description,
			Artifact:    artifact,
			Stderr:      res.Stderr,
		})
		if err != nil {
			// A failed or malformed repair response is not retried.
			s.logger.Error("repair response unusable", "error", err)
			return nil, &RepairExhaustedError{
				Attempts: attempt,
				Artifact: artifact,
				Result:   last,
			}
		}
		artifact = repaired
	}

	s.logger.Error("compile attempts exhausted", "attempts", maxBuildAttempts)
	return nil, &RepairExhaustedError{
		Attempts: maxBuildAttempts,
		Artifact: artifact,
		Result:   last,
	}
}

func (s *Service) compileAttempt(ctx context.Context, source string, attempt int) (toolchain.Result, error) {
	ctx, span := s.tracer.Start(ctx, "sketch.compile",
		trace.WithAttributes(attribute.Int("attempt", attempt)))
	defer span.End()

	res, err := s.tc.Compile(ctx, source, s.fqbn)
	if err != nil {
		return toolchain.Result{}, fmt.Errorf("compile attempt %d: %w", attempt, err)
	}
	span.SetAttributes(attribute.Bool("success", res.Success))
	return res, nil
}
