package sketch

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PortAuto asks the deploy pipeline to pick the first classified
// board in enumeration order.
const PortAuto = "auto"

// Deploy runs the two-phase pipeline: build, then transfer. Each
// phase fails independently with its own attribution; a build failure
// never attempts a transfer, and a missing toolchain short-circuits
// both phases.
func (s *Service) Deploy(ctx context.Context, source, portSelector, fqbn string) (*DeployResult, error) {
	if !s.tc.Available() {
		return nil, ErrToolchainUnavailable
	}
	if fqbn == "" {
		fqbn = s.fqbn
	}

	ctx, span := s.tracer.Start(ctx, "sketch.deploy",
		trace.WithAttributes(attribute.String("fqbn", fqbn)))
	defer span.End()

	s.prov.Ensure(ctx, source, fqbn)

	s.logger.Info("deploy build phase started")
	res, err := s.tc.Compile(ctx, source, fqbn)
	if err != nil {
		return nil, &DeployError{Phase: PhaseBuild, Err: err}
	}
	if !res.Success {
		s.logger.Error("deploy build phase failed")
		return nil, &DeployError{Phase: PhaseBuild, Diagnostics: res.Stderr}
	}
	s.logger.Info("deploy build phase succeeded")

	port := portSelector
	if port == "" || port == PortAuto {
		port = s.autoSelectPort(ctx)
		if port == "" {
			return nil, &DeployError{
				Phase: PhaseTransfer,
				Err:   ErrDeviceNotFound,
				Hint:  "check the USB connection and board drivers",
			}
		}
		s.logger.Info("auto-selected deploy port", "port", port)
	}

	s.logger.Info("deploy transfer phase started", "port", port)
	up, err := s.tc.Upload(ctx, source, port, fqbn)
	if err != nil {
		return nil, &DeployError{Phase: PhaseTransfer, Err: err}
	}
	if !up.Success {
		s.logger.Error("deploy transfer phase failed", "port", port)
		return nil, &DeployError{Phase: PhaseTransfer, Diagnostics: up.Stderr}
	}

	s.logger.Info("deploy completed", "port", port)
	return &DeployResult{Port: port, Output: up.Stdout}, nil
}

// autoSelectPort returns the first likely board in enumeration order,
// or empty when none qualify.
func (s *Service) autoSelectPort(ctx context.Context) string {
	for _, c := range s.devices.List(ctx) {
		if c.Likely {
			return c.Port
		}
	}
	return ""
}
