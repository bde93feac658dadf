// Package provision prepares the local build environment: platform
// core plus whatever libraries the generated source appears to need.
//
// Provisioning runs at most once per process lifetime. Sub-step
// failures are logged and swallowed; a genuinely missing dependency
// surfaces later through compile diagnostics, which carry far better
// context than an install exit code.
package provision

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/sketchforge/backend/pkg/toolchain"
)

// Installer is the subset of the toolchain used for environment setup.
type Installer interface {
	Available() bool
	UpdateIndex(ctx context.Context) error
	InstallCore(ctx context.Context, core string) error
	InstallLibrary(ctx context.Context, name string) error
}

// Provisioner tracks the once-per-process "environment ready" state.
// The flag is monotonic: set after the first completed pass, never
// reset except by process restart. Concurrent first-time callers may
// both provision; redundant installs are safe, merely wasteful.
type Provisioner struct {
	cli   Installer
	ready atomic.Bool
}

func New(cli Installer) *Provisioner {
	return &Provisioner{cli: cli}
}

// Ready reports whether a provisioning pass has completed.
func (p *Provisioner) Ready() bool {
	return p.ready.Load()
}

// Ensure makes the environment usable for the given source and board.
// It is an idempotent no-op when already provisioned or when no
// toolchain is available. It never returns an error.
func (p *Provisioner) Ensure(ctx context.Context, source, fqbn string) {
	if p.ready.Load() || !p.cli.Available() {
		return
	}

	log.Printf("provision: preparing build environment for %s", fqbn)

	core := toolchain.CoreFromFQBN(fqbn)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := p.cli.UpdateIndex(ctx); err != nil {
			log.Printf("provision: index refresh: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := p.cli.InstallCore(ctx, core); err != nil {
			log.Printf("provision: core install %s: %v", core, err)
		}
	}()
	wg.Wait()

	libs := InferLibraries(source)
	if len(libs) > 0 {
		log.Printf("provision: source needs libraries %v", libs)
		var lg sync.WaitGroup
		for _, lib := range libs {
			lg.Add(1)
			go func(name string) {
				defer lg.Done()
				if err := p.cli.InstallLibrary(ctx, InstallArg(name)); err != nil {
					log.Printf("provision: library install %s: %v", name, err)
				}
			}(lib)
		}
		lg.Wait()
	}

	p.ready.Store(true)
	log.Printf("provision: build environment ready")
}
