// Package locate discovers the external executables melodeck depends on.
//
// Each dependency is described by an ordered list of candidate names or paths. The first
// candidate that exists on disk or answers "--version" with exit status 0 wins. Results are
// memoized so discovery runs once per process.
package locate

import (
	"context"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/melodeck/melodeck/constant"
	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/filesystem"
	"github.com/melodeck/melodeck/log"
)

const probeTimeout = 5 * time.Second

// Dependency names an external tool and where to look for it.
type Dependency struct {
	Name       string
	Candidates []string
}

// Prober reports whether a candidate is a usable executable.
type Prober func(ctx context.Context, candidate string) bool

// Locator resolves dependencies to executable paths.
type Locator struct {
	probe Prober

	mu    sync.Mutex
	found map[string]string
}

// New creates a Locator. A nil prober selects the default filesystem + "--version" probe.
func New(probe Prober) *Locator {
	if probe == nil {
		probe = DefaultProbe
	}
	return &Locator{probe: probe, found: make(map[string]string)}
}

// Resolve returns the first usable candidate for dep, or a MissingDependency error with an install hint.
func (l *Locator) Resolve(ctx context.Context, dep Dependency) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if path, ok := l.found[dep.Name]; ok {
		return path, nil
	}

	for _, candidate := range dep.Candidates {
		if candidate == "" {
			continue
		}
		if l.probe(ctx, candidate) {
			log.Debugf("locate: %s resolved to %s", dep.Name, candidate)
			l.found[dep.Name] = candidate
			return candidate, nil
		}
	}

	return "", fault.Newf(
		fault.MissingDependency,
		"locate",
		"%s not found. Ensure it is on PATH or install it with: %s",
		dep.Name,
		InstallHint(dep.Name),
	)
}

// DefaultProbe accepts a candidate that exists as a file or runs "<candidate> --version" successfully.
func DefaultProbe(ctx context.Context, candidate string) bool {
	if exists, err := filesystem.API().Exists(candidate); err == nil && exists {
		return true
	}

	path, err := exec.LookPath(candidate)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "--version")
	hideWindow(cmd)
	return cmd.Run() == nil
}

// InstallHint suggests a package-manager command for the current platform.
func InstallHint(name string) string {
	switch runtime.GOOS {
	case constant.Darwin:
		return "brew install " + name
	case constant.Windows:
		return "winget install " + name
	default:
		return "sudo apt install " + name
	}
}
