// Package orchestrator sequences a whole run: it checks preconditions,
// makes sure Homebrew exists and walks the manifest in order, dispatching
// each tool to the backend that owns it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/qmuntal/stateless"
	"go.uber.org/multierr"

	"zangarmarsh/internal/config"
	"zangarmarsh/internal/installer"
	"zangarmarsh/internal/logger"
	"zangarmarsh/internal/manifest"
	"zangarmarsh/internal/runner"
)

var (
	ErrMissingTools        = errors.New("tools missing")
	ErrToolsFailed         = errors.New("tools failed to install")
	ErrCurlMissing         = errors.New("curl is required but was not found on PATH")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

var supportedPlatforms = map[string]bool{"darwin": true, "linux": true}

// Run phases.
type phase string

const (
	phaseIdle       phase = "idle"
	phaseChecking   phase = "checking"
	phasePreparing  phase = "preparing"
	phaseInstalling phase = "installing"
	phaseDone       phase = "done"
	phaseFailed     phase = "failed"
)

// Run triggers.
type trigger string

const (
	triggerCheck   trigger = "check"
	triggerInstall trigger = "install"
	triggerReady   trigger = "ready"
	triggerFinish  trigger = "finish"
	triggerAbort   trigger = "abort"
)

// Orchestrator owns one run over a manifest.
type Orchestrator struct {
	manifest manifest.Manifest
	cfg      config.RunConfig
	runner   runner.Runner
	brew     *installer.Brew
	backends map[manifest.Backend]installer.Backend
	homeDir  string
	goos     string
}

type Option func(*Orchestrator)

// WithHomeDir sets the directory install modes work from.
func WithHomeDir(dir string) Option {
	return func(o *Orchestrator) { o.homeDir = dir }
}

// WithGOOS overrides the detected operating system.
func WithGOOS(goos string) Option {
	return func(o *Orchestrator) { o.goos = goos }
}

// WithBackend replaces the installer used for one backend kind.
func WithBackend(kind manifest.Backend, b installer.Backend) Option {
	return func(o *Orchestrator) { o.backends[kind] = b }
}

// New wires the brew and custom backends over r. Options are applied last
// so tests can swap any of them.
func New(m manifest.Manifest, cfg config.RunConfig, r runner.Runner, opts ...Option) *Orchestrator {
	brew := installer.NewBrew(r)
	o := &Orchestrator{
		manifest: m,
		cfg:      cfg,
		runner:   r,
		brew:     brew,
		backends: map[manifest.Backend]installer.Backend{
			manifest.BackendBrew:   brew,
			manifest.BackendCustom: installer.NewCustom(r, brew),
		},
		goos: runtime.GOOS,
	}
	if home, err := os.UserHomeDir(); err == nil {
		o.homeDir = home
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run carries what the phases produce.
type run struct {
	summary installer.Summary
	err     error
}

// Run executes the configured mode. The returned error is non-nil when a
// precondition fails, when check mode finds missing tools, or when any tool
// failed to install.
func (o *Orchestrator) Run(ctx context.Context) (installer.Summary, error) {
	logger.Info("[INFO] talent_calculator:: Mode: %s (dry run: %t)\n", o.cfg.Mode, o.cfg.DryRun)

	install := o.cfg.Mode != config.ModeCheck
	if install {
		restore, err := enterDir(o.homeDir)
		if err != nil {
			return installer.Summary{}, err
		}
		defer restore()
	}

	st := &run{}
	sm := o.machine(st)

	next := triggerCheck
	if install {
		next = triggerInstall
	}
	for {
		if err := sm.FireCtx(ctx, next); err != nil {
			return st.summary, fmt.Errorf("run state machine: %w", err)
		}
		switch sm.MustState() {
		case phaseDone, phaseFailed:
			return st.summary, st.err
		case phasePreparing:
			next = triggerReady
		default:
			next = triggerFinish
		}
		if st.err != nil {
			next = triggerAbort
		}
	}
}

func (o *Orchestrator) machine(st *run) *stateless.StateMachine {
	sm := stateless.NewStateMachine(phaseIdle)

	sm.Configure(phaseIdle).
		Permit(triggerCheck, phaseChecking).
		Permit(triggerInstall, phasePreparing)

	sm.Configure(phaseChecking).
		OnEntry(func(_ context.Context, _ ...any) error {
			st.summary = installer.CheckStatus(o.manifest, o.runner)
			if st.summary.Missing > 0 {
				st.err = fmt.Errorf("%w: %s", ErrMissingTools, strings.Join(st.summary.MissingList, ", "))
			}
			return nil
		}).
		Permit(triggerFinish, phaseDone).
		Permit(triggerAbort, phaseFailed)

	sm.Configure(phasePreparing).
		OnEntry(func(ctx context.Context, _ ...any) error {
			st.err = o.prepare(ctx)
			return nil
		}).
		Permit(triggerReady, phaseInstalling).
		Permit(triggerAbort, phaseFailed)

	sm.Configure(phaseInstalling).
		OnEntry(func(ctx context.Context, _ ...any) error {
			st.summary, st.err = o.install(ctx)
			return nil
		}).
		Permit(triggerFinish, phaseDone).
		Permit(triggerAbort, phaseFailed)

	sm.Configure(phaseDone).
		OnEntry(func(_ context.Context, _ ...any) error {
			logger.Debug("[DEBUG] talent_calculator:: Run finished cleanly\n")
			return nil
		})

	sm.Configure(phaseFailed).
		OnEntry(func(_ context.Context, _ ...any) error {
			logger.Debug("[DEBUG] talent_calculator:: Run finished with errors: %v\n", st.err)
			return nil
		})

	return sm
}

// prepare checks the platform and curl, then makes sure brew is usable.
func (o *Orchestrator) prepare(ctx context.Context) error {
	if !supportedPlatforms[o.goos] {
		logger.Error("[ERROR] talent_calculator:: Unsupported operating system: %s\n", o.goos)
		return fmt.Errorf("%w: %s", ErrUnsupportedPlatform, o.goos)
	}
	if _, err := o.runner.LookPath("curl"); err != nil {
		logger.Error("[ERROR] talent_calculator:: curl is required but was not found on PATH\n")
		return ErrCurlMissing
	}
	if err := o.brew.Bootstrap(ctx, o.cfg); err != nil {
		return fmt.Errorf("bootstrap homebrew: %w", err)
	}
	return nil
}

// install walks every tool in manifest order. A failed tool never stops
// the walk; failures are collected and reported together.
func (o *Orchestrator) install(ctx context.Context) (installer.Summary, error) {
	var (
		summary installer.Summary
		errs    error
	)
	for _, tool := range o.manifest.Tools() {
		if err := ctx.Err(); err != nil {
			logger.Warn("[WARN] talent_calculator:: Interrupted before %s\n", tool.Command)
			return summary, err
		}

		backend, ok := o.backends[tool.Backend]
		var res installer.Result
		if ok {
			res = backend.Install(ctx, tool, o.cfg)
		} else {
			logger.Error("[ERROR] talent_calculator:: No backend %q for %s\n", tool.Backend, tool.Command)
			res = installer.Result{
				Tool:    tool.Command,
				Outcome: installer.OutcomeInstallFailed,
				Err:     fmt.Errorf("unknown backend %q", tool.Backend),
			}
		}
		summary.Add(res)
		if res.Outcome.Failed() {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", res.Tool, res.Err))
		}
	}

	if o.cfg.DryRun {
		logger.Info("[INFO] talent_calculator:: planned=%d present=%d failed=%d\n",
			summary.Planned, summary.Present, len(summary.Failed))
	} else {
		logger.Info("[INFO] talent_calculator:: installed=%d present=%d failed=%d\n",
			summary.Installed, summary.Present, len(summary.Failed))
	}

	if errs != nil {
		return summary, fmt.Errorf("%w: %w", ErrToolsFailed, errs)
	}
	return summary, nil
}

// enterDir changes into dir and returns a func that restores the previous
// working directory.
func enterDir(dir string) (func(), error) {
	if dir == "" {
		return nil, errors.New("home directory is unknown")
	}
	prev, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		return nil, fmt.Errorf("change to %s: %w", dir, err)
	}
	return func() {
		if err := os.Chdir(prev); err != nil {
			logger.Warn("[WARN] talent_calculator:: Could not return to %s: %v\n", prev, err)
		}
	}, nil
}
