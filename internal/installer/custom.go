package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"zangarmarsh/internal/config"
	"zangarmarsh/internal/logger"
	"zangarmarsh/internal/manifest"
	"zangarmarsh/internal/runner"
)

const pipxBin = "pipx"

// strategy is one bespoke install method for tools with no plain package.
type strategy struct {
	describe          func(c *Custom, tool manifest.ToolSpec) string
	describeUninstall func(c *Custom, tool manifest.ToolSpec) string
	install           func(ctx context.Context, c *Custom, tool manifest.ToolSpec) error
	uninstall         func(ctx context.Context, c *Custom, tool manifest.ToolSpec) Step
	present           func(ctx context.Context, c *Custom, tool manifest.ToolSpec) bool
}

var strategies = map[manifest.Strategy]strategy{
	manifest.StrategyPipx: {
		describe: func(_ *Custom, tool manifest.ToolSpec) string {
			return "pipx install " + tool.Package
		},
		describeUninstall: func(_ *Custom, tool manifest.ToolSpec) string {
			return "pipx uninstall " + tool.Package
		},
		install:   installPipx,
		uninstall: uninstallPipx,
	},
	manifest.StrategyPipeScript: {
		describe: func(_ *Custom, tool manifest.ToolSpec) string {
			return pipeScriptCommand(tool.Source)
		},
		describeUninstall: describeRemoveBinary,
		install:           installPipeScript,
		uninstall:         removeResolvedBinary,
	},
	manifest.StrategyDownloadScript: {
		describe: func(_ *Custom, tool manifest.ToolSpec) string {
			name := path.Base(tool.Source)
			return fmt.Sprintf("curl -fsSL -o %s %s && ./%s && rm %s", name, tool.Source, name, name)
		},
		describeUninstall: describeRemoveBinary,
		install:           installDownloadScript,
		uninstall:         removeResolvedBinary,
	},
	manifest.StrategyContainerPair: {
		describe: func(_ *Custom, tool manifest.ToolSpec) string {
			return fmt.Sprintf("brew install %s %s && %s start", tool.Package, tool.Companion, tool.Companion)
		},
		describeUninstall: func(_ *Custom, tool manifest.ToolSpec) string {
			return fmt.Sprintf("brew uninstall %s %s", tool.Package, tool.Companion)
		},
		install:   installContainerPair,
		uninstall: uninstallContainerPair,
		present:   containerPairRunning,
	},
	manifest.StrategyArchive: {
		describe: func(c *Custom, tool manifest.ToolSpec) string {
			return fmt.Sprintf("curl -fsSL %s && extract %s into %s", c.expandSource(tool.Source), tool.Command, c.binDir)
		},
		describeUninstall: func(c *Custom, tool manifest.ToolSpec) string {
			return "rm " + filepath.Join(c.binDir, tool.Command)
		},
		install:   installArchive,
		uninstall: uninstallArchive,
	},
}

// Custom installs tools through per-tool strategies (pipx, vendor scripts,
// container runtimes, release archives). Package-manager steps are
// delegated to the Brew backend.
type Custom struct {
	runner runner.Runner
	brew   *Brew

	workDir string // where download-script strategies save scripts, "" for the current directory
	binDir  string // where archive strategies place binaries
	goos    string
	goarch  string
}

// CustomOption configures a Custom backend.
type CustomOption func(*Custom)

// WithWorkDir sets the directory scripts are downloaded into.
func WithWorkDir(dir string) CustomOption {
	return func(c *Custom) { c.workDir = dir }
}

// WithBinDir sets the directory archive installs copy binaries into.
func WithBinDir(dir string) CustomOption {
	return func(c *Custom) { c.binDir = dir }
}

// WithPlatform overrides the OS and architecture used to expand archive URLs.
func WithPlatform(goos, goarch string) CustomOption {
	return func(c *Custom) {
		c.goos = goos
		c.goarch = goarch
	}
}

// NewCustom returns a Custom backend. Binaries from archives go to
// ~/.local/bin unless WithBinDir says otherwise.
func NewCustom(r runner.Runner, brew *Brew, opts ...CustomOption) *Custom {
	c := &Custom{
		runner: r,
		brew:   brew,
		goos:   runtime.GOOS,
		goarch: runtime.GOARCH,
	}
	if home, err := os.UserHomeDir(); err == nil {
		c.binDir = filepath.Join(home, ".local", "bin")
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Install runs the tool's strategy. Respec runs the strategy's best-effort
// uninstall first and always reinstalls.
func (c *Custom) Install(ctx context.Context, tool manifest.ToolSpec, cfg config.RunConfig) Result {
	const op = "install_custom_tool"

	s, ok := strategies[tool.Strategy]
	if !ok {
		err := fmt.Errorf("unknown strategy %q for %s", tool.Strategy, tool.Command)
		logger.Error("[ERROR] %s:: %v\n", op, err)
		return Result{Tool: tool.Command, Outcome: OutcomeInstallFailed, Err: err}
	}

	if cfg.DryRun {
		if cfg.Mode == config.ModeRespec {
			logger.Info("[INFO] %s:: Would uninstall: %s\n", op, s.describeUninstall(c, tool))
		} else if path, err := c.runner.LookPath(tool.Command); err == nil {
			logger.Info("[INFO] %s:: %s already installed at %s\n", op, tool.Command, path)
			return Result{Tool: tool.Command, Outcome: OutcomeAlreadyPresent}
		}
		logger.Info("[INFO] %s:: Would install: %s\n", op, s.describe(c, tool))
		return Result{Tool: tool.Command, Outcome: OutcomeDryRun}
	}

	if cfg.Mode == config.ModeRespec {
		step := s.uninstall(ctx, c, tool)
		logger.Debug("[DEBUG] %s:: Uninstall step %q for %s: %s\n", op, step.Name, tool.Command, step.Status)
	} else if c.present(ctx, s, tool) {
		logger.Info("[INFO] %s:: %s already installed\n", op, tool.Command)
		return Result{Tool: tool.Command, Outcome: OutcomeAlreadyPresent}
	}

	logger.Info("[INFO] %s:: Installing: %s (%s)\n", op, tool.Command, tool.Strategy)
	if err := s.install(ctx, c, tool); err != nil {
		logger.Error("[ERROR] %s:: Failed to install %s: %v\n", op, tool.Command, err)
		return Result{Tool: tool.Command, Outcome: OutcomeInstallFailed, Err: err}
	}
	logger.Info("[INFO] %s:: Installed: %s\n", op, tool.Command)
	return Result{Tool: tool.Command, Outcome: OutcomeInstalled}
}

func (c *Custom) present(ctx context.Context, s strategy, tool manifest.ToolSpec) bool {
	if s.present != nil {
		return s.present(ctx, c, tool)
	}
	_, err := c.runner.LookPath(tool.Command)
	return err == nil
}

// ensureBrewTool installs a supporting package through brew in spec mode,
// whatever the run mode, since respec uninstalls were already handled.
func (c *Custom) ensureBrewTool(ctx context.Context, name string) error {
	dep := manifest.ToolSpec{Command: name, Package: name, Backend: manifest.BackendBrew}
	r := c.brew.Install(ctx, dep, config.RunConfig{Mode: config.ModeSpec})
	if r.Outcome.Failed() {
		return fmt.Errorf("required tool %s: %w", name, r.Err)
	}
	return nil
}

func installPipx(ctx context.Context, c *Custom, tool manifest.ToolSpec) error {
	if err := c.ensureBrewTool(ctx, pipxBin); err != nil {
		return err
	}
	if output, err := c.runner.Run(ctx, pipxBin, "install", tool.Package); err != nil {
		return fmt.Errorf("pipx install %s: %w\nOutput: %s", tool.Package, err, output)
	}
	return nil
}

func uninstallPipx(ctx context.Context, c *Custom, tool manifest.ToolSpec) Step {
	name := "pipx uninstall " + tool.Package
	if _, err := c.runner.LookPath(pipxBin); err != nil {
		return Step{Name: name, Status: StepSkipped}
	}
	if _, err := c.runner.Run(ctx, pipxBin, "uninstall", tool.Package); err != nil {
		return Step{Name: name, Status: StepIgnoredFailure, Err: err}
	}
	return Step{Name: name, Status: StepDone}
}

func pipeScriptCommand(source string) string {
	return fmt.Sprintf("curl -fsSL '%s' | bash", source)
}

func installPipeScript(ctx context.Context, c *Custom, tool manifest.ToolSpec) error {
	if output, err := c.runner.Run(ctx, "bash", "-c", "set -o pipefail; "+pipeScriptCommand(tool.Source)); err != nil {
		return fmt.Errorf("install script %s: %w\nOutput: %s", tool.Source, err, output)
	}
	return nil
}

// installDownloadScript fetches a vendor install script, runs it and
// removes it. The script is removed on every path, including failures of
// the download itself.
func installDownloadScript(ctx context.Context, c *Custom, tool manifest.ToolSpec) error {
	dir := c.workDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir = wd
	}
	script := filepath.Join(dir, path.Base(tool.Source))
	defer func() {
		if err := os.Remove(script); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("[WARN] install_custom_tool:: Failed to remove %s: %v\n", script, err)
		}
	}()

	if output, err := c.runner.Run(ctx, "curl", "-fsSL", "-o", script, tool.Source); err != nil {
		return fmt.Errorf("download %s: %w\nOutput: %s", tool.Source, err, output)
	}
	if err := os.Chmod(script, 0700); err != nil {
		return fmt.Errorf("chmod %s: %w", script, err)
	}
	if output, err := c.runner.Run(ctx, script); err != nil {
		return fmt.Errorf("run %s: %w\nOutput: %s", script, err, output)
	}
	return nil
}

func installContainerPair(ctx context.Context, c *Custom, tool manifest.ToolSpec) error {
	for _, pkg := range []string{tool.Package, tool.Companion} {
		if err := c.ensureBrewTool(ctx, pkg); err != nil {
			return err
		}
	}
	if _, err := c.runner.Run(ctx, tool.Companion, "status"); err == nil {
		logger.Debug("[DEBUG] install_custom_tool:: %s already running\n", tool.Companion)
		return nil
	}
	logger.Info("[INFO] install_custom_tool:: Starting %s\n", tool.Companion)
	if output, err := c.runner.Run(ctx, tool.Companion, "start"); err != nil {
		return fmt.Errorf("%s start: %w\nOutput: %s", tool.Companion, err, output)
	}
	return nil
}

func uninstallContainerPair(ctx context.Context, c *Custom, tool manifest.ToolSpec) Step {
	step := Step{Name: fmt.Sprintf("brew uninstall %s %s", tool.Package, tool.Companion), Status: StepDone}
	for _, pkg := range []string{tool.Companion, tool.Package} {
		if s := c.brew.Uninstall(ctx, pkg); s.Status == StepIgnoredFailure {
			step.Status = StepIgnoredFailure
			step.Err = s.Err
		}
	}
	return step
}

// containerPairRunning reports whether both binaries resolve and the daemon is up.
func containerPairRunning(ctx context.Context, c *Custom, tool manifest.ToolSpec) bool {
	for _, name := range []string{tool.Command, tool.Companion} {
		if _, err := c.runner.LookPath(name); err != nil {
			return false
		}
	}
	_, err := c.runner.Run(ctx, tool.Companion, "status")
	return err == nil
}

func installArchive(ctx context.Context, c *Custom, tool manifest.ToolSpec) error {
	url := c.expandSource(tool.Source)
	name := path.Base(url)
	if !isArchive(name) {
		return fmt.Errorf("unsupported archive format: %s", name)
	}
	if c.binDir == "" {
		return errors.New("no bin directory for archive installs")
	}

	tmp, err := os.MkdirTemp("", "talent-calculator-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	archive := filepath.Join(tmp, name)
	if output, err := c.runner.Run(ctx, "curl", "-fsSL", "-o", archive, url); err != nil {
		return fmt.Errorf("download %s: %w\nOutput: %s", url, err, output)
	}
	extracted := filepath.Join(tmp, "extracted")
	if err := extractArchive(archive, extracted); err != nil {
		return fmt.Errorf("extract %s: %w", name, err)
	}
	bin, err := findExecutable(extracted, tool.Command)
	if err != nil {
		return err
	}
	dst, err := installBinary(bin, c.binDir)
	if err != nil {
		return err
	}
	logger.Info("[INFO] install_custom_tool:: Installed %s to %s\n", tool.Command, dst)
	if !onPath(c.binDir) {
		logger.Warn("[WARN] install_custom_tool:: %s is not on PATH\n", c.binDir)
	}
	return nil
}

func uninstallArchive(_ context.Context, c *Custom, tool manifest.ToolSpec) Step {
	target := filepath.Join(c.binDir, tool.Command)
	return removeFile("rm "+target, target)
}

func describeRemoveBinary(c *Custom, tool manifest.ToolSpec) string {
	return "rm $(command -v " + tool.Command + ")"
}

// removeResolvedBinary deletes whatever the command resolves to.
func removeResolvedBinary(_ context.Context, c *Custom, tool manifest.ToolSpec) Step {
	p, err := c.runner.LookPath(tool.Command)
	if err != nil {
		return Step{Name: "rm " + tool.Command, Status: StepSkipped}
	}
	return removeFile("rm "+p, p)
}

func removeFile(name, target string) Step {
	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Step{Name: name, Status: StepSkipped}
		}
		return Step{Name: name, Status: StepIgnoredFailure, Err: err}
	}
	return Step{Name: name, Status: StepDone}
}

// expandSource fills the {os}, {OS} and {arch} placeholders of a source URL.
func (c *Custom) expandSource(source string) string {
	title := c.goos
	if title != "" {
		title = strings.ToUpper(title[:1]) + title[1:]
	}
	return strings.NewReplacer("{os}", c.goos, "{OS}", title, "{arch}", c.goarch).Replace(source)
}

func onPath(dir string) bool {
	for _, p := range filepath.SplitList(os.Getenv("PATH")) {
		if filepath.Clean(p) == filepath.Clean(dir) {
			return true
		}
	}
	return false
}
