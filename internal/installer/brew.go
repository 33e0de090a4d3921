package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"zangarmarsh/internal/config"
	"zangarmarsh/internal/logger"
	"zangarmarsh/internal/manifest"
	"zangarmarsh/internal/runner"
)

const (
	brewBin = "brew"

	// HomebrewInstallScript is the vendor script used to bootstrap Homebrew.
	HomebrewInstallScript = "https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh"
)

// Output fragments brew prints when a keg cannot be linked because
// another package already owns the target path.
var linkConflictSignatures = []string{
	"Could not symlink",
	"brew link --overwrite",
}

// Where Homebrew puts its binary on macOS (arm64, x86_64) and Linux.
var brewPrefixes = []string{
	"/opt/homebrew/bin",
	"/usr/local/bin",
	"/home/linuxbrew/.linuxbrew/bin",
}

// Brew installs and uninstalls packages through Homebrew.
type Brew struct {
	runner runner.Runner
}

// NewBrew returns a Brew backend that runs brew through r.
func NewBrew(r runner.Runner) *Brew {
	return &Brew{runner: r}
}

// Install brings one tool in through brew.
// Respec runs uninstall first and always reinstalls; spec skips tools
// whose command already resolves. Pre-install hooks run only when brew
// is about to install.
func (b *Brew) Install(ctx context.Context, tool manifest.ToolSpec, cfg config.RunConfig) Result {
	const op = "install_brew_package"

	if cfg.DryRun {
		return b.dryRun(tool, cfg)
	}

	if cfg.Mode == config.ModeRespec {
		b.Uninstall(ctx, tool.Package)
	} else if path, err := b.runner.LookPath(tool.Command); err == nil {
		logger.Info("[INFO] %s:: %s already installed at %s\n", op, tool.Command, path)
		return Result{Tool: tool.Command, Outcome: OutcomeAlreadyPresent}
	}

	if err := b.runHooks(ctx, tool); err != nil {
		logger.Error("[ERROR] %s:: Pre-install hook failed for %s: %v\n", op, tool.Package, err)
		return Result{Tool: tool.Command, Outcome: OutcomeInstallFailed, Err: err}
	}

	logger.Info("[INFO] %s:: Installing: %s\n", op, tool.Package)
	output, err := b.runner.Run(ctx, brewBin, "install", tool.Package)
	if hasLinkConflict(output) {
		return b.resolveLinkConflict(ctx, tool)
	}
	if err != nil {
		logger.Error("[ERROR] %s:: Failed to install %s: %v\nOutput: %s\n", op, tool.Package, err, output)
		return Result{Tool: tool.Command, Outcome: OutcomeInstallFailed, Err: fmt.Errorf("brew install %s: %w", tool.Package, err)}
	}

	logger.Info("[INFO] %s:: Installed: %s\n", op, tool.Package)
	return Result{Tool: tool.Command, Outcome: OutcomeInstalled}
}

// dryRun prints the actions Install would take without running anything.
func (b *Brew) dryRun(tool manifest.ToolSpec, cfg config.RunConfig) Result {
	const op = "install_brew_package"

	if cfg.Mode == config.ModeRespec {
		logger.Info("[INFO] %s:: Would uninstall: brew uninstall %s\n", op, tool.Package)
	} else if path, err := b.runner.LookPath(tool.Command); err == nil {
		logger.Info("[INFO] %s:: %s already installed at %s\n", op, tool.Command, path)
		return Result{Tool: tool.Command, Outcome: OutcomeAlreadyPresent}
	}
	for _, h := range tool.Hooks {
		logger.Info("[INFO] %s:: Would %s\n", op, describeHook(h))
	}
	logger.Info("[INFO] %s:: Would install: brew install %s\n", op, tool.Package)
	return Result{Tool: tool.Command, Outcome: OutcomeDryRun}
}

// resolveLinkConflict forces the link of a freshly installed keg.
// A failed re-link is only fatal when brew no longer lists the package.
func (b *Brew) resolveLinkConflict(ctx context.Context, tool manifest.ToolSpec) Result {
	const op = "install_brew_package"

	logger.Warn("[WARN] %s:: Link conflict for %s, forcing link\n", op, tool.Package)
	output, err := b.runner.Run(ctx, brewBin, "link", "--overwrite", tool.Package)
	if err == nil {
		logger.Info("[INFO] %s:: Link conflict resolved for %s\n", op, tool.Package)
		return Result{Tool: tool.Command, Outcome: OutcomeLinkConflictResolved}
	}
	logger.Debug("[DEBUG] %s:: brew link --overwrite %s failed: %v\nOutput: %s\n", op, tool.Package, err, output)

	if _, listErr := b.runner.Run(ctx, brewBin, "list", tool.Package); listErr == nil {
		logger.Warn("[WARN] %s:: %s is installed but could not be linked; check 'brew doctor'\n", op, tool.Package)
		return Result{Tool: tool.Command, Outcome: OutcomeInstalled}
	}

	logger.Error("[ERROR] %s:: Failed to install %s: link conflict could not be resolved\n", op, tool.Package)
	return Result{Tool: tool.Command, Outcome: OutcomeInstallFailed, Err: fmt.Errorf("brew link --overwrite %s: %w", tool.Package, err)}
}

// Uninstall removes a package. Failures are expected when the package
// is not installed, so they are reported as ignored.
func (b *Brew) Uninstall(ctx context.Context, pkg string) Step {
	const op = "uninstall_brew_package"

	logger.Info("[INFO] %s:: Uninstalling: %s\n", op, pkg)
	output, err := b.runner.Run(ctx, brewBin, "uninstall", pkg)
	if err != nil {
		logger.Debug("[DEBUG] %s:: Ignoring uninstall failure for %s: %v\nOutput: %s\n", op, pkg, err, output)
		return Step{Name: "brew uninstall " + pkg, Status: StepIgnoredFailure, Err: err}
	}
	return Step{Name: "brew uninstall " + pkg, Status: StepDone}
}

// Bootstrap installs Homebrew itself when brew is not on the search path.
func (b *Brew) Bootstrap(ctx context.Context, cfg config.RunConfig) error {
	const op = "install_homebrew"

	if _, err := b.runner.LookPath(brewBin); err == nil {
		logger.Debug("[DEBUG] %s:: brew found\n", op)
		return nil
	}
	if cfg.DryRun {
		logger.Info("[INFO] %s:: Would bootstrap: Homebrew from %s\n", op, HomebrewInstallScript)
		return nil
	}

	logger.Info("[INFO] %s:: Installing Homebrew\n", op)
	output, err := b.runner.Run(ctx, "/bin/bash", "-c", bootstrapScript())
	if err != nil {
		return fmt.Errorf("homebrew bootstrap failed: %w\nOutput: %s", err, output)
	}

	if _, err := b.runner.LookPath(brewBin); err == nil {
		return nil
	}
	// A fresh install is not on PATH until the shell profile is reloaded.
	for _, dir := range brewPrefixes {
		if _, err := os.Stat(filepath.Join(dir, brewBin)); err == nil {
			logger.Debug("[DEBUG] %s:: Adding %s to PATH\n", op, dir)
			return os.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
		}
	}
	return fmt.Errorf("homebrew installed but %s is not on PATH", brewBin)
}

func bootstrapScript() string {
	return fmt.Sprintf(`NONINTERACTIVE=1 /bin/bash -c "$(curl -fsSL %s)"`, HomebrewInstallScript)
}

func hasLinkConflict(output []byte) bool {
	out := string(output)
	for _, sig := range linkConflictSignatures {
		if strings.Contains(out, sig) {
			return true
		}
	}
	return false
}
