package installer

import (
	"context"
	"fmt"
	"strings"

	"zangarmarsh/internal/logger"
	"zangarmarsh/internal/manifest"
)

// hookFunc runs one pre-install action against target.
type hookFunc func(ctx context.Context, b *Brew, target string) error

var hookFuncs = map[manifest.HookKind]hookFunc{
	manifest.HookUnlink: unlinkConflict,
}

// runHooks runs the tool's hooks in order and stops at the first failure.
func (b *Brew) runHooks(ctx context.Context, tool manifest.ToolSpec) error {
	for _, h := range tool.Hooks {
		fn, ok := hookFuncs[h.Kind]
		if !ok {
			return fmt.Errorf("unknown hook %q for %s", h.Kind, tool.Command)
		}
		if err := fn(ctx, b, h.Target); err != nil {
			return fmt.Errorf("%s %s: %w", h.Kind, h.Target, err)
		}
	}
	return nil
}

// unlinkConflict unlinks target when it is installed, so that a package
// shipping the same binary name can link (tfenv and terraform).
func unlinkConflict(ctx context.Context, b *Brew, target string) error {
	const op = "unlink_conflict"

	output, err := b.runner.Run(ctx, brewBin, "list", "--versions", target)
	if err != nil || strings.TrimSpace(string(output)) == "" {
		logger.Debug("[DEBUG] %s:: %s not installed, nothing to unlink\n", op, target)
		return nil
	}

	logger.Info("[INFO] %s:: Unlinking conflicting package: %s\n", op, target)
	if output, err := b.runner.Run(ctx, brewBin, "unlink", target); err != nil {
		return fmt.Errorf("brew unlink %s: %w\nOutput: %s", target, err, output)
	}
	return nil
}

func describeHook(h manifest.Hook) string {
	switch h.Kind {
	case manifest.HookUnlink:
		return fmt.Sprintf("unlink: brew unlink %s (if installed)", h.Target)
	}
	return fmt.Sprintf("%s: %s", h.Kind, h.Target)
}
