package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrInvalidMode is returned when TALENT_MODE holds an unknown value.
var ErrInvalidMode = errors.New("invalid mode")

// Mode selects what a run does with the manifest.
type Mode string

const (
	ModeCheck  Mode = "check"  // Report installed/missing, never mutate
	ModeSpec   Mode = "spec"   // Install missing tools
	ModeRespec Mode = "respec" // Uninstall then reinstall every tool
)

// ParseMode converts a mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeCheck:
		return ModeCheck, nil
	case ModeSpec:
		return ModeSpec, nil
	case ModeRespec:
		return ModeRespec, nil
	}
	return "", fmt.Errorf("%w: %q (want check, spec or respec)", ErrInvalidMode, s)
}

// RunConfig is the configuration of one invocation. It is built once from
// flags and environment and passed by value to every backend call.
type RunConfig struct {
	Mode   Mode
	DryRun bool
}

// Mutates reports whether the run installs or uninstalls anything.
func (c RunConfig) Mutates() bool {
	return c.Mode != ModeCheck && !c.DryRun
}

// Flag and environment names.
const (
	FlagSpec   = "spec"
	FlagRespec = "respec"
	FlagDryRun = "dry-run"

	EnvDryRun = "DRY_RUN"
	EnvMode   = "TALENT_MODE"
)

// Load resolves the RunConfig from parsed flags and the environment.
// Flags take precedence over DRY_RUN and TALENT_MODE.
func Load(flags *pflag.FlagSet) (RunConfig, error) {
	v := viper.New()

	v.SetDefault("dry_run", false)
	v.SetDefault("mode", string(ModeCheck))
	if err := v.BindEnv("dry_run", EnvDryRun); err != nil {
		return RunConfig{}, err
	}
	if err := v.BindEnv("mode", EnvMode); err != nil {
		return RunConfig{}, err
	}
	if f := flags.Lookup(FlagDryRun); f != nil {
		if err := v.BindPFlag("dry_run", f); err != nil {
			return RunConfig{}, err
		}
	}

	var mode Mode
	switch {
	case flagSet(flags, FlagRespec):
		mode = ModeRespec
	case flagSet(flags, FlagSpec):
		mode = ModeSpec
	default:
		var err error
		if mode, err = ParseMode(v.GetString("mode")); err != nil {
			return RunConfig{}, err
		}
	}

	return RunConfig{Mode: mode, DryRun: v.GetBool("dry_run")}, nil
}

func flagSet(flags *pflag.FlagSet, name string) bool {
	f := flags.Lookup(name)
	if f == nil || !f.Changed {
		return false
	}
	on, err := flags.GetBool(name)
	return err == nil && on
}
