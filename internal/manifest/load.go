package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidManifest is returned when a manifest entry fails validation.
var ErrInvalidManifest = errors.New("invalid manifest")

//go:embed default.yaml
var defaultManifest []byte

// entry is one item of a manifest group. It is written either as a plain
// spec string ("kubectl --package kubernetes-cli") or as a mapping carrying
// the spec plus custom-backend details and hooks.
type entry struct {
	Spec      string   `yaml:"spec"`
	Strategy  string   `yaml:"strategy"`
	Source    string   `yaml:"source"`
	Companion string   `yaml:"companion"`
	Unlink    []string `yaml:"unlink"`
}

// UnmarshalYAML accepts both the scalar and the mapping form of an entry.
func (e *entry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		e.Spec = value.Value
		return nil
	}
	type plain entry
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*e = entry(p)
	return nil
}

// document mirrors the manifest file layout.
type document struct {
	Core   []entry `yaml:"core"`
	Brew   []entry `yaml:"brew"`
	Custom []entry `yaml:"custom"`
}

// Default returns the manifest shipped with the binary.
func Default() (Manifest, error) {
	return Parse(defaultManifest)
}

// Load reads and validates a manifest file.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes manifest YAML and builds typed ToolSpecs for every group.
// Malformed entries are rejected, never skipped.
func Parse(data []byte) (Manifest, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Manifest{}, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	var m Manifest
	var err error
	if m.Core, err = buildGroup(GroupCore, doc.Core); err != nil {
		return Manifest{}, err
	}
	if m.Brew, err = buildGroup(GroupBrew, doc.Brew); err != nil {
		return Manifest{}, err
	}
	if m.Custom, err = buildGroup(GroupCustom, doc.Custom); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func buildGroup(group Group, entries []entry) ([]ToolSpec, error) {
	tools := make([]ToolSpec, 0, len(entries))
	for i, e := range entries {
		tool, err := buildTool(group, e)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", group, i, err)
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

func buildTool(group Group, e entry) (ToolSpec, error) {
	tool, err := ParseSpec(e.Spec)
	if err != nil {
		return ToolSpec{}, err
	}
	tool.Group = group
	tool.Strategy = Strategy(strings.TrimSpace(e.Strategy))
	tool.Source = strings.TrimSpace(e.Source)
	tool.Companion = strings.TrimSpace(e.Companion)

	for _, target := range e.Unlink {
		target = strings.TrimSpace(target)
		if target == "" {
			return ToolSpec{}, fmt.Errorf("%w: %s has an empty unlink target", ErrInvalidManifest, tool.Command)
		}
		tool.Hooks = append(tool.Hooks, Hook{Kind: HookUnlink, Target: target})
	}

	if group == GroupCustom {
		tool.Backend = BackendCustom
	} else {
		tool.Backend = BackendBrew
	}

	if err := validate(tool); err != nil {
		return ToolSpec{}, err
	}
	return tool, nil
}

// validate checks the backend-specific fields of a tool.
func validate(tool ToolSpec) error {
	if tool.Backend == BackendBrew {
		if tool.Strategy != "" || tool.Source != "" || tool.Companion != "" {
			return fmt.Errorf("%w: %s is a brew tool and cannot set strategy, source or companion", ErrInvalidManifest, tool.Command)
		}
		return nil
	}

	switch tool.Strategy {
	case "":
		return fmt.Errorf("%w: custom tool %s needs a strategy", ErrInvalidManifest, tool.Command)
	case StrategyPipx:
	case StrategyPipeScript, StrategyDownloadScript, StrategyArchive:
		if tool.Source == "" {
			return fmt.Errorf("%w: %s strategy %s needs a source URL", ErrInvalidManifest, tool.Command, tool.Strategy)
		}
		if !strings.HasPrefix(tool.Source, "https://") {
			return fmt.Errorf("%w: %s source must use https: %s", ErrInvalidManifest, tool.Command, tool.Source)
		}
		if strings.ContainsAny(tool.Source, " \t\n'\"`$;|&") {
			return fmt.Errorf("%w: %s source contains shell metacharacters: %s", ErrInvalidManifest, tool.Command, tool.Source)
		}
	case StrategyContainerPair:
		if tool.Companion == "" {
			return fmt.Errorf("%w: %s strategy %s needs a companion", ErrInvalidManifest, tool.Command, tool.Strategy)
		}
	default:
		return fmt.Errorf("%w: %s has unknown strategy %q", ErrInvalidManifest, tool.Command, tool.Strategy)
	}
	return nil
}
