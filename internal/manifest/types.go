package manifest

// Backend names the installation path a tool takes.
type Backend string

const (
	BackendBrew   Backend = "brew"   // Installed through the system package manager
	BackendCustom Backend = "custom" // Installed through a tool-specific strategy
)

// Group is one of the three fixed manifest sections.
// Later groups may rely on tools from earlier ones (pipx before aws-sso-util).
type Group string

const (
	GroupCore   Group = "core"
	GroupBrew   Group = "brew"
	GroupCustom Group = "custom"
)

// Strategy selects how a custom-backend tool is installed.
type Strategy string

const (
	StrategyPipx           Strategy = "pipx"            // pipx install <package>, pipx ensured through brew
	StrategyPipeScript     Strategy = "pipe-script"     // vendor script fetched with curl and piped to bash
	StrategyDownloadScript Strategy = "download-script" // script downloaded, executed, removed
	StrategyContainerPair  Strategy = "container-pair"  // CLI plus VM-backed daemon that must be started
	StrategyArchive        Strategy = "archive"         // release archive extracted into the bin dir
)

// HookKind names an action run before the package manager installs a tool.
type HookKind string

// HookUnlink unlinks a conflicting package that ships the same binary name.
const HookUnlink HookKind = "unlink"

// Hook is one pre-install action attached to a ToolSpec.
type Hook struct {
	Kind   HookKind
	Target string
}

// ToolSpec describes one managed tool.
// - Command: name that must resolve on PATH once installed.
// - Package: package manager name, defaults to Command.
// - Strategy/Source/Companion: custom backend details.
// - Hooks: ordered pre-install actions.
type ToolSpec struct {
	Command   string
	Package   string
	Backend   Backend
	Group     Group
	Strategy  Strategy
	Source    string
	Companion string
	Hooks     []Hook
}

// Manifest is the ordered list of managed tools, split into fixed groups.
type Manifest struct {
	Core   []ToolSpec
	Brew   []ToolSpec
	Custom []ToolSpec
}

// Tools enumerates every tool in manifest order: core, brew, then custom.
func (m Manifest) Tools() []ToolSpec {
	tools := make([]ToolSpec, 0, len(m.Core)+len(m.Brew)+len(m.Custom))
	tools = append(tools, m.Core...)
	tools = append(tools, m.Brew...)
	tools = append(tools, m.Custom...)
	return tools
}

// Len returns the number of tools across all groups.
func (m Manifest) Len() int {
	return len(m.Core) + len(m.Brew) + len(m.Custom)
}
