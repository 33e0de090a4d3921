package installer

import (
	"context"

	"zangarmarsh/internal/config"
	"zangarmarsh/internal/manifest"
)

// Outcome is what happened to one tool during a run.
type Outcome int

const (
	OutcomeAlreadyPresent       Outcome = iota // Command already resolved, nothing done
	OutcomeInstalled                           // Package manager or strategy installed it
	OutcomeInstallFailed                       // Install attempted and failed
	OutcomeLinkConflictResolved                // Install hit a link conflict fixed by a forced re-link
	OutcomeDryRun                              // Dry run reported the intended actions only
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAlreadyPresent:
		return "already_present"
	case OutcomeInstalled:
		return "installed"
	case OutcomeInstallFailed:
		return "install_failed"
	case OutcomeLinkConflictResolved:
		return "link_conflict_resolved"
	case OutcomeDryRun:
		return "dry_run"
	}
	return "unknown"
}

// Failed reports whether the outcome counts as a failure.
func (o Outcome) Failed() bool {
	return o == OutcomeInstallFailed
}

// Result is the outcome of installing one tool. Err is set on failures.
type Result struct {
	Tool    string
	Outcome Outcome
	Err     error
}

// StepStatus is the status of a best-effort step.
type StepStatus int

const (
	StepDone           StepStatus = iota // Step ran and succeeded
	StepIgnoredFailure                   // Step failed and the failure was deliberately ignored
	StepSkipped                          // Step had nothing to do
)

func (s StepStatus) String() string {
	switch s {
	case StepDone:
		return "done"
	case StepIgnoredFailure:
		return "ignored_failure"
	case StepSkipped:
		return "skipped"
	}
	return "unknown"
}

// Step records a best-effort action, such as the uninstall a respec run
// performs before reinstalling. Its failures never fail the tool.
type Step struct {
	Name   string
	Status StepStatus
	Err    error
}

// Backend installs a single tool according to the run configuration.
type Backend interface {
	Install(ctx context.Context, tool manifest.ToolSpec, cfg config.RunConfig) Result
}

// Summary aggregates per-tool results of one run. It is never persisted.
type Summary struct {
	Results     []Result
	Installed   int
	Present     int
	Planned     int
	Missing     int
	MissingList []string
	Failed      []string
}

// Add folds one install result into the summary.
func (s *Summary) Add(r Result) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case OutcomeAlreadyPresent:
		s.Present++
	case OutcomeInstalled, OutcomeLinkConflictResolved:
		s.Installed++
	case OutcomeDryRun:
		s.Planned++
	case OutcomeInstallFailed:
		s.Failed = append(s.Failed, r.Tool)
	}
}
