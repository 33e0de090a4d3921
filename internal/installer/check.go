package installer

import (
	"zangarmarsh/internal/logger"
	"zangarmarsh/internal/manifest"
	"zangarmarsh/internal/runner"
)

// CheckStatus reports which manifest tools resolve on the search path.
// Installed counts tools that resolve; Missing and MissingList cover the rest.
// It only looks tools up and never calls a backend.
func CheckStatus(m manifest.Manifest, finder runner.PathFinder) Summary {
	var s Summary
	for _, tool := range m.Tools() {
		if path, err := finder.LookPath(tool.Command); err == nil {
			logger.Info("[INFO] check_status:: [%s] %s: installed at %s\n", tool.Group, tool.Command, path)
			s.Installed++
			continue
		}
		logger.Warn("[WARN] check_status:: [%s] %s: MISSING\n", tool.Group, tool.Command)
		s.Missing++
		s.MissingList = append(s.MissingList, tool.Command)
	}

	logger.Info("[INFO] check_status:: %d installed, %d missing\n", s.Installed, s.Missing)
	if s.Missing > 0 {
		logger.Warn("[WARN] check_status:: Missing tools: %v\n", s.MissingList)
		logger.Warn("[WARN] check_status:: Run with --spec to install them\n")
	}
	return s
}
