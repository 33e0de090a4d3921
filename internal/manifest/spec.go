package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedSpec is returned for spec strings that do not parse.
var ErrMalformedSpec = errors.New("malformed tool spec")

// ParseSpec splits a spec string of the form "<command> [--package <alias>]"
// into a ToolSpec. Package defaults to the command name.
func ParseSpec(s string) (ToolSpec, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ToolSpec{}, fmt.Errorf("%w: empty command in %q", ErrMalformedSpec, s)
	}

	tool := ToolSpec{Command: fields[0]}
	if strings.HasPrefix(tool.Command, "-") {
		return ToolSpec{}, fmt.Errorf("%w: %q starts with an option, expected a command name", ErrMalformedSpec, s)
	}

	rest := fields[1:]
	for len(rest) > 0 {
		switch rest[0] {
		case "--package":
			if len(rest) < 2 || strings.HasPrefix(rest[1], "-") {
				return ToolSpec{}, fmt.Errorf("%w: --package needs a value in %q", ErrMalformedSpec, s)
			}
			if tool.Package != "" {
				return ToolSpec{}, fmt.Errorf("%w: --package given twice in %q", ErrMalformedSpec, s)
			}
			tool.Package = rest[1]
			rest = rest[2:]
		default:
			return ToolSpec{}, fmt.Errorf("%w: unexpected %q in %q", ErrMalformedSpec, rest[0], s)
		}
	}

	if tool.Package == "" {
		tool.Package = tool.Command
	}
	return tool, nil
}
