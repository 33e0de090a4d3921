package logger

import (
	"io"

	"github.com/fatih/color" // Colored console output per log level
)

// Level printers. Info, Warn and Debug write status and progress to stdout;
// Error writes to stderr so that failures can be separated from progress output.
var (
	infoColor  = color.New(color.FgGreen)
	warnColor  = color.New(color.FgHiMagenta)
	errorColor = color.New(color.FgRed)
	debugColor = color.New(color.FgCyan)
)

var (
	stdout io.Writer = color.Output
	stderr io.Writer = color.Error

	debugEnabled bool
)

// Init enables or disables debug logging.
// When disabled, Debug silently drops its messages.
func Init(enableDebug bool) {
	debugEnabled = enableDebug
}

// SetOutput redirects the stdout and stderr streams used by the printers.
// Passing nil restores the terminal default for that stream.
func SetOutput(out, errOut io.Writer) {
	if out == nil {
		out = color.Output
	}
	if errOut == nil {
		errOut = color.Error
	}
	stdout = out
	stderr = errOut
}

// Info logs informational messages in green.
func Info(format string, a ...any) {
	_, _ = infoColor.Fprintf(stdout, format, a...)
}

// Warn logs warnings in bright magenta.
func Warn(format string, a ...any) {
	_, _ = warnColor.Fprintf(stdout, format, a...)
}

// Error logs errors in red on stderr.
func Error(format string, a ...any) {
	_, _ = errorColor.Fprintf(stderr, format, a...)
}

// Debug logs debug messages in cyan, only when enabled through Init.
func Debug(format string, a ...any) {
	if !debugEnabled {
		return
	}
	_, _ = debugColor.Fprintf(stdout, format, a...)
}
