// Package actions emits GitHub Actions workflow commands and step outputs.
// Everything here is fire-and-forget: emission failures are logged and
// swallowed so the side channel can never fail a run.
package actions

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/releaserun/version-badge-action/internal/logging"
)

// Reporter writes workflow commands to Out and step outputs to the file
// named by OutputPath (the GITHUB_OUTPUT contract). A zero OutputPath
// disables output recording, which is the case for local runs.
type Reporter struct {
	Out        io.Writer
	OutputPath string
}

// NewFromEnv builds a Reporter wired to stdout and GITHUB_OUTPUT.
func NewFromEnv() *Reporter {
	return &Reporter{
		Out:        os.Stdout,
		OutputPath: os.Getenv("GITHUB_OUTPUT"),
	}
}

// Output records a step output. Multi-line values use the heredoc-style
// delimiter syntax required by the GITHUB_OUTPUT file format.
func (r *Reporter) Output(name, value string) {
	if r.OutputPath == "" {
		logging.Default().Debug().Str("name", name).Msg("no GITHUB_OUTPUT file, output dropped")
		return
	}
	f, err := os.OpenFile(r.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logging.Default().Warn().Err(err).Str("name", name).Msg("failed to open output file")
		return
	}
	defer f.Close()

	var line string
	if strings.Contains(value, "\n") {
		delim := outputDelimiter(value)
		line = fmt.Sprintf("%s<<%s\n%s\n%s\n", name, delim, value, delim)
	} else {
		line = fmt.Sprintf("%s=%s\n", name, value)
	}
	if _, err := f.WriteString(line); err != nil {
		logging.Default().Warn().Err(err).Str("name", name).Msg("failed to write output")
	}
}

// Warningf emits a warning annotation.
func (r *Reporter) Warningf(format string, args ...any) {
	r.command("warning", fmt.Sprintf(format, args...))
}

// Noticef emits a notice annotation.
func (r *Reporter) Noticef(format string, args ...any) {
	r.command("notice", fmt.Sprintf(format, args...))
}

// Mask marks a value as sensitive so the runner scrubs it from logs. Must
// be called before the value can appear in any output.
func (r *Reporter) Mask(value string) {
	if value == "" {
		return
	}
	r.command("add-mask", value)
}

// SetFailed emits an error annotation with the failure message. The caller
// is responsible for the process exit code.
func (r *Reporter) SetFailed(message string) {
	r.command("error", message)
}

func (r *Reporter) command(name, message string) {
	if r.Out == nil {
		return
	}
	fmt.Fprintf(r.Out, "::%s::%s\n", name, escapeData(message))
}

// escapeData applies the workflow-command data escaping rules.
func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	return s
}

// outputDelimiter returns a heredoc delimiter not present in value.
func outputDelimiter(value string) string {
	delim := "EOF"
	for strings.Contains(value, delim) {
		delim += "_"
	}
	return delim
}
