package gen

import (
	"fmt"
	"strings"
)

// UnsupportedFormatError is raised when a requested format name is not
// one of the known backends.
type UnsupportedFormatError struct {
	Format string
	Known  []string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q, known formats: %s", e.Format, strings.Join(e.Known, ", "))
}

// ToolchainNotFoundError is raised when a backend's external build tool
// or IDE cannot be located. Generation may already have succeeded when
// this surfaces; only invocation is affected.
type ToolchainNotFoundError struct {
	Tool string
	Err  error
}

func (e *ToolchainNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not locate %s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("could not locate %s", e.Tool)
}

func (e *ToolchainNotFoundError) Unwrap() error { return e.Err }

// ExternalToolFailure is raised when the invoked build tool exits
// non-zero. Both captured streams ride along so callers can print the
// full diagnostic context.
type ExternalToolFailure struct {
	Tool   string
	Result *BuildResult
}

func (e *ExternalToolFailure) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s exited with status %d", e.Tool, e.Result.ExitCode)
	if out := strings.TrimSpace(e.Result.Stdout); out != "" {
		sb.WriteString("\nstdout:\n")
		sb.WriteString(out)
	}
	if errOut := strings.TrimSpace(e.Result.Stderr); errOut != "" {
		sb.WriteString("\nstderr:\n")
		sb.WriteString(errOut)
	}
	return sb.String()
}
