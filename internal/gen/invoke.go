package gen

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
)

// runTool executes an external build tool with both output streams fully
// captured. A non-zero exit returns the captured result together with an
// *ExternalToolFailure; a tool that could not be started at all returns
// only an error. It is a variable so tests can substitute a fake tool.
var runTool = execTool

func execTool(dir, tool string, args ...string) (*BuildResult, error) {
	cmd := exec.Command(tool, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &BuildResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, &ExternalToolFailure{Tool: tool, Result: res}
		}
		return nil, fmt.Errorf("failed to invoke %s: %w", tool, err)
	}
	return res, nil
}
