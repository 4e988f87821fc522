package gen

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/heaths/go-vssetup"
)

// MSBuildLocator finds the MSBuild executable. The Visual Studio setup
// API is only meaningful on a machine with an installation, so the
// lookup is behind an interface that tests can stub.
type MSBuildLocator interface {
	FindMSBuild() (string, error)
}

// VSSetupLocator queries the Visual Studio setup configuration for
// installed instances and falls back to PATH lookup.
type VSSetupLocator struct{}

func (VSSetupLocator) FindMSBuild() (string, error) {
	instances, err := vssetup.Instances(false)
	if err == nil {
		for _, inst := range instances {
			root, perr := inst.InstallationPath()
			inst.Close()
			if perr != nil {
				continue
			}
			candidate := filepath.Join(root, "MSBuild", "Current", "Bin", "MSBuild.exe")
			if _, serr := os.Stat(candidate); serr == nil {
				return candidate, nil
			}
		}
	}

	if path, lerr := exec.LookPath("msbuild"); lerr == nil {
		return path, nil
	}
	return "", &ToolchainNotFoundError{Tool: "msbuild", Err: err}
}
