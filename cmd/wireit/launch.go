package main

import (
	"os"
	"path/filepath"

	"github.com/wireit-go/wireit/internal/core/domain"
)

// runnerPrefixes are the environment variable prefixes set by the
// package-manager runners this tool expects to be invoked through; npm,
// pnpm, and yarn all emulate npm's lifecycle variables for compatibility
// with tools written against them.
var runnerPrefixes = []string{"npm", "pnpm", "yarn"}

// launch is the runner-supplied context for one invocation.
type launch struct {
	ScriptName string
	PackageDir string
}

// detectLaunch validates that the process was invoked through a
// package-manager runner's lifecycle machinery and resolves the script to
// run and the package directory it belongs to. argScript, if non-empty, is
// the script name given as the first positional CLI argument; it must
// agree with the runner's own idea of which script is running.
func detectLaunch(argScript string) (launch, error) {
	for _, prefix := range runnerPrefixes {
		event := os.Getenv(prefix + "_lifecycle_event")
		if event == "" {
			continue
		}

		scriptName := os.Getenv(prefix + "_lifecycle_script_name")
		if scriptName == "" {
			scriptName = event
		}
		if event != scriptName {
			return launch{}, domain.ErrLaunchedIncorrectly
		}
		if argScript != "" && argScript != scriptName {
			return launch{}, domain.ErrLaunchedIncorrectly
		}

		packageDir, err := os.Getwd()
		if err != nil {
			return launch{}, err
		}
		if manifestPath := os.Getenv(prefix + "_package_json"); manifestPath != "" {
			packageDir = filepath.Dir(manifestPath)
		}

		return launch{ScriptName: scriptName, PackageDir: packageDir}, nil
	}
	return launch{}, domain.ErrLaunchedIncorrectly
}
