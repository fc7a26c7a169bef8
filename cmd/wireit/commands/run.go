package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/wireit-go/wireit/internal/app"
	"github.com/wireit-go/wireit/internal/core/ports"
	"github.com/wireit-go/wireit/internal/wiring"
)

func (c *CLI) attachRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("watch", false, "Re-run the script when its watched files change")
	cmd.Flags().Int("parallel", runtime.NumCPU(), "Maximum number of one-shot scripts running at once")
	cmd.Flags().String("cache", string(wiring.CacheLocal), "Output cache backend: local, s3, or none")
	cmd.Flags().String("s3-bucket", "", "S3 bucket for the s3 cache backend")
	cmd.Flags().String("s3-prefix", "", "S3 key prefix for the s3 cache backend")
	cmd.Flags().String("failure-mode", "continue", "Failure-mode policy: continue, no-new, or kill")
}

func (c *CLI) runE(cmd *cobra.Command, args []string) error {
	var scriptArg string
	if len(args) > 0 {
		scriptArg = args[0]
	}

	scriptName, packageDir, err := c.resolveLaunch(scriptArg)
	if err != nil {
		return err
	}

	watch, _ := cmd.Flags().GetBool("watch")
	parallel, _ := cmd.Flags().GetInt("parallel")
	cache, _ := cmd.Flags().GetString("cache")
	s3Bucket, _ := cmd.Flags().GetString("s3-bucket")
	s3Prefix, _ := cmd.Flags().GetString("s3-prefix")
	failureModeFlag, _ := cmd.Flags().GetString("failure-mode")

	failureMode, err := parseFailureMode(failureModeFlag)
	if err != nil {
		return err
	}

	return c.app.Run(cmd.Context(), packageDir, scriptName, app.RunOptions{
		Watch:       watch,
		Parallelism: parallel,
		FailureMode: failureMode,
		Cache:       wiring.CacheKind(cache),
		S3Bucket:    s3Bucket,
		S3Prefix:    s3Prefix,
		Stdout:      cmd.OutOrStdout(),
		Stderr:      cmd.ErrOrStderr(),
	})
}

func parseFailureMode(s string) (ports.FailureMode, error) {
	switch s {
	case "continue":
		return ports.FailureModeContinue, nil
	case "no-new":
		return ports.FailureModeNoNew, nil
	case "kill":
		return ports.FailureModeKill, nil
	default:
		return 0, fmt.Errorf("unknown failure mode %q: must be continue, no-new, or kill", s)
	}
}
