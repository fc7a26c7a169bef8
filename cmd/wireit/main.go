// Package main is the entry point for the wireit script runner.
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/wireit-go/wireit/cmd/wireit/commands"
	"github.com/wireit-go/wireit/internal/adapters/logger"
	"github.com/wireit-go/wireit/internal/app"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := logger.New()
	log.SetOutput(stderr)

	cli := commands.New(app.New(), resolveLaunch)
	cli.SetArgs(args)
	cli.SetOutput(os.Stdout, stderr)

	if err := cli.Execute(ctx); err != nil {
		if errors.Is(err, app.ErrAnalysisFailed) {
			return 1
		}
		if errors.Is(err, context.Canceled) {
			return 0
		}
		log.Error(err)
		return 1
	}
	return 0
}

// resolveLaunch adapts detectLaunch to commands.LaunchResolver's signature.
func resolveLaunch(argScript string) (scriptName, packageDir string, err error) {
	l, err := detectLaunch(argScript)
	if err != nil {
		return "", "", err
	}
	return l.ScriptName, l.PackageDir, nil
}
