package main

import (
	"context"
	"os"

	"github.com/releaserun/version-badge-action/internal/actions"
	"github.com/releaserun/version-badge-action/internal/cli"
	"github.com/releaserun/version-badge-action/internal/logging"
)

func main() {
	os.Exit(run())
}

// run is the outermost error boundary: every failure, including a panic,
// terminates through the structured failure channel rather than crashing
// the process.
func run() (code int) {
	rep := actions.NewFromEnv()

	defer func() {
		if r := recover(); r != nil {
			rep.SetFailed(panicMessage(r))
			code = 1
		}
	}()

	cmd := cli.New(rep)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		logging.Default().Error().Err(err).Msg("run failed")
		rep.SetFailed(err.Error())
		return 1
	}
	return 0
}

func panicMessage(r any) string {
	switch v := r.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return "unexpected failure"
	}
}
