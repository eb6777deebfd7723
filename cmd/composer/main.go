// Command composer is the CLI entry point for the manifest-driven
// repository composer: `compose --manifest <path> --output <dir>`.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/forge/composer/internal/cliapp"
	"github.com/forge/composer/pkg/logger"
)

func main() {
	log := logger.NewLogger(logger.DefaultConfig())
	ctx := logger.ContextWithLogger(context.Background(), log)

	root := cliapp.RootCmd()
	root.SetContext(ctx)

	if err := root.Execute(); err != nil {
		var exitErr *cliapp.ExitCodeError
		if errors.As(err, &exitErr) {
			log.Error("compose failed", "error", exitErr.Err)
			os.Exit(exitErr.Code)
		}
		log.Error("compose failed", "error", err)
		os.Exit(1)
	}
}
