package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/openfga/flwor/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cmd.NewRootCommand()

	evalCmd := cmd.NewEvalCommand()
	rootCmd.AddCommand(evalCmd)

	versionCmd := cmd.NewVersionCommand()
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
