package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	lightwikicmder "github.com/papercomputeco/lightwiki/cmd/lightwiki"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := lightwikicmder.NewLightwikiCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
