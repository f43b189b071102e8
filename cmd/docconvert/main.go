package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/narwhalmedia/docconvert/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, InitializeApp); err != nil {
		stop()
		os.Exit(1)
	}
}
