package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/Koyaani/titaniumcar/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli.Handle(ctx, drive)
}
