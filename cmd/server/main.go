package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"attendance/internal/app/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := server.Run(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
