package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/a2y-d5l/go-coord/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := cli.NewRootCmd("coordctl",
		"Exercise the go-coord components under contention",
		"coordctl runs producer/consumer, withdrawal, reader/writer and fairness "+
			"scenarios against the go-coord components and checks their invariants.")

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
