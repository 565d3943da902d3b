// Command remotesim runs the in-memory budget API used for development.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/finnysync/internal/logging"
	"github.com/dmitrijs2005/finnysync/internal/remotesim"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	cfg, err := remotesim.LoadConfig(args)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, closer, err := logging.New(cfg.LogOptions())
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	return remotesim.NewApp(cfg, logger).Run(ctx)
}
