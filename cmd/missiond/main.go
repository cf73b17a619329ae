// Command missiond is the mission control server daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/openclaw/mission-control/config"
	"github.com/openclaw/mission-control/internal/app"
	"github.com/openclaw/mission-control/internal/version"
)

var (
	configPath  = flag.String("config", "mission-control.yaml", "path to config file")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String("missiond"))
		return
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", *configPath, err)
	}
	logger := app.NewLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, logger); err != nil {
		logger.Error("missiond exited", "error", err)
		os.Exit(1)
	}
}
