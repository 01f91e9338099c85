// Command minuted runs the minute daemon in the foreground without the CLI
// wrapper. Deployments that manage processes externally (systemd, containers)
// use this entrypoint; interactive use goes through `minute start`.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/avlowe/minute/internal/config"
	"github.com/avlowe/minute/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	diagnostic := flag.Bool("diagnostic", false, "enable diagnostic mode with separate DEBUG logs")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	level := *logLevel
	if level == "" {
		level = cfg.Logging.Level
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:    level,
		Development: *diagnostic,
		Diagnostic:  *diagnostic,
	}); err != nil {
		log.Fatalf("minuted: %v", err)
	}
}
