// Package planning parses planning service flags and launches the service.
package planning

import (
	"context"
	"flag"

	entrypoint "github.com/planifica/sigep/internal/platform/cmd"
	server "github.com/planifica/sigep/internal/services/planning/api/http"
)

// Config holds planning command configuration.
type Config struct {
	Port int `env:"SIGEP_PLANNING_PORT" envDefault:"8080"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The planning HTTP server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the planning HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServicePlanning, func(context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
