package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"guardBot/internal/app/runtime"
	"guardBot/internal/infrastructure/config"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	app := cli.App{
		Name:  "guardbot",
		Usage: "group moderation and command bot",
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "dotenv file loaded before reading the environment",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "debug, info, warn or error",
			EnvVars: []string{"LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "text or json",
			EnvVars: []string{"LOG_FORMAT"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		configCmd,
	}
	app.DefaultCommand = runCmd.Name

	return app.Run(args)
}

// runFlags override the matching environment variables.
var runFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "db",
		Usage:   "path of the sqlite database",
		EnvVars: []string{"DATABASE_PATH"},
	},
	&cli.StringFlag{
		Name:    "storage",
		Usage:   "storage driver: sqlite or memory",
		EnvVars: []string{"STORAGE_DRIVER"},
	},
	&cli.StringFlag{
		Name:    "gateway-url",
		Usage:   "websocket url of the chat bridge",
		EnvVars: []string{"GATEWAY_URL"},
	},
	&cli.StringFlag{
		Name:    "metrics-listen",
		Usage:   "address of the admin HTTP server (metrics, health, API)",
		EnvVars: []string{"METRICS_LISTEN"},
	},
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "connect to the bridge and serve",
	Flags: runFlags,
	Action: func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		logger := configureLogger(cfg)

		ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := runtime.Start(ctx, runtime.Options{Config: cfg, Logger: logger})
		if err != nil {
			return err
		}

		waitErr := rt.Wait()
		stopErr := rt.Stop()
		if waitErr != nil {
			return waitErr
		}
		if stopErr != nil {
			return stopErr
		}
		logger.Info("shutdown complete")
		return nil
	},
}

var configCmd = &cli.Command{
	Name:  "config",
	Usage: "print the effective configuration as JSON",
	Flags: runFlags,
	Action: func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		redacted := *cfg
		if redacted.GatewayToken != "" {
			redacted.GatewayToken = "<redacted>"
		}
		if redacted.AdminToken != "" {
			redacted.AdminToken = "<redacted>"
		}
		if redacted.RedisURL != "" {
			redacted.RedisURL = "<redacted>"
		}
		enc := json.NewEncoder(cctx.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(redacted)
	},
}

// loadConfig reads the environment and applies explicitly set flags on top.
func loadConfig(cctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(cctx.String("env-file"))
	if err != nil {
		return nil, err
	}
	overrides := []struct {
		flag   string
		target *string
	}{
		{"db", &cfg.DatabasePath},
		{"storage", &cfg.StorageDriver},
		{"gateway-url", &cfg.GatewayURL},
		{"metrics-listen", &cfg.MetricsListen},
		{"log-level", &cfg.LogLevel},
		{"log-format", &cfg.LogFormat},
	}
	for _, o := range overrides {
		if cctx.IsSet(o.flag) {
			*o.target = cctx.String(o.flag)
		}
	}
	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configureLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
