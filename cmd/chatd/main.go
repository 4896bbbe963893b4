package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/rolechat/internal/config"
	"github.com/matheus3301/rolechat/internal/daemon"
	"github.com/matheus3301/rolechat/internal/workspace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	workspaceFlag := flag.String("workspace", "", "workspace name (overrides config default)")
	configFlag := flag.String("config", "", "config file (default ~/.rolechat/config.toml)")
	levelFlag := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	configPath := *configFlag
	if configPath == "" {
		configPath = workspace.ConfigPath()
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	name := workspace.Resolve(*workspaceFlag, cfg)
	if err := workspace.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level, err := zapcore.ParseLevel(*levelFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{Workspace: name, Config: cfg, LogLevel: level}),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
	)

	app.Run()
}
