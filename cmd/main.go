package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wavecast/wavecast/internal/api"
	"github.com/wavecast/wavecast/internal/events"
	"github.com/wavecast/wavecast/internal/session"
	"github.com/wavecast/wavecast/internal/shared"
	"github.com/wavecast/wavecast/internal/twofactor"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	bus := events.NewBus(logger)

	var store *session.Store
	var keyring *twofactor.Keyring
	if dataDir, err := shared.DataDir(); err == nil {
		store = session.NewStore(session.StoreOpts{
			Storage: session.NewFileStorage(filepath.Join(dataDir, "session.json")),
			Bus:     bus,
			Logger:  logger,
		})
		keyring, _ = twofactor.NewKeyring(dataDir)
	} else {
		logger.Warnf("no data directory, session will not persist: %v", err)
		store = session.NewStore(session.StoreOpts{
			Storage: session.NewFileStorage(filepath.Join(os.TempDir(), "wavecast-session.json")),
			Bus:     bus,
			Logger:  logger,
		})
	}

	client := api.NewClient(api.ClientOpts{
		BaseURL:   config.Platform.APIBaseURL,
		Tokens:    store,
		Bus:       bus,
		Logger:    logger,
		Timeout:   time.Duration(config.Client.TimeoutSeconds) * time.Second,
		RateLimit: config.Client.RateLimit,
	})

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Bus:     bus,
		Session: store,
		API:     client,
		Keyring: keyring,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "wavecast",
		Usage:    "Watch live streams and manage your Wavecast account from the terminal",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize the local cache and create a config file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}
