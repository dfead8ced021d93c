package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"

	"TCAVis/internal/di"
	"TCAVis/pkg/config"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path (empty for defaults)")
	envFile := flag.String("env", ".env", "dotenv file loaded before the config")
	checkOnly := flag.Bool("check", false, "validate the config and exit")
	flag.Parse()

	if err := run(*configPath, *envFile, *checkOnly); err != nil {
		log.Fatal(err)
	}
}

func run(configPath, envFile string, checkOnly bool) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if checkOnly {
		log.Printf("config ok: environment=%s store=%s kafka=%t", cfg.Environment, cfg.Store.Backend, cfg.Kafka.Enabled)
		return nil
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	return app.Run(context.Background())
}
