package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/cryptochan/internal/config"
	"github.com/danmuck/cryptochan/internal/daemon"
	"github.com/danmuck/cryptochan/internal/observability"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "", "path to cryptod config.toml")
	flag.Parse()

	_ = godotenv.Load()
	logger := observability.InitLogger("cryptod")

	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cryptod: %v\n", err)
		os.Exit(1)
	}
	logger.Info().Str("config", *configPath).Msg("starting")

	svc := daemon.NewService(cfg)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "cryptod: %v\n", err)
		os.Exit(1)
	}
}
