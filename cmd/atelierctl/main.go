package main

import (
	"fmt"
	"os"

	"atelier/internal/cli"
	"atelier/internal/config"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)

	root := cli.NewRootCmd(&cli.App{Config: cfg, Logger: logger})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
