package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/roqcodes/ZyraClient/internal/backend"
	"github.com/roqcodes/ZyraClient/internal/chat"
	"github.com/roqcodes/ZyraClient/internal/cli"
	"github.com/roqcodes/ZyraClient/internal/config"
	"github.com/roqcodes/ZyraClient/internal/shop"
	"github.com/roqcodes/ZyraClient/internal/store"
	"github.com/roqcodes/ZyraClient/internal/telemetry"
	"github.com/roqcodes/ZyraClient/internal/transcript"
)

func main() {
	cfg := config.Load()

	var callbackURL string
	flag.StringVar(&cfg.Shop, "shop", cfg.Shop, "Shop domain (as passed by the install link)")
	flag.StringVar(&cfg.SessionID, "session", cfg.SessionID, "Resume an existing chat session by id")
	flag.StringVar(&cfg.BackendURL, "backend", cfg.BackendURL, "Zyra backend base URL")
	flag.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "Path to the local transcript database")
	flag.StringVar(&callbackURL, "callback", "", "Finish installation from a pasted OAuth callback URL")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging")
	flag.Parse()

	logger, err := telemetry.InitLogger(cfg.LogLevel, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize telemetry: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	api := backend.NewClient(cfg.BackendURL, logger)
	resolver := shop.NewResolver(shop.NewStateStorage(st, logger), api, cfg.Shop, logger)
	recorder := transcript.New(st, logger)
	client := chat.NewClient(api, resolver, recorder, logger, tracer, meter)
	app := cli.New(cfg, client, resolver, api, logger, os.Stdin, os.Stdout)

	if callbackURL != "" {
		if err := app.CompleteAuth(ctx, callbackURL); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
