package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-bulk/pkg/config"
)

func main() {
	flags, err := ParseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		PrintHelp()
		return
	}
	if err != nil {
		os.Exit(2)
	}

	if *flags.JSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if *flags.Version {
		PrintVersion()
		return
	}
	if *flags.Help {
		PrintHelp()
		return
	}
	if *flags.CreateConfig {
		createConfigTemplate("config.yaml")
		return
	}

	cfg, err := config.Read(*flags.Config)
	if err != nil {
		log.Fatal().Err(err).Str("config", *flags.Config).Msg("config load failed")
	}
	applyOverrides(cfg, flags)
	if *flags.Template != "" && cfg.Source.Path == "" {
		cfg.Source.Path = *flags.Template
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Str("config", *flags.Config).Msg("invalid configuration")
	}
	cfg.SetDefaults()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *flags.Template != "" {
		err = writeTemplate(ctx, cfg, *flags.Template, log.Logger)
	} else {
		err = runLoad(ctx, cfg, *flags.DryRun, log.Logger)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("load failed")
	}
}

// createConfigTemplate creates a sample configuration file
func createConfigTemplate(path string) {
	if err := config.Save(path, config.Sample()); err != nil {
		log.Fatal().Err(err).Msg("failed to save config")
	}

	fmt.Printf("✓ Created sample config: %s\n", path)
	fmt.Println("Edit the file with your database credentials and run:")
	fmt.Printf("  tdtpbulk -config %s -file orders.csv\n", path)
}
