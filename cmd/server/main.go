package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dgallion1/ragutil/internal/api"
	"github.com/dgallion1/ragutil/internal/config"
	"github.com/dgallion1/ragutil/internal/parser"
	"github.com/dgallion1/ragutil/internal/remote"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		configPath string
		verbose    bool
	)
	flag.StringVar(&configPath, "config", "", "Path to a YAML or JSON config file")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	cfg := config.Load()
	if configPath != "" {
		fc, err := config.LoadFile(configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("load config file")
		}
		config.ApplyFile(&cfg, fc)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	parser.PDFFallback = cfg.PDFFallbackPdftotext

	stats := remote.NewStats(cfg.StatsWindow)
	rc := remote.NewClient(remote.Options{
		Timeout:          cfg.HTTPTimeout,
		RedirectMaxHops:  cfg.RedirectMaxHops,
		MaxResponseBytes: cfg.MaxResponseBytes,
		UserAgent:        cfg.UnitsUserAgent,
		BrowserUserAgent: cfg.BrowserUserAgent,
		Recoveries:       recoveries(cfg.Recoveries),
		FetchASCIIOnly:   cfg.FetchASCIIOnly,
		Stats:            stats,
	}, log.Logger)

	srv := api.NewServer(rc, log.Logger, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("port", cfg.Port).Bool("auth", cfg.APIKey != "").Msg("starting ragutil")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}
}

// recoveries converts configured rules to the client's form. A nil result
// keeps the client's built-in rules.
func recoveries(in []config.Recovery) []remote.Recovery {
	if len(in) == 0 {
		return nil
	}
	out := make([]remote.Recovery, len(in))
	for i, r := range in {
		out[i] = remote.Recovery{HostContains: r.HostContains, Marker: r.Marker, From: r.From, To: r.To}
	}
	return out
}
