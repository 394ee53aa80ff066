package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/spf13/pflag"

	"github.com/kokukuma/vical-verifier/internal/certstore"
	"github.com/kokukuma/vical-verifier/internal/config"
	"github.com/kokukuma/vical-verifier/internal/logger"
	"github.com/kokukuma/vical-verifier/internal/server"
	"github.com/kokukuma/vical-verifier/vical"
)

func main() {
	configPath := pflag.StringP("config", "c", os.Getenv("VICAL_CONFIG"), "YAML configuration file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	l := logger.SetupLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		l.Error("invalid config", "error", err)
		os.Exit(1)
	}

	trust, err := vical.LoadTrustChain(cfg.Root, cfg.Intermediate, cfg.Signer)
	if err != nil {
		l.Error("failed to load trust chain", "error", err)
		os.Exit(1)
	}
	if err := vical.VerifyChain(trust.Root, trust.Intermediate, trust.Signer); err != nil {
		l.Error("configured trust chain does not verify", "error", err)
		os.Exit(1)
	}

	opts := []server.Option{
		server.WithLogger(l),
		server.WithMaxUploadBytes(cfg.MaxUploadBytes),
		server.WithVerifierOptions(vical.WithRenames(cfg.RenameMap())),
	}
	if cfg.SkipPayloadVerification {
		opts = append(opts, server.WithVerifierOptions(vical.SkipVerifyPayload()))
	}
	if cfg.SQLitePath != "" {
		catalog, err := certstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			l.Error("failed to open catalog", "error", err)
			os.Exit(1)
		}
		defer catalog.Close()
		opts = append(opts, server.WithCatalog(catalog))
	}

	r := server.NewRouter(server.NewServer(trust, opts...))
	h := handlers.RecoveryHandler()(handlers.CombinedLoggingHandler(os.Stdout, r))

	l.Info("starting VICAL verification server", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, h); err != nil {
		l.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
