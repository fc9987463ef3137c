package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nftstake/config"
	"nftstake/core"
	"nftstake/core/genesis"
	"nftstake/observability/logging"
	telemetry "nftstake/observability/otel"
	"nftstake/rpc"
	"nftstake/storage"
	"nftstake/storage/eventindex"
)

const (
	serviceName     = "nftstaked"
	shutdownTimeout = 10 * time.Second
)

var version = "dev"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML file (overrides config GenesisFile)")
	allowMigrate := flag.Bool("allow-migrate", false, "Open a ledger written with a different schema version (manual migrations only)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configFile, *genesisFlag, *allowMigrate); err != nil {
		slog.Error("nftstaked exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, genesisOverride string, allowMigrate bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logOpts := logging.Options{
		Service: serviceName,
		Env:     cfg.Environment,
		Level:   logging.ParseLevel(cfg.Logging.Level),
	}
	if strings.TrimSpace(cfg.Logging.File) != "" {
		logOpts.File = &logging.FileOptions{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
		}
	}
	logger := logging.New(logOpts)

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Headers:        telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:        cfg.Telemetry.Metrics,
		Traces:         cfg.Telemetry.Traces,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	var spec *genesis.GenesisSpec
	genesisPath := strings.TrimSpace(genesisOverride)
	if genesisPath == "" {
		genesisPath = strings.TrimSpace(cfg.GenesisFile)
	}
	recordDeposit := cfg.Staking.RecordDeposit
	if genesisPath != "" {
		spec, err = genesis.LoadGenesisSpec(genesisPath)
		if err != nil {
			return fmt.Errorf("load genesis: %w", err)
		}
		if spec.RecordDeposit != nil {
			recordDeposit = *spec.RecordDeposit
		}
	}

	db, err := storage.NewLevelDB(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	var index *eventindex.Index
	if driver := strings.TrimSpace(cfg.Indexer.Driver); driver != "" {
		index, err = eventindex.Open(driver, cfg.Indexer.DSN)
		if err != nil {
			return err
		}
		defer index.Close()
		logger.Info("event index enabled", slog.String("driver", driver))
	}

	opts := core.Options{
		ChainID:       cfg.ChainID,
		ProgramLabel:  cfg.Staking.ProgramLabel,
		RecordDeposit: recordDeposit,
		Logger:        logger,
		AllowMigrate:  allowMigrate,
	}
	if index != nil {
		opts.Receipts = index
	}
	node, err := core.NewNode(db, opts)
	if err != nil {
		return err
	}
	if spec != nil {
		if err := node.ApplyGenesis(spec); err != nil {
			return fmt.Errorf("apply genesis: %w", err)
		}
	}

	authToken := ""
	if cfg.RPC.AuthTokenEnv != "" {
		authToken = os.Getenv(cfg.RPC.AuthTokenEnv)
	}
	jwtSecret := ""
	if cfg.RPC.JWTSecretEnv != "" {
		jwtSecret = os.Getenv(cfg.RPC.JWTSecretEnv)
	}
	if strings.TrimSpace(authToken) == "" && strings.TrimSpace(jwtSecret) == "" {
		logger.Warn("rpc auth token not set; stake_sendTransaction is disabled",
			slog.String("env", cfg.RPC.AuthTokenEnv))
	}
	server := rpc.NewServer(node, logger, rpc.ServerConfig{
		AuthToken:         authToken,
		JWTSecret:         jwtSecret,
		JWTIssuer:         cfg.RPC.JWTIssuer,
		RateLimitPerSec:   cfg.RPC.RateLimitPerSec,
		RateLimitBurst:    cfg.RPC.RateLimitBurst,
		ReadHeaderTimeout: time.Duration(cfg.RPC.ReadHeaderTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.RPC.WriteTimeout) * time.Second,
		TrustForwardedFor: cfg.RPC.TrustForwardedFor,
	})

	if index != nil {
		server.SetEventIndex(index)
	}

	logger.Info("starting nftstaked",
		slog.String("network", cfg.NetworkName),
		slog.Uint64("chainId", cfg.ChainID),
		slog.String("program", cfg.Staking.ProgramLabel),
		slog.Uint64("recordDeposit", recordDeposit))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start(cfg.RPC.Address)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("rpc shutdown: %w", err)
	}
	select {
	case err := <-serveErr:
		return err
	case <-shutdownCtx.Done():
		return nil
	}
}
