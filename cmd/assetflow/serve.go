package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/assetflow/internal/imagegen"
	"github.com/your-org/assetflow/internal/registration"
	"github.com/your-org/assetflow/pkg/config"
	"github.com/your-org/assetflow/pkg/logger"
	"github.com/your-org/assetflow/pkg/tracing"
)

var serveCmd = &cobra.Command{
	Use:          "serve",
	Short:        "Run the registration HTTP API",
	SilenceUsage: true,
	RunE:         runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logr, err := logger.New(cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	logr.Info("configuration loaded",
		zap.String("chain_rpc_url", cfg.Chain.RPCURL),
		zap.String("pinning_endpoint", cfg.Pinning.Endpoint),
		zap.String("signer_key", logger.Redact(cfg.Chain.PrivateKey)),
	)

	traceShutdown, err := tracing.Init(ctx, tracing.Config{
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
		Attributes:     parseResourceAttributes(cfg.Tracing.ResourceAttr),
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer traceShutdown(context.Background()) //nolint:errcheck

	p, closers, err := buildPipeline(cfg, logr, "")
	if err != nil {
		return err
	}
	defer closers.close(context.Background(), logr)

	expander := imagegen.NewExpander(imagegen.ExpanderConfig{
		BaseURL: cfg.ImageGen.PromptAPIURL,
		APIKey:  cfg.ImageGen.PromptAPIKey,
		Model:   cfg.ImageGen.PromptModel,
		Keyword: cfg.ImageGen.ModelKeyword,
		Timeout: cfg.ImageGen.Timeout,
	}, logr)

	var provider imagegen.Provider
	if cfg.ImageGen.TogetherAPIKey != "" || cfg.ImageGen.AbloAPIKey != "" {
		provider, err = imagegen.New(imagegen.Config{
			Provider:       cfg.ImageGen.Provider,
			TogetherAPIKey: cfg.ImageGen.TogetherAPIKey,
			TogetherModel:  cfg.ImageGen.TogetherModel,
			LoraPath:       cfg.ImageGen.LoraPath,
			LoraScale:      cfg.ImageGen.LoraScale,
			AbloAPIKey:     cfg.ImageGen.AbloAPIKey,
			AbloStyleID:    cfg.ImageGen.AbloStyleID,
			ModelKeyword:   cfg.ImageGen.ModelKeyword,
			Timeout:        cfg.ImageGen.Timeout,
		}, logr)
		if err != nil {
			return fmt.Errorf("init image provider: %w", err)
		}
	}

	handler := registration.NewHTTPHandler(p, expander, provider, logr, cfg.Upload.MaxSizeBytes, cfg.Upload.MultipartMemBytes)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Error("http server shutdown failed", zap.Error(err))
		}
	}()

	logr.Info("assetflow api starting", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func parseResourceAttributes(raw string) map[string]string {
	attrs := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" || !strings.Contains(pair, "=") {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		attrs[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return attrs
}
