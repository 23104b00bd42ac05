package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/assetflow/internal/asset"
	"github.com/your-org/assetflow/internal/ledger"
	"github.com/your-org/assetflow/internal/pinning"
	"github.com/your-org/assetflow/internal/pipeline"
	"github.com/your-org/assetflow/internal/result"
	"github.com/your-org/assetflow/pkg/config"
	"github.com/your-org/assetflow/pkg/kafka"
	"github.com/your-org/assetflow/pkg/logger"
	"github.com/your-org/assetflow/pkg/storage/objectstore"

	kafkago "github.com/segmentio/kafka-go"
)

var (
	testOnly   bool
	outputPath string
)

var rootCmd = &cobra.Command{
	Use:          "assetflow <imagePath> <prompt>",
	Short:        "Pin an image to IPFS and register it as an on-chain asset",
	Long:         "Uploads a local image to a content-addressed pinning service, derives registration metadata from the prompt, submits an on-chain registration, and writes a durable result record.",
	SilenceUsage: true,
	RunE:         runPipeline,
}

func init() {
	rootCmd.Flags().BoolVar(&testOnly, "test", false, "validate configuration and exit without running the pipeline")
	rootCmd.Flags().StringVar(&outputPath, "output", "", "result file path (overrides RESULT_PATH)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if testOnly {
		if err := cfg.Validate(); err != nil {
			return err
		}
		fmt.Println("configuration ok")
		return nil
	}

	if len(args) < 2 {
		return fmt.Errorf("usage: assetflow <imagePath> <prompt>")
	}
	imagePath := args[0]
	prompt := strings.Join(args[1:], " ")

	if err := cfg.Validate(); err != nil {
		return err
	}

	logr, err := logger.New(cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, closers, err := buildPipeline(cfg, logr, outputPath)
	if err != nil {
		return err
	}
	defer closers.close(context.Background(), logr)

	res, err := p.Run(ctx, asset.UploadRequest{
		FilePath: imagePath,
		Prompt:   prompt,
	})
	if err != nil {
		return err
	}

	fmt.Printf("registered %q\n", res.Title)
	fmt.Printf("  cid:      %s\n", res.IpfsCid)
	fmt.Printf("  tx:       %s\n", res.TxHash)
	fmt.Printf("  view:     %s\n", res.ViewURL)
	fmt.Printf("  explorer: %s\n", res.ExplorerURL)
	if res.IPAssetURL != "" {
		fmt.Printf("  ip asset: %s\n", res.IPAssetURL)
	}
	return nil
}

// buildPipeline wires the pipeline's collaborators from configuration. The
// archive store and event producer are optional and only built when
// configured.
func buildPipeline(cfg *config.Config, logr *zap.Logger, resultPath string) (*pipeline.Pipeline, *closers, error) {
	cl := &closers{}

	store := pinning.New(pinning.Config{
		Endpoint:  cfg.Pinning.Endpoint,
		JWT:       cfg.Pinning.JWT,
		APIKey:    cfg.Pinning.APIKey,
		APISecret: cfg.Pinning.APISecret,
		Timeout:   cfg.Pinning.Timeout,
	})

	registrar := ledger.NewRegistrar(
		ledger.NewHTTPClient(cfg.Chain.RPCURL, cfg.Chain.Timeout),
		ledger.Config{
			ChainID:              cfg.Chain.ChainID,
			TokenContractAddress: cfg.Chain.TokenContractAddress,
			GatewayURL:           cfg.Pinning.GatewayURL,
			ExplorerURL:          cfg.Chain.ExplorerURL,
			IPAssetURL:           cfg.Chain.IPAssetURL,
			RoyaltyPercentage:    cfg.Royalty.Percentage,
			// An empty address assigns the full split to the signer; the
			// gateway resolves it during submission.
			Rightholders: []asset.Rightholder{
				{Address: cfg.Royalty.RightholderAddress, BasisPoints: 10000},
			},
		},
		logr,
	)

	if resultPath == "" {
		resultPath = cfg.Result.Path
	}
	sink := result.NewFileSink(resultPath, cfg.Result.DebugPath, logr)

	var archive objectstore.Client
	if cfg.Archive.Bucket != "" {
		var err error
		archive, err = objectstore.New(objectstore.Config{
			Endpoint:  cfg.Archive.Endpoint,
			Region:    cfg.Archive.Region,
			Bucket:    cfg.Archive.Bucket,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			UseSSL:    cfg.Archive.UseSSL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init archive store: %w", err)
		}
		cl.archive = archive
	}

	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.RegistrationTopic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			Compression:  kafka.CompressionFromString(cfg.Kafka.CompressionCodec),
			RequiredAcks: kafkago.RequireAll,
			MaxAttempts:  cfg.Kafka.Retries,
		})
		cl.producer = producer
	}

	p := pipeline.New(pipeline.Params{
		Store:     store,
		Registrar: registrar,
		Sink:      sink,
		Signer:    ledger.Signer{PrivateKey: cfg.Chain.PrivateKey},
		Archive:   archive,
		Producer:  producer,
		Logger:    logr,
	})
	return p, cl, nil
}

type closers struct {
	archive  objectstore.Client
	producer *kafka.Producer
}

func (c *closers) close(ctx context.Context, logr *zap.Logger) {
	if c.producer != nil {
		if err := c.producer.Close(ctx); err != nil {
			logr.Error("producer shutdown failed", zap.Error(err))
		}
	}
	if c.archive != nil {
		if err := c.archive.Close(); err != nil {
			logr.Error("archive shutdown failed", zap.Error(err))
		}
	}
}
