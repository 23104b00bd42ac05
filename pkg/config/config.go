package config

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/your-org/assetflow/internal/asset"
)

// Config captures the full runtime configuration for assetflow.
type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	Pinning  PinningConfig
	Chain    ChainConfig
	Royalty  RoyaltyConfig
	Result   ResultConfig
	Archive  ArchiveConfig
	Kafka    KafkaConfig
	Tracing  TracingConfig
	Upload   UploadConfig
	ImageGen ImageGenConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"assetflow"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
}

type HTTPConfig struct {
	Addr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
}

type PinningConfig struct {
	Endpoint   string        `env:"PIN_ENDPOINT" envDefault:"https://api.pinata.cloud"`
	JWT        string        `env:"PIN_JWT"`
	APIKey     string        `env:"PIN_API_KEY"`
	APISecret  string        `env:"PIN_API_SECRET"`
	GatewayURL string        `env:"PIN_GATEWAY_URL" envDefault:"https://gateway.pinata.cloud"`
	Timeout    time.Duration `env:"PIN_TIMEOUT" envDefault:"60s"`
}

type ChainConfig struct {
	RPCURL               string        `env:"CHAIN_RPC_URL"`
	PrivateKey           string        `env:"CHAIN_PRIVATE_KEY"`
	ChainID              string        `env:"CHAIN_ID" envDefault:"aeneid"`
	TokenContractAddress string        `env:"CHAIN_TOKEN_CONTRACT"`
	ExplorerURL          string        `env:"CHAIN_EXPLORER_URL" envDefault:"https://aeneid.storyscan.io"`
	IPAssetURL           string        `env:"CHAIN_IP_ASSET_URL" envDefault:"https://aeneid.explorer.story.foundation/ipa"`
	Timeout              time.Duration `env:"CHAIN_TIMEOUT" envDefault:"90s"`
}

type RoyaltyConfig struct {
	Percentage int `env:"ROYALTY_PERCENTAGE" envDefault:"1000"`
	// RightholderAddress receives the full 10000 basis points unless callers
	// supply their own split.
	RightholderAddress string `env:"ROYALTY_RIGHTHOLDER"`
}

type ResultConfig struct {
	Path      string `env:"RESULT_PATH" envDefault:"registration_result.json"`
	DebugPath string `env:"RESULT_DEBUG_PATH" envDefault:"registration_result.txt"`
}

// ArchiveConfig controls the optional copy of source bytes into an
// S3-compatible store. Disabled unless a bucket is configured.
type ArchiveConfig struct {
	Bucket    string `env:"ARCHIVE_BUCKET"`
	Endpoint  string `env:"ARCHIVE_ENDPOINT" envDefault:"localhost:9000"`
	Region    string `env:"ARCHIVE_REGION" envDefault:"us-east-1"`
	AccessKey string `env:"ARCHIVE_ACCESS_KEY"`
	SecretKey string `env:"ARCHIVE_SECRET_KEY"`
	UseSSL    bool   `env:"ARCHIVE_USE_SSL" envDefault:"false"`
}

// KafkaConfig controls optional event emission. Disabled unless brokers are
// configured.
type KafkaConfig struct {
	Brokers           []string      `env:"KAFKA_BROKERS" envSeparator:","`
	RegistrationTopic string        `env:"KAFKA_REGISTRATION_TOPIC" envDefault:"assetflow.registrations"`
	Retries           int           `env:"KAFKA_RETRIES" envDefault:"3"`
	CompressionCodec  string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize         int           `env:"KAFKA_BATCH_SIZE" envDefault:"100"`
	BatchTimeout      time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"1s"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=assetflow"`
}

type UploadConfig struct {
	MaxSizeBytes      int64 `env:"UPLOAD_MAX_SIZE_BYTES" envDefault:"104857600"`
	MultipartMemBytes int64 `env:"UPLOAD_MULTIPART_MEM_BYTES" envDefault:"33554432"`
}

type ImageGenConfig struct {
	Provider       string        `env:"IMAGEGEN_PROVIDER" envDefault:"together"`
	PromptAPIURL   string        `env:"IMAGEGEN_PROMPT_API_URL" envDefault:"https://nilai-a779.nillion.network"`
	PromptAPIKey   string        `env:"IMAGEGEN_PROMPT_API_KEY"`
	PromptModel    string        `env:"IMAGEGEN_PROMPT_MODEL" envDefault:"meta-llama/Llama-3.1-8B-Instruct"`
	ModelKeyword   string        `env:"IMAGEGEN_MODEL_KEYWORD"`
	TogetherAPIKey string        `env:"TOGETHER_API_KEY"`
	TogetherModel  string        `env:"IMAGEGEN_TOGETHER_MODEL" envDefault:"black-forest-labs/FLUX.1-dev-lora"`
	LoraPath       string        `env:"IMAGEGEN_LORA_PATH"`
	LoraScale      float64       `env:"IMAGEGEN_LORA_SCALE" envDefault:"1.0"`
	AbloAPIKey     string        `env:"ABLO_KEY"`
	AbloStyleID    string        `env:"IMAGEGEN_ABLO_STYLE_ID" envDefault:"a58f5b3c-2263-4072-8242-f23c52315125"`
	Timeout        time.Duration `env:"IMAGEGEN_TIMEOUT" envDefault:"120s"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the pipeline cannot run without: the signer
// key, the chain RPC URL, and pinning credentials (a JWT or an API key/secret
// pair). All missing names are reported together in a single
// ConfigurationError, before any network call is made.
func (c *Config) Validate() error {
	var missing []string

	if c.Chain.PrivateKey == "" {
		missing = append(missing, "CHAIN_PRIVATE_KEY")
	}
	if c.Chain.RPCURL == "" {
		missing = append(missing, "CHAIN_RPC_URL")
	}
	if c.Pinning.JWT == "" {
		if c.Pinning.APIKey == "" {
			missing = append(missing, "PIN_JWT or PIN_API_KEY")
		} else if c.Pinning.APISecret == "" {
			missing = append(missing, "PIN_API_SECRET")
		}
	}

	if len(missing) > 0 {
		return &asset.ConfigurationError{Missing: missing}
	}
	return nil
}
