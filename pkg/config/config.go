package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	Database  DatabaseConfig  `koanf:"database"`
	Embedder  EmbedderConfig  `koanf:"embedder"  validate:"required"`
	Chunking  ChunkingConfig  `koanf:"chunking"  validate:"required"`
	Retrieval RetrievalConfig `koanf:"retrieval" validate:"required"`
	Chat      ChatConfig      `koanf:"chat"      validate:"required"`
	Webhooks  WebhookConfig   `koanf:"webhooks"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"             validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes"`
}

type DatabaseConfig struct {
	// DSN is the postgres connection string for the pgvector store. When
	// empty the service runs with the in-memory store only.
	DSN   string `koanf:"dsn"`
	Table string `koanf:"table"`
}

type EmbedderConfig struct {
	Provider  string        `koanf:"provider"   validate:"oneof=google openai"`
	Model     string        `koanf:"model"      validate:"required"`
	APIKey    string        `koanf:"api_key"`
	Dimension int           `koanf:"dimension"  validate:"gt=0"`
	BatchSize int           `koanf:"batch_size" validate:"gt=0,lte=100"`
	CacheSize int           `koanf:"cache_size"`
	Timeout   time.Duration `koanf:"timeout"`
}

type ChunkingConfig struct {
	Size    int `koanf:"size"    validate:"gt=0"`
	Overlap int `koanf:"overlap" validate:"gte=0"`
}

type RetrievalConfig struct {
	TopK int `koanf:"top_k" validate:"gt=0"`
	// MaxTopK bounds the per-request top_k override.
	MaxTopK             int     `koanf:"max_top_k"            validate:"gt=0"`
	SimilarityThreshold float64 `koanf:"similarity_threshold" validate:"gte=-1,lte=1"`
	// MinWords below which retrieval is skipped outright.
	MinWords int `koanf:"min_words" validate:"gte=0"`
	// LongQueryWords at or above which retrieval triggers without keywords.
	LongQueryWords int `koanf:"long_query_words" validate:"gt=0"`
}

type ChatConfig struct {
	Provider string `koanf:"provider" validate:"oneof=google openai"`
	Model    string `koanf:"model"    validate:"required"`
	APIKey   string `koanf:"api_key"`
	// Temperature for the default conversational path.
	Temperature float64 `koanf:"temperature" validate:"gte=0,lte=2"`
	// PrecisionTemperature for extraction/definition style requests.
	PrecisionTemperature float64       `koanf:"precision_temperature" validate:"gte=0,lte=2"`
	MaxTokensDefault     int           `koanf:"max_tokens_default"    validate:"gt=0"`
	MaxTokensExtraction  int           `koanf:"max_tokens_extraction" validate:"gt=0"`
	MaxTokensGuidance    int           `koanf:"max_tokens_guidance"   validate:"gt=0"`
	Timeout              time.Duration `koanf:"timeout"`
}

type WebhookConfig struct {
	GastosURL       string        `koanf:"gastos_url"       validate:"omitempty,url"`
	IngresosURL     string        `koanf:"ingresos_url"     validate:"omitempty,url"`
	ContabilidadURL string        `koanf:"contabilidad_url" validate:"omitempty,url"`
	Timeout         time.Duration `koanf:"timeout"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	JSON   bool   `koanf:"json"`
	Source bool   `koanf:"source"`
}

// Default returns the configuration used before any environment overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  32 << 20,
		},
		Database: DatabaseConfig{
			Table: "chunks",
		},
		Embedder: EmbedderConfig{
			Provider:  "google",
			Model:     "text-embedding-004",
			Dimension: 768,
			BatchSize: 100,
			CacheSize: 512,
			Timeout:   30 * time.Second,
		},
		Chunking: ChunkingConfig{
			Size:    1200,
			Overlap: 200,
		},
		Retrieval: RetrievalConfig{
			TopK:                5,
			MaxTopK:             50,
			SimilarityThreshold: 0.3,
			MinWords:            3,
			LongQueryWords:      18,
		},
		Chat: ChatConfig{
			Provider:             "google",
			Model:                "gemini-2.0-flash",
			Temperature:          0.7,
			PrecisionTemperature: 0.2,
			MaxTokensDefault:     1024,
			MaxTokensExtraction:  512,
			MaxTokensGuidance:    2048,
			Timeout:              60 * time.Second,
		},
		Webhooks: WebhookConfig{
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
