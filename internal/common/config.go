package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	OCR        OCRConfig        `yaml:"ocr"`
	Queue      QueueConfig      `yaml:"queue"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Ingest     IngestConfig     `yaml:"ingest"`
	LogLevel   string           `yaml:"log_level"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr      string `yaml:"http_addr"`
	GRPCAddr      string `yaml:"grpc_addr"`
	MaxUploadSize int64  `yaml:"max_upload_size"`
}

// StorageConfig holds blob storage configuration
type StorageConfig struct {
	Dir    string `yaml:"dir"`
	Bucket string `yaml:"bucket"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine           string `yaml:"engine"`
	TesseractLang    string `yaml:"tesseract_lang"`
	TessdataDir      string `yaml:"tessdata_dir"`
	HeicConverter    string `yaml:"heic_converter"`
	ArtifactCacheDir string `yaml:"artifact_cache_dir"`
	Enhance          bool   `yaml:"enhance"`
	DPI              int    `yaml:"dpi"`
	AzureEndpoint    string `yaml:"azure_endpoint"`
	AzureKey         string `yaml:"azure_key"`
}

// QueueConfig holds worker pool configuration
type QueueConfig struct {
	Workers        int           `yaml:"workers"`
	Size           int           `yaml:"size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

// ClassifierConfig holds classification engine configuration
type ClassifierConfig struct {
	ParallelScoring bool `yaml:"parallel_scoring"`
}

// IngestConfig holds directory watch configuration
type IngestConfig struct {
	WatchDirs []string      `yaml:"watch_dirs"`
	Debounce  time.Duration `yaml:"debounce"`
}

// OCR engines accepted in OCR_ENGINE.
const (
	EngineTesseract = "tesseract"
	EngineAzure     = "azure"
	EngineGosseract = "gosseract"
)

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:      ":8000",
			GRPCAddr:      ":8080",
			MaxUploadSize: 32 << 20,
		},
		Storage: StorageConfig{
			Dir:    "./data/blobs",
			Bucket: "documents",
		},
		OCR: OCRConfig{
			Engine:           EngineTesseract,
			TesseractLang:    "eng",
			HeicConverter:    "magick",
			ArtifactCacheDir: "./tmp",
			DPI:              300,
		},
		Queue: QueueConfig{
			Workers:        4,
			Size:           256,
			ProcessTimeout: 3 * time.Minute,
		},
		Ingest: IngestConfig{
			Debounce: 500 * time.Millisecond,
		},
		LogLevel: "info",
	}
}

// LoadConfig builds the configuration from defaults, then the optional YAML
// file named by CONFIG_FILE, then environment variables. A .env file in the
// working directory is loaded first and never overrides the real environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, NewAppError("CONFIG_ERROR", "load .env", err)
	}

	cfg := defaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeYAML(path); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "load "+path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeYAML(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.MaxUploadSize = int64(getEnvAsInt("MAX_UPLOAD_SIZE", int(c.Server.MaxUploadSize)))

	c.Storage.Dir = getEnv("STORAGE_DIR", c.Storage.Dir)
	c.Storage.Bucket = getEnv("STORAGE_BUCKET", c.Storage.Bucket)

	c.OCR.Engine = strings.ToLower(getEnv("OCR_ENGINE", c.OCR.Engine))
	c.OCR.TesseractLang = getEnv("TESSERACT_LANG", c.OCR.TesseractLang)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.HeicConverter = getEnv("HEIC_CONVERTER", c.OCR.HeicConverter)
	c.OCR.ArtifactCacheDir = getEnv("ARTIFACT_CACHE_DIR", c.OCR.ArtifactCacheDir)
	c.OCR.Enhance = getEnvAsBool("OCR_ENHANCE", c.OCR.Enhance)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.AzureEndpoint = getEnv("AZURE_VISION_ENDPOINT", c.OCR.AzureEndpoint)
	c.OCR.AzureKey = getEnv("AZURE_VISION_KEY", c.OCR.AzureKey)

	c.Queue.Workers = getEnvAsInt("WORKERS", c.Queue.Workers)
	c.Queue.Size = getEnvAsInt("QUEUE_SIZE", c.Queue.Size)
	c.Queue.ProcessTimeout = getEnvAsDuration("PROCESS_TIMEOUT", c.Queue.ProcessTimeout)

	c.Classifier.ParallelScoring = getEnvAsBool("PARALLEL_SCORING", c.Classifier.ParallelScoring)

	c.Ingest.WatchDirs = getEnvAsList("WATCH_DIRS", c.Ingest.WatchDirs)
	c.Ingest.Debounce = getEnvAsDuration("WATCH_DEBOUNCE", c.Ingest.Debounce)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	if c.Storage.Dir == "" {
		return NewAppError("CONFIG_ERROR", "STORAGE_DIR is required", ErrInvalidInput)
	}
	switch c.OCR.Engine {
	case EngineTesseract, EngineGosseract:
	case EngineAzure:
		if c.OCR.AzureEndpoint == "" || c.OCR.AzureKey == "" {
			return NewAppError("CONFIG_ERROR", "AZURE_VISION_ENDPOINT and AZURE_VISION_KEY are required for the azure engine", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown OCR_ENGINE %q", c.OCR.Engine), ErrInvalidInput)
	}
	if c.Queue.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}
