// Package config loads service settings from defaults, an optional YAML file
// and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable holding the optional YAML config path.
const EnvConfigPath = "AICHECK_CONFIG"

type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	Upload     UploadConfig     `yaml:"upload"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Log        LogConfig        `yaml:"log"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	StaticDir       string        `yaml:"static_dir"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	JWTAudience string        `yaml:"jwt_audience"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

type UploadConfig struct {
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// ClassifierConfig locates model artifacts. RemoteAddr, when set, replaces
// the local resolution cascade with a gRPC scorer.
type ClassifierConfig struct {
	FineTunedPath  string `yaml:"finetuned_path"`
	PretrainedPath string `yaml:"pretrained_path"`
	BackbonePath   string `yaml:"backbone_path"`
	LibraryPath    string `yaml:"onnxruntime_lib"`
	IntraOpThreads int    `yaml:"intra_op_threads"`
	Seed           int64  `yaml:"seed"`
	RemoteAddr     string `yaml:"remote_addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
			StaticDir:       "build",
		},
		Database: DatabaseConfig{
			DSN:             "host=postgres user=postgres password=postgres dbname=aicheck port=5432 sslmode=disable",
			MaxIdleConns:    5,
			MaxOpenConns:    10,
			ConnMaxLifetime: time.Hour,
		},
		Redis: RedisConfig{Addr: "redis:6379"},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Upload: UploadConfig{Dir: "uploads", MaxBytes: 16 << 20},
		Classifier: ClassifierConfig{
			FineTunedPath:  "models/densenet_simple_model.onnx",
			PretrainedPath: "models/densenet_ai_detector.onnx",
			BackbonePath:   "models/densenet121_backbone.onnx",
			Seed:           42,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the API server configuration. path may be empty, in which
// case the AICHECK_CONFIG variable is consulted; a missing file is an error
// only when a path was given explicitly.
func Load(path string) (*Config, error) {
	cfg, err := build(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadModel is Load for processes that only run the classifier, such as the
// batch CLI and the scorer server. They issue no tokens, so the auth section
// is not validated.
func LoadModel(path string) (*Config, error) {
	cfg, err := build(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateModel(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func build(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.StaticDir = getEnv("STATIC_DIR", c.HTTP.StaticDir)
	c.Database.DSN = getEnv("DATABASE_DSN", c.Database.DSN)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.JWTAudience = getEnv("JWT_AUDIENCE", c.Auth.JWTAudience)
	c.Upload.Dir = getEnv("UPLOAD_DIR", c.Upload.Dir)
	c.Classifier.FineTunedPath = getEnv("MODEL_FINETUNED_PATH", c.Classifier.FineTunedPath)
	c.Classifier.PretrainedPath = getEnv("MODEL_PRETRAINED_PATH", c.Classifier.PretrainedPath)
	c.Classifier.BackbonePath = getEnv("MODEL_BACKBONE_PATH", c.Classifier.BackbonePath)
	c.Classifier.LibraryPath = getEnv("ONNXRUNTIME_LIB", c.Classifier.LibraryPath)
	c.Classifier.RemoteAddr = getEnv("SCORER_ADDR", c.Classifier.RemoteAddr)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parse TOKEN_TTL: %w", err)
		}
		c.Auth.TokenTTL = ttl
	}
	if raw := os.Getenv("MAX_UPLOAD_BYTES"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("parse MAX_UPLOAD_BYTES: %w", err)
		}
		c.Upload.MaxBytes = n
	}
	if raw := os.Getenv("ONNX_INTRA_OP_THREADS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parse ONNX_INTRA_OP_THREADS: %w", err)
		}
		c.Classifier.IntraOpThreads = n
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.HTTP.Addr == "":
		return errors.New("http.addr is required")
	case c.HTTP.ShutdownTimeout <= 0:
		return errors.New("http.shutdown_timeout must be positive")
	case c.Auth.JWTSecret == "":
		return errors.New("auth.jwt_secret is required")
	case c.Auth.TokenTTL <= 0:
		return errors.New("auth.token_ttl must be positive")
	case c.Upload.Dir == "":
		return errors.New("upload.dir is required")
	case c.Upload.MaxBytes <= 0:
		return errors.New("upload.max_bytes must be positive")
	}
	return c.validateModel()
}

func (c *Config) validateModel() error {
	if c.Classifier.IntraOpThreads < 0 {
		return errors.New("classifier.intra_op_threads must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
