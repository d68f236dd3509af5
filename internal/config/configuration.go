package config

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	// WebServer Configuration
	WebServerPort int `mapstructure:"WEBSERVER_PORT"`

	// Database Configuration
	DatabaseDSN     string `mapstructure:"DATABASE_DSN" validate:"required"`
	DatabaseRetries int    `mapstructure:"DATABASE_RETRIES"`

	// Blob Store Configuration
	BlobBucket        string `mapstructure:"BLOB_BUCKET" validate:"required"`
	BlobRegion        string `mapstructure:"BLOB_REGION"`
	BlobEndpoint      string `mapstructure:"BLOB_ENDPOINT"`
	BlobPublicBaseURL string `mapstructure:"BLOB_PUBLIC_BASE_URL"`

	// Generative Provider Configuration
	GeminiAPIKey    string `mapstructure:"GEMINI_API_KEY" validate:"required"`
	TextModel       string `mapstructure:"TEXT_MODEL"`
	ImageModel      string `mapstructure:"IMAGE_MODEL"`
	VideoModel      string `mapstructure:"VIDEO_MODEL"`
	VideoAPIBaseURL string `mapstructure:"VIDEO_API_BASE_URL"`

	// Stitching Configuration
	StitchWorkDir string `mapstructure:"STITCH_WORK_DIR"`
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag != "" {
			viper.BindEnv(tag)
		}
	}
}

func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("WEBSERVER_PORT", 8080)
	viper.SetDefault("DATABASE_RETRIES", 10)
	viper.SetDefault("BLOB_REGION", "us-east-1")
	viper.SetDefault("TEXT_MODEL", "gemini-2.0-flash")
	viper.SetDefault("IMAGE_MODEL", "gemini-2.0-flash-exp-image-generation")
	viper.SetDefault("VIDEO_MODEL", "veo-2.0-generate-001")
	viper.SetDefault("VIDEO_API_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("STITCH_WORK_DIR", "/tmp/adreel")

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	slog.Info("Loaded configuration", "port", cfg.WebServerPort, "bucket", cfg.BlobBucket)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
