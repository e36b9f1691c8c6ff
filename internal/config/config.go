package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Tokens struct {
	AccessSecret  []byte
	AccessTTL     time.Duration
	RefreshSecret []byte
	RefreshTTL    time.Duration

	// RefreshGrace is how long past its exp a refresh token is still accepted
	// for rotation.
	RefreshGrace time.Duration
}

type Blob struct {
	CloudName string
	APIKey    string
	APISecret string
	Endpoint  string
	Region    string
	PublicURL string
}

type Config struct {
	ServerAddr   string
	DatabaseURL  string
	LogLevel     string
	UploadDir    string
	CORSOrigin   string
	CookieSecure bool
	CSRF         bool
	KafkaBrokers []string

	Tokens Tokens
	Blob   Blob
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	return &Config{
		ServerAddr:   EnvDefault("SERVER_ADDR", ":8000"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		LogLevel:     EnvDefault("LOG_LEVEL", "info"),
		UploadDir:    EnvDefault("UPLOAD_DIR", "./public/temp"),
		CORSOrigin:   os.Getenv("CORS_ORIGIN"),
		CookieSecure: EnvBoolDefault("COOKIE_SECURE", true),
		CSRF:         EnvBoolDefault("CSRF_PROTECTION", false),
		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		Tokens: Tokens{
			AccessSecret:  []byte(os.Getenv("ACCESS_TOKEN_SECRET")),
			AccessTTL:     EnvDurationDefault("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
			RefreshSecret: []byte(os.Getenv("REFRESH_TOKEN_SECRET")),
			RefreshTTL:    EnvDurationDefault("REFRESH_TOKEN_EXPIRY", 10*24*time.Hour),
			RefreshGrace:  EnvDurationDefault("REFRESH_TOKEN_GRACE", time.Hour),
		},

		Blob: Blob{
			CloudName: os.Getenv("BLOB_CLOUD_NAME"),
			APIKey:    os.Getenv("BLOB_API_KEY"),
			APISecret: os.Getenv("BLOB_API_SECRET"),
			Endpoint:  os.Getenv("BLOB_ENDPOINT"),
			Region:    EnvDefault("BLOB_REGION", "us-east-1"),
			PublicURL: os.Getenv("BLOB_PUBLIC_URL"),
		},
	}
}

// Missing returns the env names of required settings that are empty.
func (c *Config) Missing() []string {
	return missingEnv(c.required()...)
}

// MustValidate stops the process when a required setting is missing.
func (c *Config) MustValidate() {
	mustNonEmpty(c.required()...)
}

func (c *Config) required() []required {
	return []required{
		nonEmpty(c.DatabaseURL, "DATABASE_URL"),
		nonEmpty(c.Tokens.AccessSecret, "ACCESS_TOKEN_SECRET"),
		nonEmpty(c.Tokens.RefreshSecret, "REFRESH_TOKEN_SECRET"),
		nonEmpty(c.Blob.CloudName, "BLOB_CLOUD_NAME"),
		nonEmpty(c.Blob.APIKey, "BLOB_API_KEY"),
		nonEmpty(c.Blob.APISecret, "BLOB_API_SECRET"),
	}
}
