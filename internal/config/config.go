// Package config loads all process configuration once at startup.
//
// Every secret and external endpoint the application touches lives in
// this struct. Nothing else in the codebase calls os.Getenv — business
// logic receives configuration by injection, which keeps it testable and
// makes the full configuration surface readable in one file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// SMTP holds the mail-relay settings used for OTP delivery.
type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
	AppName  string // used in the subject and signature of OTP mails
}

// S3 holds the object-store settings for media blobs. Endpoint is
// optional — set it when running against MinIO or another
// S3-compatible store instead of AWS itself.
type S3 struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// Config is the process configuration, built once in main and passed by
// reference into the components that need each part.
type Config struct {
	Port   int
	DBPath string

	// JWTSecret signs session tokens. Its absence is a startup failure,
	// never a per-request error: a server that cannot mint or verify
	// sessions has no business accepting traffic.
	JWTSecret string

	// GoogleClientID is the audience every federated token must carry.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	SMTP SMTP
	S3   S3
}

// Load reads configuration from the environment. It returns an error
// (rather than exiting) so main owns the process exit and tests can
// exercise the validation.
func Load() (*Config, error) {
	cfg := &Config{
		Port:   8080,
		DBPath: "data/gallery.db",

		JWTSecret:          os.Getenv("JWT_SECRET"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),

		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     587,
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			AppName:  "Media Gallery",
		},
		S3: S3{
			Region:    os.Getenv("S3_REGION"),
			Bucket:    os.Getenv("S3_BUCKET"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
		},
	}

	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		cfg.Port = p
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid SMTP_PORT %q: %w", v, err)
		}
		cfg.SMTP.Port = p
	}
	if v := os.Getenv("APP_NAME"); v != "" {
		cfg.SMTP.AppName = v
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET is required")
	}

	return cfg, nil
}
