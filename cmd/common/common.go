// Package common provides shared utilities for the CLI commands.
//
// This package contains helper functions used across the standalone binaries
// to reduce code duplication:
//
//   - Key loading and generation for Ed25519 signing keys
//   - Environment-backed flag defaults (with optional .env loading)
//   - Logger and PostgreSQL configuration construction
package common

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/bytebloomg/PrivateCourt/crypto"
	"github.com/bytebloomg/PrivateCourt/services"
)

// LoadEnv loads variables from a .env file if one exists. Missing files are
// not an error; the process environment always wins.
func LoadEnv() {
	_ = godotenv.Load()
}

// EnvOr returns the value of an environment variable or a fallback.
func EnvOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// LoadOrGenerateSigningKey loads an Ed25519 private key from a hex string,
// or generates a new key pair if hexKey is empty.
func LoadOrGenerateSigningKey(hexKey string) (crypto.PrivateKey, error) {
	if hexKey != "" {
		keyBytes, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid hex: %w", err)
		}
		return crypto.NewPrivateKeyFromBytes(keyBytes), nil
	}
	_, privKey, err := crypto.GenerateKeyPair()
	return privKey, err
}

// NewLogger builds the process logger. JSON output is meant for deployments,
// text for interactive runs.
func NewLogger(json, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// PostgresConfigFromEnv builds a connection config from POSTGRES_* variables.
// Returns nil when POSTGRES_HOST is unset, meaning in-memory persistence.
func PostgresConfigFromEnv() (*services.PostgresConfig, error) {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return nil, nil
	}

	port := 5432
	if p := os.Getenv("POSTGRES_PORT"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid POSTGRES_PORT: %w", err)
		}
		port = parsed
	}

	return &services.PostgresConfig{
		Host:     host,
		Port:     port,
		User:     EnvOr("POSTGRES_USER", "postgres"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Database: EnvOr("POSTGRES_DB", "privatecourt"),
		SSLMode:  os.Getenv("POSTGRES_SSLMODE"),
	}, nil
}
