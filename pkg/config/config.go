// Package config provides runtime configuration for campaign-go:
// environment-variable overrides over sane defaults, plus a generated
// JWT secret persisted alongside the data directory.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Config holds everything main needs to wire the application.
type Config struct {
	BindAddress    string
	DataDir        string
	AllowedOrigins []string
	AdminPassword  string
	JWTSecret      string
}

// secretsFile is the on-disk shape of the generated-secrets file kept in
// the data directory.
type secretsFile struct {
	JWTSecret string `json:"JWT_SECRET"`
}

// Load assembles the configuration from environment variables and the
// persisted secrets file, generating and saving a JWT secret on first run.
func Load() (*Config, error) {
	cfg := &Config{
		BindAddress:   getEnvString("BIND_ADDRESS", ":8080"),
		DataDir:       getEnvString("DATA_DIR", "./data"),
		AdminPassword: getEnvString("ADMIN_PASSWORD", "admin"),
		AllowedOrigins: splitAndTrim(getEnvString("CORS_ALLOWED_ORIGINS",
			"http://localhost:3000,http://localhost:5173")),
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := cfg.loadSecrets(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSecrets reads the secrets file, generating and persisting a fresh
// JWT secret when none exists. An explicit JWT_SECRET env var wins.
func (c *Config) loadSecrets() error {
	if env := os.Getenv("JWT_SECRET"); env != "" {
		c.JWTSecret = env
		return nil
	}

	path := filepath.Join(c.DataDir, "config.json")

	var secrets secretsFile
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &secrets); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if secrets.JWTSecret == "" {
		secrets.JWTSecret = generateRandomKey(64)
		data, err := json.MarshalIndent(&secrets, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode secrets: %w", err)
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return fmt.Errorf("failed to save generated secrets: %w", err)
		}
		log.Printf("Generated new JWT secret in %s", path)
	}

	c.JWTSecret = secrets.JWTSecret
	return nil
}

// generateRandomKey creates a random hex string of the given length.
func generateRandomKey(length int) string {
	bytes := make([]byte, length/2)
	if _, err := rand.Read(bytes); err != nil {
		panic(fmt.Sprintf("failed to generate random key: %v", err))
	}
	return hex.EncodeToString(bytes)
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
