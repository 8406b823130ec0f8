package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server's YAML configuration. Every field has a default so
// the file is optional; environment variables cover deployment secrets.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Live struct {
		HubGraceSeconds int `yaml:"hub_grace_seconds"`
		SendBufferSize  int `yaml:"send_buffer_size"`
	} `yaml:"live"`
	Bus struct {
		StreamName    string `yaml:"stream_name"`
		ConsumerName  string `yaml:"consumer_name"`
		SubjectFilter string `yaml:"subject_filter"`
	} `yaml:"bus"`
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func defaultConfig() *Config {
	var config Config
	config.Server.Port = "8080"
	config.Live.HubGraceSeconds = 30
	config.Live.SendBufferSize = 256
	config.Bus.StreamName = "MOSAIC_EVENTS"
	config.Bus.ConsumerName = "live-gateway"
	config.Bus.SubjectFilter = "mosaic.events.>"
	return &config
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}

func (c *Config) hubGrace() time.Duration {
	return time.Duration(c.Live.HubGraceSeconds) * time.Second
}

func databaseConfigFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvAsInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		Database: getEnv("DB_NAME", "mosaicwall"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}
