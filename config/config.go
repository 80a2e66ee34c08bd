package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port           string
	AllowedOrigins string
	LogLevel       string
	LogFormat      string

	// OpenAI configuration
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	OpenAIFunctionModel string
	OpenAIChatModel     string

	// Terra configuration
	TerraBaseURL      string
	TerraDevID        string
	TerraAPIKey       string
	TerraUserID       string
	TerraDefaultStart string
	TerraDefaultEnd   string
	TerraTimeout      time.Duration

	// Name of the person the assistant speaks for
	TwinName string
}

// Load reads .env (when present) and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using environment variables")
	}
	return FromEnv()
}

func FromEnv() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),

		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
		OpenAIFunctionModel: getEnv("OPENAI_FUNCTION_MODEL", "gpt-4-0613"),
		OpenAIChatModel:     getEnv("OPENAI_CHAT_MODEL", "gpt-3.5-turbo"),

		TerraBaseURL:      getEnv("TERRA_BASE_URL", "https://api.tryterra.co"),
		TerraDevID:        getEnv("TERRA_DEV_ID", ""),
		TerraAPIKey:       getEnv("TERRA_API_KEY", ""),
		TerraUserID:       getEnv("TERRA_USER_ID", ""),
		TerraDefaultStart: getEnv("TERRA_DEFAULT_START", "2021-06-01"),
		TerraDefaultEnd:   getEnv("TERRA_DEFAULT_END", "2021-06-07"),
		TerraTimeout:      getDuration("TERRA_TIMEOUT", 10*time.Second),

		TwinName: getEnv("TWIN_NAME", "Mike"),
	}
}

// Validate reports every required setting that is missing.
func (c *Config) Validate() error {
	var missing []string
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	return missingError(append(missing, c.missingTerra()...))
}

// ValidateTerra checks only the settings the Terra client needs.
func (c *Config) ValidateTerra() error {
	return missingError(c.missingTerra())
}

func (c *Config) missingTerra() []string {
	var missing []string
	if c.TerraDevID == "" {
		missing = append(missing, "TERRA_DEV_ID")
	}
	if c.TerraAPIKey == "" {
		missing = append(missing, "TERRA_API_KEY")
	}
	if c.TerraUserID == "" {
		missing = append(missing, "TERRA_USER_ID")
	}
	return missing
}

func missingError(missing []string) error {
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warnf("Invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
