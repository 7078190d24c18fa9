package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/conveyorhq/conveyor/pkg/domain"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds the full engine configuration.
type Config struct {
	HTTPAddress string
	WorkspaceID string
	LogLevel    string

	// SessionStore selects where debug sessions live: "memory" or "redis".
	SessionStore      string
	RedisAddress      string
	RedisPassword     string
	RedisDB           int
	SessionTTLMinutes int

	MaxSubworkflowDepth int
	FrameItemLimit      int

	// WorkflowsPath points at a JSON file with workflow definitions to
	// preload into the in-memory store.
	WorkflowsPath string

	// Credentials are static credentials made available to nodes.
	Credentials []domain.Credential
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// LoadConfig reads configuration from a config file and environment
// variables, with environment taking precedence.
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("CONVEYOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envMappings := map[string]string{
		"http_address":          "CONVEYOR_HTTP_ADDRESS",
		"workspace_id":          "CONVEYOR_WORKSPACE_ID",
		"log_level":             "CONVEYOR_LOG_LEVEL",
		"session_store":         "CONVEYOR_SESSION_STORE",
		"redis_address":         "CONVEYOR_REDIS_ADDRESS",
		"redis_password":        "CONVEYOR_REDIS_PASSWORD",
		"redis_db":              "CONVEYOR_REDIS_DB",
		"session_ttl_minutes":   "CONVEYOR_SESSION_TTL_MINUTES",
		"max_subworkflow_depth": "CONVEYOR_MAX_SUBWORKFLOW_DEPTH",
		"frame_item_limit":      "CONVEYOR_FRAME_ITEM_LIMIT",
		"workflows_path":        "CONVEYOR_WORKFLOWS_PATH",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s", envVar)
		}
	}

	v.SetConfigName("conveyor")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.conveyor")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		log.Debug().Msg("Config file not found, using environment variables and defaults")
	}

	config := &Config{
		HTTPAddress:         v.GetString("http_address"),
		WorkspaceID:         v.GetString("workspace_id"),
		LogLevel:            v.GetString("log_level"),
		SessionStore:        v.GetString("session_store"),
		RedisAddress:        v.GetString("redis_address"),
		RedisPassword:       v.GetString("redis_password"),
		RedisDB:             v.GetInt("redis_db"),
		SessionTTLMinutes:   v.GetInt("session_ttl_minutes"),
		MaxSubworkflowDepth: v.GetInt("max_subworkflow_depth"),
		FrameItemLimit:      v.GetInt("frame_item_limit"),
		WorkflowsPath:       v.GetString("workflows_path"),
	}

	if raw := v.Get("credentials"); raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("error reading credentials: %w", err)
		}

		if err := json.Unmarshal(data, &config.Credentials); err != nil {
			return nil, fmt.Errorf("error parsing credentials: %w", err)
		}
	}

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_address", ":8081")
	v.SetDefault("workspace_id", "default")
	v.SetDefault("log_level", "info")
	v.SetDefault("session_store", "memory")
	v.SetDefault("redis_address", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("session_ttl_minutes", 24*60)
	v.SetDefault("max_subworkflow_depth", 10)
	v.SetDefault("frame_item_limit", 10)
}

func validate(config *Config) error {
	switch config.SessionStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown session store %q, expected memory or redis", config.SessionStore)
	}

	if config.SessionStore == "redis" && config.RedisAddress == "" {
		return fmt.Errorf("session store redis requires a redis address")
	}

	if config.MaxSubworkflowDepth < 1 {
		return fmt.Errorf("max subworkflow depth must be at least 1")
	}

	return nil
}
