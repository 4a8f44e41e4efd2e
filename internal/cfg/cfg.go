package cfg

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DataPath      string
	MetricsPort   int
	APIPort       int
	TrainOnDemand bool
	UseEnsemble   bool
	Seed          int64
	LogLevel      string
}

type ConfigFile struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	ML struct {
		TrainOnDemand bool  `yaml:"trainOnDemand"`
		UseEnsemble   bool  `yaml:"useEnsemble"`
		Seed          int64 `yaml:"seed"`
	} `yaml:"ml"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		MetricsPort int    `yaml:"metricsPort"`
		APIPort     int    `yaml:"apiPort"`
		LogLevel    string `yaml:"logLevel"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables override file values
	settings := Settings{
		DatabaseURL:   getEnvOrDefault("DATABASE_URL", config.Database.URL),
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", config.Redis.Addr),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", config.Redis.Password),
		RedisDB:       getIntFromEnvOrConfig("REDIS_DB", config.Redis.DB),
		DataPath:      getEnvOrDefault("DATA_PATH", config.System.DataPath),
		MetricsPort:   getIntFromEnvOrConfig("METRICS_PORT", config.System.MetricsPort),
		APIPort:       getIntFromEnvOrConfig("API_PORT", config.System.APIPort),
		TrainOnDemand: getBoolFromEnvOrConfig("TRAIN_ON_DEMAND", config.ML.TrainOnDemand),
		UseEnsemble:   getBoolFromEnvOrConfig("USE_ENSEMBLE", config.ML.UseEnsemble),
		Seed:          getInt64FromEnvOrConfig("TRAIN_SEED", config.ML.Seed),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", config.System.LogLevel),
	}
	applyDefaults(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		DatabaseURL:   os.Getenv("DATABASE_URL"), // optional, in-memory source without it
		RedisAddr:     os.Getenv("REDIS_ADDR"),   // optional, no cache without it
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getIntOrDefault("REDIS_DB", 0),
		DataPath:      os.Getenv("DATA_PATH"),
		MetricsPort:   getIntOrDefault("METRICS_PORT", 9090),
		APIPort:       getIntOrDefault("API_PORT", 8080),
		TrainOnDemand: getBoolOrDefault("TRAIN_ON_DEMAND", true),
		UseEnsemble:   getBoolOrDefault("USE_ENSEMBLE", true),
		Seed:          getInt64OrDefault("TRAIN_SEED", 42),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
	}
	applyDefaults(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func applyDefaults(s *Settings) {
	if s.DataPath == "" {
		s.DataPath = "."
	}
	if s.MetricsPort == 0 {
		s.MetricsPort = 9090
	}
	if s.APIPort == 0 {
		s.APIPort = 8080
	}
	if s.Seed == 0 {
		s.Seed = 42
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	return configValue
}

func getInt64FromEnvOrConfig(key string, configValue int64) int64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseInt(env, 10, 64); err == nil {
			return val
		}
	}
	return configValue
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings checks ranges on every loaded value.
func validateSettings(settings *Settings) error {
	if settings.MetricsPort < 1024 || settings.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", settings.MetricsPort)
	}
	if settings.APIPort < 1024 || settings.APIPort > 65535 {
		return fmt.Errorf("API port must be between 1024 and 65535, got %d", settings.APIPort)
	}
	if settings.APIPort == settings.MetricsPort {
		return fmt.Errorf("API port and metrics port must differ, both are %d", settings.APIPort)
	}
	if settings.RedisDB < 0 || settings.RedisDB > 15 {
		return fmt.Errorf("redis DB must be between 0 and 15, got %d", settings.RedisDB)
	}
	if settings.Seed < 0 {
		return fmt.Errorf("training seed must be non-negative, got %d", settings.Seed)
	}
	switch settings.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", settings.LogLevel)
	}
	return nil
}
