package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"anovadash/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Analysis AnalysisConfig
	Log      LogConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	APIPort string
	GinMode string
}

// DataConfig holds the dataset location. An empty File means the synthetic
// housing table is generated instead.
type DataConfig struct {
	File        string
	ProfilePath string
}

// AnalysisConfig holds the default analysis request and routing thresholds
type AnalysisConfig struct {
	Target       string
	Factors      []string
	Alpha        float64
	Workers      int
	Posthoc      string
	MultiFactor  bool
	Interactions bool
	Descriptions map[string]string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
}

// Default analysis request, matching the Ames housing columns
const (
	DefaultTarget  = "SalePrice"
	DefaultFactors = "Neighborhood,House_Style,Bsmt_Full_Bath"
)

// Load reads configuration from environment variables, applies the optional
// analysis profile, and validates the result
func Load() (*Config, error) {
	analysisConfig, err := loadAnalysisConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load analysis configuration")
	}

	config := &Config{
		Server:   *loadServerConfig(),
		Data:     *loadDataConfig(),
		Analysis: *analysisConfig,
		Log:      LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "INFO")},
	}

	if config.Data.ProfilePath != "" {
		profile, err := LoadProfile(config.Data.ProfilePath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load analysis profile")
		}
		profile.Apply(config)
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		APIPort: getEnvOrDefault("API_PORT", "8081"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadDataConfig() *DataConfig {
	return &DataConfig{
		File:        getEnvOrDefault("DATA_FILE", ""),
		ProfilePath: getEnvOrDefault("ANALYSIS_PROFILE", ""),
	}
}

func loadAnalysisConfig() (*AnalysisConfig, error) {
	alpha, err := getEnvFloatOrDefault("ALPHA", 0.05)
	if err != nil {
		return nil, err
	}
	workers, err := getEnvIntOrDefault("ANALYSIS_WORKERS", runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	multiFactor, err := getEnvBoolOrDefault("MULTI_FACTOR", true)
	if err != nil {
		return nil, err
	}
	interactions, err := getEnvBoolOrDefault("INTERACTIONS", false)
	if err != nil {
		return nil, err
	}

	return &AnalysisConfig{
		Target:       getEnvOrDefault("TARGET_COLUMN", DefaultTarget),
		Factors:      SplitList(getEnvOrDefault("FACTOR_COLUMNS", DefaultFactors)),
		Alpha:        alpha,
		Workers:      workers,
		Posthoc:      getEnvOrDefault("POSTHOC", "auto"),
		MultiFactor:  multiFactor,
		Interactions: interactions,
		Descriptions: DefaultDescriptions(),
	}, nil
}

func validateConfig(config *Config) error {
	if config.Analysis.Target == "" {
		return errors.ConfigInvalid("target column is required")
	}
	if len(config.Analysis.Factors) == 0 {
		return errors.ConfigInvalid("at least one factor column is required")
	}
	if config.Analysis.Alpha <= 0 || config.Analysis.Alpha >= 1 {
		return errors.ConfigInvalid("ALPHA must be in (0, 1)")
	}
	if config.Analysis.Workers < 1 {
		return errors.ConfigInvalid("ANALYSIS_WORKERS must be at least 1")
	}
	if config.Analysis.Interactions && !config.Analysis.MultiFactor {
		return errors.ConfigInvalid("INTERACTIONS requires MULTI_FACTOR")
	}
	return nil
}

// SplitList splits a comma separated list, dropping blanks
func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// The typed helpers reject a set but unparseable value rather than falling
// back to the default.
func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, invalidEnv(key, value, "an integer")
	}
	return intValue, nil
}

func getEnvFloatOrDefault(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, invalidEnv(key, value, "a number")
	}
	return floatValue, nil
}

func getEnvBoolOrDefault(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	boolValue, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, invalidEnv(key, value, "a boolean")
	}
	return boolValue, nil
}

func invalidEnv(key, value, want string) error {
	return errors.ConfigInvalid(fmt.Sprintf("%s=%q is not %s", key, value, want))
}
