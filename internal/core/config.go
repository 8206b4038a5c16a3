package core

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/tomaspereira-au/onboard-agent/pkg/models"
)

// ConfigManager loads the application configuration from the base path.
type ConfigManager interface {
	Load() (*models.Config, error)
}

// viperConfigManager reads the .onboardconfig YAML dotfile with Viper.
type viperConfigManager struct {
	basePath string
}

// NewConfigManager creates a ConfigManager that reads .onboardconfig from
// basePath. A missing file yields defaults.
func NewConfigManager(basePath string) ConfigManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns the configuration used when no .onboardconfig exists.
func DefaultConfig() *models.Config {
	return &models.Config{
		Validation: models.ValidationConfig{
			NameMinLen:           2,
			CountryFuzzyDistance: 2,
		},
	}
}

// Load reads .onboardconfig from the base path. Missing keys fall back to
// defaults; a missing file is not an error.
func (cm *viperConfigManager) Load() (*models.Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName(".onboardconfig")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("storage.dir", cfg.Storage.Dir)
	v.SetDefault("validation.name_min_len", cfg.Validation.NameMinLen)
	v.SetDefault("validation.country_fuzzy_distance", cfg.Validation.CountryFuzzyDistance)
	v.SetDefault("notifications.enabled", cfg.Notifications.Enabled)
	v.SetDefault("notifications.webhook_url", cfg.Notifications.WebhookURL)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .onboardconfig: %w", err)
	}

	cfg.Storage.Dir = v.GetString("storage.dir")
	cfg.Validation.NameMinLen = v.GetInt("validation.name_min_len")
	cfg.Validation.CountryFuzzyDistance = v.GetInt("validation.country_fuzzy_distance")
	cfg.Notifications.Enabled = v.GetBool("notifications.enabled")
	cfg.Notifications.WebhookURL = v.GetString("notifications.webhook_url")

	if cfg.Validation.NameMinLen < 1 {
		cfg.Validation.NameMinLen = 1
	}
	if cfg.Validation.CountryFuzzyDistance < 0 {
		cfg.Validation.CountryFuzzyDistance = 0
	}

	return cfg, nil
}
