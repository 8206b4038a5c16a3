package models

// ValidationConfig holds the tunable validation policy knobs. The hard format
// contracts (email syntax, phone digit range, country resolution) are fixed;
// only the name length bound and fuzzy-match aggressiveness are policy.
type ValidationConfig struct {
	// NameMinLen is the minimum accepted name length after trimming.
	// 1 reduces the rule to non-emptiness.
	NameMinLen int `yaml:"name_min_len" mapstructure:"name_min_len"`
	// CountryFuzzyDistance is the maximum edit distance for country typo
	// tolerance. 0 disables fuzzy matching entirely.
	CountryFuzzyDistance int `yaml:"country_fuzzy_distance" mapstructure:"country_fuzzy_distance"`
}

// NotificationConfig configures the completion webhook.
type NotificationConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// StorageConfig configures where session records are kept.
type StorageConfig struct {
	// Dir is the storage root. Empty means the base path.
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// Config is the merged application configuration read from .onboardconfig.
type Config struct {
	Storage       StorageConfig      `yaml:"storage" mapstructure:"storage"`
	Validation    ValidationConfig   `yaml:"validation" mapstructure:"validation"`
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
}
