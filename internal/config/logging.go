package config

// LoggingConfig mirrors the shape internal/logging reads out of
// .derive/config.json, re-exposed here so it can be authored alongside
// the rest of the engine config and persisted via Save.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}
