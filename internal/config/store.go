package config

// StoreConfig configures the SQLite-backed content/step/derivation/cache store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}
