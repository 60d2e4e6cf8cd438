package config

// HTTPConfig configures the fetch_url_content HTTP collaborator.
type HTTPConfig struct {
	Timeout      string `yaml:"timeout"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
	UserAgent    string `yaml:"user_agent"`
}
