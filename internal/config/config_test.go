package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "derive" {
		t.Errorf("expected Name=derive, got %s", cfg.Name)
	}
	if cfg.LLM.Provider != "genai" {
		t.Errorf("expected Provider=genai, got %s", cfg.LLM.Provider)
	}
	if cfg.Engine.SCCMaxIterations != 10 {
		t.Errorf("expected SCCMaxIterations=10, got %d", cfg.Engine.SCCMaxIterations)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GENAI_API_KEY", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Provider = "genai"
	cfg.LLM.APIKey = "test-key"
	cfg.Store.DatabasePath = filepath.Join(tmpDir, "derive.db")

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.LLM.APIKey != "test-key" {
		t.Errorf("expected APIKey=test-key, got %s", loaded.LLM.APIKey)
	}
	if loaded.Store.DatabasePath != cfg.Store.DatabasePath {
		t.Errorf("expected DatabasePath=%s, got %s", cfg.Store.DatabasePath, loaded.Store.DatabasePath)
	}
}

func TestConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load should not fail on missing file: %v", err)
	}
	if cfg.Store.DatabasePath != DefaultConfig().Store.DatabasePath {
		t.Errorf("expected default DatabasePath, got %s", cfg.Store.DatabasePath)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-gemini-key")
	t.Setenv("DERIVE_DB", "/tmp/derive-override.db")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.LLM.APIKey != "env-gemini-key" {
		t.Errorf("expected APIKey=env-gemini-key, got %s", cfg.LLM.APIKey)
	}
	if cfg.Store.DatabasePath != "/tmp/derive-override.db" {
		t.Errorf("expected overridden DatabasePath, got %s", cfg.Store.DatabasePath)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.SCCMaxIterations = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for non-positive scc_max_iterations")
	}

	cfg = DefaultConfig()
	cfg.Engine.SCCSeedPolicy = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid scc_seed_policy")
	}

	cfg = DefaultConfig()
	cfg.Store.DatabasePath = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty database_path")
	}
}
