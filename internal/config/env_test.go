package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int `env:"VOE_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("VOE_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("VOE_LEVEL", "level1")
	t.Setenv("VOE_ORACLE_ADDR", "oracle:7001")
	t.Setenv("VOE_LEGACY_SUPPORT_RANGE", "true")

	cfg := &TuningConfig{Level: ptrString("level2"), DBPath: ptrString("verdicts.db")}
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.GetLevel() != "level1" {
		t.Errorf("Level = %q, want level1", cfg.GetLevel())
	}
	if cfg.GetOracleAddress() != "oracle:7001" {
		t.Errorf("OracleAddress = %q, want oracle:7001", cfg.GetOracleAddress())
	}
	if !cfg.GetLegacySupportRange() {
		t.Error("LegacySupportRange should be overridden to true")
	}
	if cfg.GetDBPath() != "verdicts.db" {
		t.Errorf("DBPath = %q, unset variables must not clear file values", cfg.GetDBPath())
	}
}

func TestApplyEnvInvalidTimeout(t *testing.T) {
	t.Setenv("VOE_ORACLE_TIMEOUT", "whenever")

	cfg := EmptyTuningConfig()
	if err := cfg.ApplyEnv(); err == nil {
		t.Fatal("expected validation error for bad timeout")
	}
}
