package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Feature: proofread, Property 10: Config merge precedence
func TestConfigMergePrecedence(t *testing.T) {
	nonEmptyString := rapid.StringMatching(`[a-zA-Z0-9/_.-]{1,20}`)

	configGen := rapid.Custom(func(t *rapid.T) *Config {
		cfg := &Config{}
		if rapid.Bool().Draw(t, "hasModel") {
			cfg.Model = nonEmptyString.Draw(t, "model")
		}
		if rapid.Bool().Draw(t, "hasAPIKeyEnv") {
			cfg.APIKeyEnv = nonEmptyString.Draw(t, "apiKeyEnv")
		}
		if rapid.Bool().Draw(t, "hasDefaultFormat") {
			cfg.DefaultFormat = nonEmptyString.Draw(t, "defaultFormat")
		}
		if rapid.Bool().Draw(t, "hasHistoryPath") {
			cfg.HistoryPath = nonEmptyString.Draw(t, "historyPath")
		}
		if rapid.Bool().Draw(t, "hasThreshold") {
			v := rapid.IntRange(0, 50).Draw(t, "threshold")
			cfg.StaleThreshold = &v
		}
		return cfg
	})

	rapid.Check(t, func(t *rapid.T) {
		global := configGen.Draw(t, "global")
		project := configGen.Draw(t, "project")

		merged := Merge(global, project)
		defaults := Defaults()

		checkStringField(t, "Model", global.Model, project.Model, defaults.Model, merged.Model)
		checkStringField(t, "APIKeyEnv", global.APIKeyEnv, project.APIKeyEnv, defaults.APIKeyEnv, merged.APIKeyEnv)
		checkStringField(t, "DefaultFormat", global.DefaultFormat, project.DefaultFormat, defaults.DefaultFormat, merged.DefaultFormat)
		checkStringField(t, "HistoryPath", global.HistoryPath, project.HistoryPath, defaults.HistoryPath, merged.HistoryPath)

		want := defaults.Threshold()
		switch {
		case project.StaleThreshold != nil:
			want = *project.StaleThreshold
		case global.StaleThreshold != nil:
			want = *global.StaleThreshold
		}
		if merged.Threshold() != want {
			t.Fatalf("Threshold: expected %d, got %d", want, merged.Threshold())
		}
	})
}

// checkStringField asserts the merge precedence rule for a single string field:
//   - project non-empty  → merged == project
//   - project empty, global non-empty → merged == global
//   - both empty → merged == defaultVal
func checkStringField(t *rapid.T, name, globalVal, projectVal, defaultVal, mergedVal string) {
	t.Helper()
	switch {
	case projectVal != "":
		if mergedVal != projectVal {
			t.Fatalf("%s: both set — expected project value %q, got %q", name, projectVal, mergedVal)
		}
	case globalVal != "":
		if mergedVal != globalVal {
			t.Fatalf("%s: only global set — expected global value %q, got %q", name, globalVal, mergedVal)
		}
	default:
		if mergedVal != defaultVal {
			t.Fatalf("%s: neither set — expected default %q, got %q", name, defaultVal, mergedVal)
		}
	}
}

func TestDefaultsValues(t *testing.T) {
	d := Defaults()
	if d.Provider != "gemini" {
		t.Errorf("Provider: want %q, got %q", "gemini", d.Provider)
	}
	if d.APIKeyEnv != "GEMINI_API_KEY" {
		t.Errorf("APIKeyEnv: want %q, got %q", "GEMINI_API_KEY", d.APIKeyEnv)
	}
	if d.Threshold() != 5 {
		t.Errorf("Threshold: want 5, got %d", d.Threshold())
	}
	if d.Timeout() != 120*time.Second {
		t.Errorf("Timeout: want 120s, got %v", d.Timeout())
	}
	if d.DefaultFormat != "text" {
		t.Errorf("DefaultFormat: want %q, got %q", "text", d.DefaultFormat)
	}
}

func TestZeroThresholdSurvivesMerge(t *testing.T) {
	zero := 0
	merged := Merge(nil, &Config{StaleThreshold: &zero})
	if merged.Threshold() != 0 {
		t.Errorf("Threshold: want 0 (strict), got %d", merged.Threshold())
	}
}

func TestLoadGlobalMissingFileReturnsDefaults(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config, got nil")
	}
	defaults := Defaults()
	if cfg.Model != defaults.Model {
		t.Errorf("Model: want %q, got %q", defaults.Model, cfg.Model)
	}
}

func TestLoadProjectMissingFileReturnsNil(t *testing.T) {
	tmp := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })

	cfg, err := LoadProject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil config, got %+v", cfg)
	}
}

func TestLoadGlobalParseError(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfgDir := filepath.Join(tmp, ".config", "proofread")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte("{invalid json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadGlobal()
	if err == nil {
		t.Fatal("expected an error for invalid JSON, got nil")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected *ParseError, got %T: %v", err, err)
	}
}
