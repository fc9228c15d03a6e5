package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Scene != "stack" {
		t.Errorf("expected scene stack, got %s", cfg.Scene)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Duration <= 0 {
		t.Error("duration should be positive")
	}
	if cfg.Gravity[1] >= 0 {
		t.Error("default gravity should point down")
	}
	if cfg.VelocityIterations <= 0 || cfg.PositionIterations <= 0 {
		t.Error("iteration counts should be positive")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Scene = "mixer"
	cfg.Seed = 42
	cfg.Workers = 2
	cfg.Sleep.TimeToSleep = 0.75

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\nsaved  %+v\nloaded %+v", cfg, loaded)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("scene: projectile\ndt: 0.005\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Scene != "projectile" || cfg.Dt != 0.005 {
		t.Errorf("explicit fields not applied: %+v", cfg)
	}
	if cfg.VelocityIterations != DefaultVelocityIterations {
		t.Errorf("unset field lost its default: %+v", cfg)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("stack", "precise")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Dt != 1.0/120.0 {
		t.Errorf("expected dt 1/120, got %f", cfg.Dt)
	}
	if !cfg.Deterministic || cfg.Workers != 1 {
		t.Errorf("precise preset should be deterministic single-worker: %+v", cfg)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("stack", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "default"); cfg != nil {
		t.Error("expected nil for nonexistent scene")
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets("stack")
	if len(names) != 3 {
		t.Errorf("expected 3 stack presets, got %v", names)
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent scene")
	}
}

func TestEveryPresetHasDefault(t *testing.T) {
	for scene, presets := range Presets {
		if _, ok := presets["default"]; !ok {
			t.Errorf("scene %s has no default preset", scene)
		}
		for name, cfg := range presets {
			if cfg.Scene != scene {
				t.Errorf("preset %s/%s names scene %s", scene, name, cfg.Scene)
			}
			if cfg.Dt <= 0 {
				t.Errorf("preset %s/%s has invalid dt", scene, name)
			}
		}
	}
}

func TestStepConfigSleepFallback(t *testing.T) {
	cfg := GetPreset("stack", "default")
	step := cfg.StepConfig()
	if step.Sleep.TimeToSleep <= 0 {
		t.Error("zero sleep config should fall back to defaults")
	}
	if step.VelocityIterations != cfg.VelocityIterations {
		t.Error("iteration counts not forwarded")
	}
}
