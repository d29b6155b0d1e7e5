package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/makeasinger/fabricator/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8000" || cfg.Fabrication.Workers != 4 {
		t.Errorf("unexpected defaults %+v %+v", cfg.Server, cfg.Fabrication)
	}
	if cfg.Fabrication.RetryDelay != 5*time.Second || cfg.Fabrication.BufferAhead != time.Minute {
		t.Errorf("unexpected delays %+v", cfg.Fabrication)
	}
	tuning := cfg.Craft.Tuning()
	if tuning.MatchWeight != 10 || tuning.EntropyLimit != 4 || len(tuning.DetailTypes) != 5 {
		t.Errorf("unexpected tuning %+v", tuning)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("FABRICATION_RETRY_DELAY", "250ms")
	t.Setenv("CRAFT_DETAIL_TYPES", "bass, Stab,nonsense")
	t.Setenv("CRAFT_SEED", "42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9100" {
		t.Errorf("expected port 9100, got %s", cfg.Server.Port)
	}
	if cfg.Fabrication.RetryDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.Fabrication.RetryDelay)
	}
	if cfg.Craft.Seed != 42 {
		t.Errorf("expected seed 42, got %d", cfg.Craft.Seed)
	}
	got := cfg.Craft.Tuning().DetailTypes
	if len(got) != 2 || got[0] != model.InstrumentTypeBass || got[1] != model.InstrumentTypeStab {
		t.Errorf("unexpected detail types %v", got)
	}
}

func TestReadSecretFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte("s3cret\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_SECRET_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWT.Secret != "s3cret" {
		t.Errorf("expected secret from file, got %q", cfg.JWT.Secret)
	}
}
