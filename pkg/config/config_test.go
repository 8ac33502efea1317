package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bot.Name != "GameWatch" {
		t.Fatalf("Bot.Name = %q", cfg.Bot.Name)
	}
	if cfg.Bot.DefaultPrefix != "/" {
		t.Fatalf("DefaultPrefix = %q", cfg.Bot.DefaultPrefix)
	}
	if cfg.Feeds.IntervalMinutes != 15 {
		t.Fatalf("IntervalMinutes = %d", cfg.Feeds.IntervalMinutes)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"bot": {"name": "TestBot", "default_prefix": "!", "owner_ids": [123, "telegram:456"]},
		"channels": {
			"telegram": {"enabled": true, "token": "tg-token", "allow_from": [789, "@alice"]}
		},
		"feeds": {"interval_minutes": 5}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("GAMEWATCH_BOT_NAME", "EnvBot")
	t.Setenv("GAMEWATCH_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Bot.Name != "EnvBot" {
		t.Fatalf("env override lost, Bot.Name = %q", cfg.Bot.Name)
	}
	if cfg.Bot.DefaultPrefix != "!" {
		t.Fatalf("DefaultPrefix = %q", cfg.Bot.DefaultPrefix)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("Log.Level = %q", cfg.Log.Level)
	}
	if !cfg.Channels.Telegram.Enabled || cfg.Channels.Telegram.Token != "tg-token" {
		t.Fatalf("telegram config = %+v", cfg.Channels.Telegram)
	}
	if cfg.Feeds.IntervalMinutes != 5 {
		t.Fatalf("IntervalMinutes = %d", cfg.Feeds.IntervalMinutes)
	}

	// Numeric IDs in JSON arrays become strings.
	owners := []string(cfg.Bot.OwnerIDs)
	if len(owners) != 2 || owners[0] != "123" || owners[1] != "telegram:456" {
		t.Fatalf("OwnerIDs = %v", owners)
	}
	allow := []string(cfg.Channels.Telegram.AllowFrom)
	if len(allow) != 2 || allow[0] != "789" || allow[1] != "@alice" {
		t.Fatalf("AllowFrom = %v", allow)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Bot.Name = "RoundTrip"
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Bot.Name != "RoundTrip" {
		t.Fatalf("Bot.Name = %q", loaded.Bot.Name)
	}
}

func TestFlexibleStringSliceUnmarshal(t *testing.T) {
	var f FlexibleStringSlice
	if err := json.Unmarshal([]byte(`["a", 1, 2.0]`), &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := []string{"a", "1", "2"}
	if len(f) != len(want) {
		t.Fatalf("got %v, want %v", f, want)
	}
	for i := range want {
		if f[i] != want[i] {
			t.Fatalf("got %v, want %v", f, want)
		}
	}
}
