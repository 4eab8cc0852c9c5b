package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
}

func TestLoad(t *testing.T) {
	writeConfig(t, `
[app]
product_name = birdbot-test

[slack]
app_id = A1
client_id = cid
client_secret = "csecret"
signing_secret = ssecret
scopes = chat:write
redirect_url = https://example.test/authorize
port = 9000

[reddit]
subreddit = parrots
image_extensions = jpg, png
triggers = bird, parrot

[db]
host = db.internal
name = birds
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProductName != "birdbot-test" {
		t.Errorf("product_name: got %q", cfg.ProductName)
	}
	if cfg.SlackClientSecret != "csecret" {
		t.Errorf("client_secret: quotes not trimmed, got %q", cfg.SlackClientSecret)
	}
	if cfg.SlackPort != 9000 {
		t.Errorf("port: got %d", cfg.SlackPort)
	}
	if cfg.Subreddit != "parrots" {
		t.Errorf("subreddit: got %q", cfg.Subreddit)
	}
	if len(cfg.ImageExtensions) != 2 || cfg.ImageExtensions[0] != "jpg" || cfg.ImageExtensions[1] != "png" {
		t.Errorf("image_extensions: got %v", cfg.ImageExtensions)
	}
	if len(cfg.Triggers) != 2 || cfg.Triggers[0] != "bird" || cfg.Triggers[1] != "parrot" {
		t.Errorf("triggers: got %v", cfg.Triggers)
	}
	if got := cfg.DBConnString(); got != "host=db.internal port=5432 dbname=birds user=birdbot password= sslmode=prefer" {
		t.Errorf("conn string: got %q", got)
	}
}

func TestLoadEnvFallback(t *testing.T) {
	writeConfig(t, `
[reddit]
triggers = bird
`)
	t.Setenv("SLACK_SIGNING_SECRET", "from-env")
	t.Setenv("SLACK_PORT", "7777")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SlackSigningSecret != "from-env" {
		t.Errorf("signing secret env fallback: got %q", cfg.SlackSigningSecret)
	}
	if cfg.SlackPort != 7777 {
		t.Errorf("port env fallback: got %d", cfg.SlackPort)
	}
}

func TestLoadRequiresSigningSecret(t *testing.T) {
	writeConfig(t, `
[reddit]
triggers = bird
`)
	t.Setenv("SLACK_SIGNING_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without signing secret")
	}
}

func TestLoadRequiresTriggers(t *testing.T) {
	writeConfig(t, `
[slack]
signing_secret = s
`)

	if _, err := Load(); err == nil {
		t.Fatal("expected error without triggers")
	}
}

func TestLoadDefaults(t *testing.T) {
	writeConfig(t, `
[slack]
signing_secret = s

[reddit]
triggers = bird
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SlackPort != 8085 {
		t.Errorf("default port: got %d", cfg.SlackPort)
	}
	if cfg.Subreddit != "birdpics" {
		t.Errorf("default subreddit: got %q", cfg.Subreddit)
	}
	if len(cfg.ImageExtensions) != 4 {
		t.Errorf("default extensions: got %v", cfg.ImageExtensions)
	}
}
