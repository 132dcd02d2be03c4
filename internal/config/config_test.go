package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadMissingCredential(t *testing.T) {
	t.Setenv("AI_PROVIDER", "ark")
	t.Setenv("ARK_API_KEY", "")

	_, err := Load()
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AI_PROVIDER", "")
	t.Setenv("ARK_API_KEY", "ark-key")
	t.Setenv("PORT", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("IMAGE_MAX_BYTES", "")
	t.Setenv("IMAGE_MAX_WIDTH", "")
	t.Setenv("IMAGE_MAX_PIXELS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.AI.Provider != ProviderArk {
		t.Fatalf("expected ark provider, got %s", cfg.AI.Provider)
	}
	if cfg.AI.APIKey != "ark-key" {
		t.Fatalf("unexpected api key %q", cfg.AI.APIKey)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr %s", cfg.Server.Addr)
	}
	if cfg.Session.TTL != 2*time.Hour {
		t.Fatalf("unexpected ttl %s", cfg.Session.TTL)
	}
	if cfg.Image.MaxBytes != 10<<20 || cfg.Image.MaxWidth != 1280 || cfg.Image.MaxPixels != 40_000_000 {
		t.Fatalf("unexpected image limits %+v", cfg.Image)
	}
}

func TestLoadOpenAIProvider(t *testing.T) {
	t.Setenv("AI_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("OPENAI_VISION_MODEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.AI.Provider != ProviderOpenAI {
		t.Fatalf("expected openai provider, got %s", cfg.AI.Provider)
	}
	if cfg.AI.VisionModel != "gpt-4o-mini" {
		t.Fatalf("vision model should fall back to text model, got %s", cfg.AI.VisionModel)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("AI_PROVIDER", "gemini")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoadServerConfigAcceptsHostPort(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")

	cfg, err := loadServerConfig()
	if err != nil {
		t.Fatalf("loadServerConfig err: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %s", cfg.Addr)
	}
}

func TestParseDurationEnvInvalid(t *testing.T) {
	t.Setenv("SESSION_TTL", "soon")

	if _, err := loadSessionConfig(); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestLoadImageConfigMaxPixels(t *testing.T) {
	t.Setenv("IMAGE_MAX_PIXELS", "1000000")

	cfg, err := loadImageConfig()
	if err != nil {
		t.Fatalf("loadImageConfig err: %v", err)
	}
	if cfg.MaxPixels != 1000000 {
		t.Fatalf("unexpected max pixels %d", cfg.MaxPixels)
	}
}

func TestLoadServerConfigAllowedOrigins(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://localhost:5173, ,https://chat.example.com ")

	cfg, err := loadServerConfig()
	if err != nil {
		t.Fatalf("loadServerConfig err: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "http://localhost:5173" || cfg.AllowedOrigins[1] != "https://chat.example.com" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}
