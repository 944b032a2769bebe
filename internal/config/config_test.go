package config

import (
	"reflect"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.EventExchange != "degicredit.events" {
		t.Errorf("expected default exchange, got %q", cfg.EventExchange)
	}
	if cfg.MaxPageLimit != 100 {
		t.Errorf("expected default page limit 100, got %d", cfg.MaxPageLimit)
	}
	if cfg.ExpirySweepSchedule != "*/5 * * * *" {
		t.Errorf("expected default sweep schedule, got %q", cfg.ExpirySweepSchedule)
	}
	if cfg.RedisRateLimitPrefix != "degicredit:rate_limit" {
		t.Errorf("expected default rate limit prefix, got %q", cfg.RedisRateLimitPrefix)
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("JWT_SECRET", "  sekrit  ")
	t.Setenv("MAX_PAGE_LIMIT", "25")
	t.Setenv("MARKET_RATE_LIMIT_PER_MINUTE", "30")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ServerPort != "9191" {
		t.Errorf("expected port 9191, got %q", cfg.ServerPort)
	}
	if cfg.JWTSecret != "sekrit" {
		t.Errorf("secret must be trimmed, got %q", cfg.JWTSecret)
	}
	if cfg.MaxPageLimit != 25 {
		t.Errorf("expected page limit 25, got %d", cfg.MaxPageLimit)
	}
	if cfg.MarketRateLimitPerMinute != 30 {
		t.Errorf("expected market limit 30, got %d", cfg.MarketRateLimitPerMinute)
	}
}

func TestProductTypesCatalog(t *testing.T) {
	var cfg Config
	if got := cfg.ProductTypes(); !reflect.DeepEqual(got, DefaultProductTypes) {
		t.Errorf("empty catalog must fall back to defaults, got %v", got)
	}

	cfg.ProductTypeCatalog = " giftcard , voucher ,, ticket "
	want := []string{"giftcard", "voucher", "ticket"}
	if got := cfg.ProductTypes(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	cfg.ProductTypeCatalog = " , , "
	if got := cfg.ProductTypes(); !reflect.DeepEqual(got, DefaultProductTypes) {
		t.Errorf("blank catalog entries must fall back to defaults, got %v", got)
	}
}
