package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("mode: DRY_RUN\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Params.Version != "10.0.1" {
		t.Errorf("Expected params version 10.0.1, got %s", cfg.Params.Version)
	}
	if cfg.Params.NeutralBand != 0.0075 || cfg.Params.Risk.StopLossMult != 1.5 || cfg.Params.Risk.TakeProfitMult != 2.5 {
		t.Errorf("Unexpected params %+v", cfg.Params)
	}
	if cfg.Scan.TopN != 30 || len(cfg.Scan.Stablecoins) != 9 {
		t.Errorf("Unexpected scan defaults %+v", cfg.Scan)
	}
	if cfg.Hysteresis.Duration != 13*time.Minute || cfg.Hysteresis.PollInterval != 20*time.Second {
		t.Errorf("Unexpected hysteresis timing %s / %s", cfg.Hysteresis.Duration, cfg.Hysteresis.PollInterval)
	}
	if cfg.Sentiment.TTL != 6*time.Hour || len(cfg.Sentiment.Feeds) != 2 {
		t.Errorf("Unexpected sentiment defaults ttl=%s feeds=%d", cfg.Sentiment.TTL, len(cfg.Sentiment.Feeds))
	}
	if cfg.Params.Blend.Weights.Technical != 0 || cfg.Params.Blend.ConfidenceThreshold != 0 {
		t.Error("Expected blend weights and threshold to have no default")
	}
}

func TestParseConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad mode", "mode: PAPER\n", "Mode"},
		{"live needs live data", "mode: LIVE\ndata_source: STATIC\n", "data_source LIVE"},
		{"duration shorter than poll", "hysteresis:\n  duration: 10s\n  poll_interval: 20s\n", "poll_interval"},
		{"disarm below arm", "hysteresis:\n  arm_below: 40\n  disarm_above: 30\n", "disarm_above"},
		{"blend without sentiment", "params:\n  blend:\n    enabled: true\n", "sentiment.enabled"},
		{"weights must sum to one", `
sentiment:
  enabled: true
params:
  blend:
    enabled: true
    confidence_threshold: 0.6
    weights: {technical: 0.5, sentiment: 0.3, volatility: 0.3}
`, "sum to 1"},
		{"blend needs threshold", `
sentiment:
  enabled: true
params:
  blend:
    enabled: true
    weights: {technical: 0.5, sentiment: 0.3, volatility: 0.2}
`, "confidence_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseConfigBlendAccepted(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
sentiment:
  enabled: true
params:
  blend:
    enabled: true
    confidence_threshold: 0.7
    weights: {technical: 0.5, sentiment: 0.3, volatility: 0.2}
`))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Params.Blend.Enabled || cfg.Params.Blend.Weights.Sentiment != 0.3 {
		t.Errorf("Unexpected blend %+v", cfg.Params.Blend)
	}
}

func TestParseConfigEnvOverlay(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHANNEL_ID", "@signals")
	t.Setenv("OPERATING_MODE", "SCALP_ONLY")
	t.Setenv("SCAN_TOP_N", "12")

	cfg, err := ParseConfig([]byte("telegram:\n  channel_id: '@fromfile'\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.ChannelID != "@signals" {
		t.Errorf("Expected telegram from env, got %+v", cfg.Telegram)
	}
	if cfg.OperatingMode != OperatingScalpOnly || cfg.Scan.TopN != 12 {
		t.Errorf("Expected env overrides, got mode=%s top_n=%d", cfg.OperatingMode, cfg.Scan.TopN)
	}
}

func TestLoadConfigSample(t *testing.T) {
	path := filepath.Join("..", "..", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("sample config not present")
	}
	if _, err := LoadConfig(path); err != nil {
		t.Errorf("Expected sample config to load, got %v", err)
	}
}
