package store

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	ModeDryRun = "DRY_RUN"
	ModeLive   = "LIVE"

	OperatingFullScan  = "FULL_SCAN"
	OperatingScalpOnly = "SCALP_ONLY"
)

type Config struct {
	Mode          string `yaml:"mode" default:"DRY_RUN" validate:"oneof=DRY_RUN LIVE"`
	DataSource    string `yaml:"data_source" default:"STATIC" validate:"oneof=STATIC LIVE"`
	OperatingMode string `yaml:"operating_mode" default:"FULL_SCAN" validate:"oneof=FULL_SCAN SCALP_ONLY"`
	Schedule      string `yaml:"schedule"`

	Exchange struct {
		BaseURL        string        `yaml:"base_url" default:"https://api.binance.com" validate:"url"`
		Timeout        time.Duration `yaml:"timeout" default:"10s"`
		RequestsPerSec float64       `yaml:"requests_per_sec" default:"10" validate:"gt=0"`
		Burst          int           `yaml:"burst" default:"5" validate:"gte=1"`
	} `yaml:"exchange"`

	Scan struct {
		Quote          string   `yaml:"quote" default:"USDT" validate:"required"`
		Stablecoins    []string `yaml:"stablecoins" default:"[\"USDC\",\"FDUSD\",\"TUSD\",\"DAI\",\"BUSD\",\"USDP\",\"EUR\",\"GBP\",\"USD1\"]"`
		MinChangePct   float64  `yaml:"min_change_pct" default:"1.0" validate:"gte=0"`
		MinPrice       float64  `yaml:"min_price" default:"0.01" validate:"gte=0"`
		TopN           int      `yaml:"top_n" default:"30" validate:"gte=1"`
		Concurrency    int      `yaml:"concurrency" default:"8" validate:"gte=1"`
		MacroTimeframe string   `yaml:"macro_timeframe" default:"15m" validate:"required"`
		MacroLimit     int      `yaml:"macro_limit" default:"110" validate:"gte=1"`
		MicroTimeframe string   `yaml:"micro_timeframe" default:"5m" validate:"required"`
		MicroLimit     int      `yaml:"micro_limit" default:"100" validate:"gte=1"`
	} `yaml:"scan"`

	Params Params `yaml:"params"`

	Hysteresis struct {
		Symbol       string        `yaml:"symbol" default:"BTC/USDT" validate:"required"`
		Timeframe    string        `yaml:"timeframe" default:"1m" validate:"required"`
		Limit        int           `yaml:"limit" default:"100" validate:"gte=1"`
		MAPeriod     int           `yaml:"ma_period" default:"20" validate:"gte=1"`
		RSIPeriod    int           `yaml:"rsi_period" default:"14" validate:"gte=1"`
		ArmBelow     float64       `yaml:"arm_below" default:"35"`
		DisarmAbove  float64       `yaml:"disarm_above" default:"60"`
		FireAbove    float64       `yaml:"fire_above" default:"35"`
		Duration     time.Duration `yaml:"duration" default:"13m"`
		PollInterval time.Duration `yaml:"poll_interval" default:"20s"`
		TakeProfit   float64       `yaml:"take_profit_pct" default:"0.006" validate:"gt=0"`
		StopLoss     float64       `yaml:"stop_loss_pct" default:"0.004" validate:"gt=0"`
	} `yaml:"hysteresis"`

	Sentiment struct {
		Enabled      bool          `yaml:"enabled"`
		TTL          time.Duration `yaml:"ttl" default:"6h"`
		Store        string        `yaml:"store" default:"FILE" validate:"oneof=MEMORY FILE REDIS"`
		FilePath     string        `yaml:"file_path" default:"cache/sentiment.json"`
		MaxHeadlines int           `yaml:"max_headlines" default:"20" validate:"gte=1"`
		Timeout      time.Duration `yaml:"timeout" default:"15s"`
		Feeds        []Feed        `yaml:"feeds" validate:"dive" default:"[{\"name\":\"google-news\",\"url\":\"https://news.google.com/rss/search?q={base}+crypto&hl=en-US&gl=US&ceid=US:en\"},{\"name\":\"coindesk\",\"url\":\"https://www.coindesk.com/tag/{base}\",\"selector\":\"h2, h3\"}]"`
	} `yaml:"sentiment"`

	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"signalbot"`
	} `yaml:"redis"`

	Digest struct {
		Enabled    bool          `yaml:"enabled"`
		Interval   time.Duration `yaml:"interval" default:"12h"`
		ClockStore string        `yaml:"clock_store" default:"FILE" validate:"oneof=FILE REDIS"`
		ClockPath  string        `yaml:"clock_path" default:"cache/clock.json"`
		TopN       int           `yaml:"top_n" default:"5" validate:"gte=1"`
	} `yaml:"digest"`

	Telegram struct {
		ChannelID string `yaml:"channel_id"`
		Token     string `yaml:"-"`
	} `yaml:"telegram"`

	Journal struct {
		Dir           string `yaml:"dir" default:"logs"`
		RetentionDays int    `yaml:"retention_days" default:"14"`
	} `yaml:"journal"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr" default:":9090"`
	} `yaml:"metrics"`
}

// Params is the versioned set of tunable numbers used by the decision
// pipeline. Historical deployments disagreed on several of these, so the
// blend weights and threshold have no built-in default.
type Params struct {
	Version string `yaml:"version" default:"10.0.1" validate:"required"`

	MacroMinBars int     `yaml:"macro_min_bars" default:"51" validate:"gte=2"`
	MicroMinBars int     `yaml:"micro_min_bars" default:"21" validate:"gte=2"`
	BaselineMax  int     `yaml:"baseline_max_period" default:"100" validate:"gte=1"`
	RSIPeriod    int     `yaml:"rsi_period" default:"14" validate:"gte=1"`
	ATRPeriod    int     `yaml:"atr_period" default:"14" validate:"gte=1"`
	ShortEMA     int     `yaml:"short_ema_period" default:"12" validate:"gte=1"`
	NeutralBand  float64 `yaml:"neutral_band" default:"0.0075" validate:"gte=0,lt=1"`

	Risk struct {
		StopLossMult    float64 `yaml:"stop_loss_mult" default:"1.5" validate:"gt=0"`
		TakeProfitMult  float64 `yaml:"take_profit_mult" default:"2.5" validate:"gt=0"`
		FallbackVolPct  float64 `yaml:"fallback_vol_pct" default:"0.015" validate:"gt=0"`
		MaxPlausibleVol float64 `yaml:"max_plausible_vol_pct" default:"0.10" validate:"gt=0"`
	} `yaml:"risk"`

	TopK int `yaml:"top_k" default:"3" validate:"gte=1"`

	Blend struct {
		Enabled             bool    `yaml:"enabled"`
		ConfidenceThreshold float64 `yaml:"confidence_threshold" validate:"gte=0,lte=1"`
		Weights             struct {
			Technical  float64 `yaml:"technical" validate:"gte=0"`
			Sentiment  float64 `yaml:"sentiment" validate:"gte=0"`
			Volatility float64 `yaml:"volatility" validate:"gte=0"`
		} `yaml:"weights"`
	} `yaml:"blend"`
}

// Feed is one headline source. Feeds without a selector are read as RSS.
type Feed struct {
	Name     string `yaml:"name" validate:"required"`
	URL      string `yaml:"url" validate:"required"`
	Selector string `yaml:"selector"`
}

var validate = validator.New()

// Validate checks rules that span several fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Mode == ModeLive && c.DataSource != "LIVE" {
		return errors.New("mode LIVE requires data_source LIVE")
	}
	if c.Hysteresis.PollInterval <= 0 || c.Hysteresis.Duration < c.Hysteresis.PollInterval {
		return fmt.Errorf("hysteresis.duration (%s) must be at least one poll_interval (%s)", c.Hysteresis.Duration, c.Hysteresis.PollInterval)
	}
	if c.Hysteresis.DisarmAbove <= c.Hysteresis.ArmBelow {
		return fmt.Errorf("hysteresis.disarm_above (%.1f) must exceed arm_below (%.1f)", c.Hysteresis.DisarmAbove, c.Hysteresis.ArmBelow)
	}
	if c.Params.Blend.Enabled {
		if !c.Sentiment.Enabled {
			return errors.New("params.blend.enabled requires sentiment.enabled")
		}
		w := c.Params.Blend.Weights
		sum := w.Technical + w.Sentiment + w.Volatility
		if math.Abs(sum-1.0) > 1e-6 {
			return fmt.Errorf("params.blend.weights must sum to 1, got %.4f", sum)
		}
		if c.Params.Blend.ConfidenceThreshold <= 0 {
			return errors.New("params.blend.confidence_threshold must be set when blending is enabled")
		}
	}
	if c.Sentiment.TTL <= 0 {
		return fmt.Errorf("sentiment.ttl must be positive, got %s", c.Sentiment.TTL)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

// ParseConfig applies defaults, decodes YAML over them, overlays the
// environment and validates.
func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHANNEL_ID"); v != "" {
		c.Telegram.ChannelID = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("OPERATING_MODE"); v != "" {
		c.OperatingMode = v
	}
	if v := os.Getenv("BOT_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("SCAN_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scan.TopN = n
		}
	}
}
