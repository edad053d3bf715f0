// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/lp-yield/internal/types"
)

// Config содержит все параметры мониторинга одной пары.
// Загружается один раз при старте и дальше не меняется.
type Config struct {
	PairName      string `mapstructure:"pair_name" validate:"required"`
	TokenPriceURL string `mapstructure:"token_price_url" validate:"required,url"`
	PairsURL      string `mapstructure:"pairs_url" validate:"required,url"`
	PairKey       string `mapstructure:"pair_key" validate:"required"`

	FeeRate               float64 `mapstructure:"fee_rate" validate:"gte=0,lt=1"`
	TotalFarmMultiplier   float64 `mapstructure:"total_farm_multiplier" validate:"gt=0"`
	TotalEmissionPerDay   float64 `mapstructure:"total_emission_per_day" validate:"gte=0"`
	FarmMultiplier        float64 `mapstructure:"farm_multiplier" validate:"gte=0"`
	CompoundingPeriodDays int     `mapstructure:"period_days" validate:"gte=0"`

	Interval         time.Duration `mapstructure:"-"`
	IntervalMS       int           `mapstructure:"interval_ms" validate:"gt=0"`
	RequestTimeout   time.Duration `mapstructure:"-"`
	RequestTimeoutMS int           `mapstructure:"request_timeout_ms" validate:"gte=0"`
	FetchRetries     int           `mapstructure:"fetch_retries" validate:"gte=0,lte=10"`

	ReportFormat string `mapstructure:"report_format" validate:"oneof=text json"`
	Once         bool   `mapstructure:"once"`
	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
}

// Значения по умолчанию: пара CAKE-BNB на PancakeSwap (запись от 2022-03-02).
const (
	DefaultPairName      = "CAKE-BNB"
	DefaultTokenPriceURL = "https://api.pancakeswap.info/api/v2/tokens/0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82"
	DefaultPairsURL      = "https://api.pancakeswap.info/api/v2/pairs"
	DefaultPairKey       = "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82_0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"

	DefaultFeeRate             = 0.0017
	DefaultTotalFarmMultiplier = 102.1
	DefaultTotalEmissionPerDay = 72400.0
	DefaultFarmMultiplier      = 40.0
	DefaultPeriodDays          = 365

	DefaultIntervalMS       = 10000
	DefaultRequestTimeoutMS = 10000
	DefaultReportFormat     = "text"
	DefaultLogFile          = "logs/lp-yield.log"

	EnvPrefix = "LP_YIELD"
)

var validate = validator.New()

// NewViper создает viper со всеми значениями по умолчанию и привязкой к окружению.
func NewViper() *viper.Viper {
	v := viper.New()

	defaults := map[string]interface{}{
		"pair_name":              DefaultPairName,
		"token_price_url":        DefaultTokenPriceURL,
		"pairs_url":              DefaultPairsURL,
		"pair_key":               DefaultPairKey,
		"fee_rate":               DefaultFeeRate,
		"total_farm_multiplier":  DefaultTotalFarmMultiplier,
		"total_emission_per_day": DefaultTotalEmissionPerDay,
		"farm_multiplier":        DefaultFarmMultiplier,
		"period_days":            DefaultPeriodDays,
		"interval_ms":            DefaultIntervalMS,
		"request_timeout_ms":     DefaultRequestTimeoutMS,
		"fetch_retries":          0,
		"report_format":          DefaultReportFormat,
		"once":                   false,
		"debug_logging":          false,
		"log_file":               DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags регистрирует флаги командной строки и связывает их с ключами viper.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String("config", "", "path to config file (json, yaml or toml)")
	fs.Bool("once", false, "run a single cycle and exit")
	fs.String("format", DefaultReportFormat, "report format: text or json")
	fs.Int("interval", DefaultIntervalMS, "delay between cycles in milliseconds")
	fs.Bool("debug", false, "enable debug logging")

	bindings := map[string]string{
		"once":          "once",
		"report_format": "format",
		"interval_ms":   "interval",
		"debug_logging": "debug",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Load читает конфигурацию. Пустой path означает: только значения по умолчанию,
// переменные окружения и флаги.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal error: %w", err)
	}

	cfg.Interval = time.Duration(cfg.IntervalMS) * time.Millisecond
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutMS) * time.Millisecond

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig is the shortcut used by tests and simple callers.
func LoadConfig(path string) (Config, error) {
	return Load(NewViper(), path)
}

func (c Config) validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed %q check", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Constants возвращает параметры фарма для калькулятора.
func (c Config) Constants() types.ProtocolConstants {
	return types.ProtocolConstants{
		FeeRate:               c.FeeRate,
		TotalFarmMultiplier:   c.TotalFarmMultiplier,
		TotalEmissionPerDay:   c.TotalEmissionPerDay,
		TargetFarmMultiplier:  c.FarmMultiplier,
		CompoundingPeriodDays: c.CompoundingPeriodDays,
	}
}
