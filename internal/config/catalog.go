package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PricingDefault is a built-in price used when no catalog has been fetched.
type PricingDefault struct {
	ServiceType  string  `mapstructure:"serviceType"`
	Price        float64 `mapstructure:"price"`
	IsDailyPrice bool    `mapstructure:"isDailyPrice"`
	DurationDays int     `mapstructure:"durationDays"`
}

// CatalogConfig controls pricing catalog refresh and fallback pricing.
type CatalogConfig struct {
	RefreshInterval time.Duration    `mapstructure:"refreshInterval"`
	Defaults        []PricingDefault `mapstructure:"defaults"`
}

// Fallback prices sit at or above typical live prices. Only "free" is zero.
const (
	DefaultVipDailyPrice               = 2.00
	DefaultVipPlusPackagePrice         = 30.00
	DefaultVipPlusPackageDays          = 7
	DefaultSuperVipDailyPrice          = 5.00
	DefaultColorHighlightingDailyPrice = 0.50
	DefaultAutoRenewalDailyPrice       = 0.50
	DefaultRefreshInterval             = 5 * time.Minute
)

func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		RefreshInterval: DefaultRefreshInterval,
		Defaults: []PricingDefault{
			{ServiceType: "vip", Price: DefaultVipDailyPrice, IsDailyPrice: true},
			{ServiceType: "vip_plus", Price: DefaultVipPlusPackagePrice, DurationDays: DefaultVipPlusPackageDays},
			{ServiceType: "super_vip", Price: DefaultSuperVipDailyPrice, IsDailyPrice: true},
			{ServiceType: "color_highlighting", Price: DefaultColorHighlightingDailyPrice, IsDailyPrice: true},
			{ServiceType: "auto_renewal", Price: DefaultAutoRenewalDailyPrice, IsDailyPrice: true},
			{ServiceType: "free", Price: 0, IsDailyPrice: true},
		},
	}
}

type CatalogConfigHolder struct {
	current atomic.Value // holds CatalogConfig
}

// NewStaticCatalogConfigHolder wraps a fixed config, mainly for tests and the CLI.
func NewStaticCatalogConfigHolder(cfg CatalogConfig) *CatalogConfigHolder {
	holder := &CatalogConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewCatalogConfigHolder() (*CatalogConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("catalog")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/autobazaar")
	v.AddConfigPath(".")

	v.SetEnvPrefix("AUTOBAZAAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCatalogConfig()
	v.SetDefault("catalog.refreshInterval", defaults.RefreshInterval)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeCatalogConfig(v)
	if err != nil {
		return nil, err
	}

	holder := &CatalogConfigHolder{}
	holder.current.Store(cfg)

	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeCatalogConfig(v)
		if err != nil {
			log.Printf("[catalog-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[catalog-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *CatalogConfigHolder) Get() CatalogConfig {
	return h.current.Load().(CatalogConfig)
}

func decodeCatalogConfig(v *viper.Viper) (CatalogConfig, error) {
	var cfg CatalogConfig
	if err := v.UnmarshalKey("catalog", &cfg); err != nil {
		return CatalogConfig{}, err
	}
	cfg = cfg.withDefaults()
	if err := validateCatalogConfig(cfg); err != nil {
		return CatalogConfig{}, err
	}
	return cfg, nil
}

func (c CatalogConfig) withDefaults() CatalogConfig {
	defaults := DefaultCatalogConfig()
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = defaults.RefreshInterval
	}
	configured := make(map[string]struct{}, len(c.Defaults))
	for _, d := range c.Defaults {
		configured[strings.ToLower(strings.TrimSpace(d.ServiceType))] = struct{}{}
	}
	for _, d := range defaults.Defaults {
		if _, ok := configured[d.ServiceType]; !ok {
			c.Defaults = append(c.Defaults, d)
		}
	}
	return c
}

func validateCatalogConfig(cfg CatalogConfig) error {
	seen := make(map[string]struct{}, len(cfg.Defaults))
	for _, d := range cfg.Defaults {
		st := strings.ToLower(strings.TrimSpace(d.ServiceType))
		if st == "" {
			return errors.New("catalog.defaults: serviceType cannot be empty")
		}
		if _, dup := seen[st]; dup {
			return fmt.Errorf("catalog.defaults: duplicate serviceType %q", st)
		}
		seen[st] = struct{}{}
		if d.Price < 0 {
			return fmt.Errorf("catalog.defaults: %s price cannot be negative", st)
		}
		if d.Price == 0 && st != "free" {
			return fmt.Errorf("catalog.defaults: %s fallback price must be non-zero", st)
		}
		if !d.IsDailyPrice && d.DurationDays <= 0 {
			return fmt.Errorf("catalog.defaults: %s package needs durationDays", st)
		}
	}
	return nil
}
