package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InvoicingConfig holds the operator-tunable invoice defaults.
type InvoicingConfig struct {
	DefaultTitle   string
	DefaultDueDays int
	MaxLineItems   int
	// NumberTemplate renders the display number, e.g. "INV-{YYYY}-{SEQ6}".
	NumberTemplate string
}

func DefaultInvoicingConfig() InvoicingConfig {
	return InvoicingConfig{
		DefaultTitle:   "Invoice",
		DefaultDueDays: 7,
		MaxLineItems:   500,
		NumberTemplate: "INV-{SEQ6}",
	}
}

type InvoicingConfigHolder struct {
	current atomic.Value // holds InvoicingConfig
}

// NewStaticInvoicingConfigHolder returns a holder pinned to cfg, without file watching.
func NewStaticInvoicingConfigHolder(cfg InvoicingConfig) *InvoicingConfigHolder {
	holder := &InvoicingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

// NewInvoicingConfigHolder reads invoicing.yml from the configured paths and
// keeps it in sync with the file. A missing file means defaults.
func NewInvoicingConfigHolder(appCfg Config, log *zap.Logger) (*InvoicingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("invoicing")
	v.SetConfigType("yml")
	for _, path := range appCfg.InvoicingConfigPaths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("BILLDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultInvoicingConfig()
	v.SetDefault("invoicing.default_title", defaults.DefaultTitle)
	v.SetDefault("invoicing.default_due_days", defaults.DefaultDueDays)
	v.SetDefault("invoicing.max_line_items", defaults.MaxLineItems)
	v.SetDefault("invoicing.number_template", defaults.NumberTemplate)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	cfg := readInvoicingConfig(v)
	if err := validateInvoicingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticInvoicingConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		updated := readInvoicingConfig(v)
		if err := validateInvoicingConfig(updated); err != nil {
			log.Warn("invalid invoicing config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("invoicing config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *InvoicingConfigHolder) Get() InvoicingConfig {
	if h == nil {
		return DefaultInvoicingConfig()
	}
	cfg, ok := h.current.Load().(InvoicingConfig)
	if !ok {
		return DefaultInvoicingConfig()
	}
	return cfg
}

// readInvoicingConfig reads key by key so defaults and env overrides apply
// to fields the file leaves out.
func readInvoicingConfig(v *viper.Viper) InvoicingConfig {
	return InvoicingConfig{
		DefaultTitle:   strings.TrimSpace(v.GetString("invoicing.default_title")),
		DefaultDueDays: v.GetInt("invoicing.default_due_days"),
		MaxLineItems:   v.GetInt("invoicing.max_line_items"),
		NumberTemplate: strings.TrimSpace(v.GetString("invoicing.number_template")),
	}
}

func validateInvoicingConfig(cfg InvoicingConfig) error {
	if strings.TrimSpace(cfg.DefaultTitle) == "" {
		return errors.New("invoicing.default_title cannot be empty")
	}
	if cfg.DefaultDueDays < 0 {
		return errors.New("invoicing.default_due_days cannot be negative")
	}
	if cfg.MaxLineItems <= 0 {
		return errors.New("invoicing.max_line_items must be positive")
	}
	if !strings.Contains(cfg.NumberTemplate, "{SEQ") {
		return errors.New("invoicing.number_template must contain a {SEQ} token")
	}
	return nil
}
