package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// appConfig collects everything the pipeline needs for one run. Values come
// from the optional YAML config file, overridden by any flag set on the
// command line.
type appConfig struct {
	AuthDir         string        `mapstructure:"auth_dir"`
	Credentials     string        `mapstructure:"credentials"`
	Token           string        `mapstructure:"token"`
	Query           string        `mapstructure:"query"`
	PageSize        int           `mapstructure:"page_size"`
	MaxMessages     int           `mapstructure:"max_messages"`
	RedactionPasses int           `mapstructure:"redaction_passes"`
	QuotaUnits      int           `mapstructure:"quota_units"`
	QuotaWindow     time.Duration `mapstructure:"quota_window"`
	QuotaMaxWait    time.Duration `mapstructure:"quota_max_wait"`
	ApprovalTimeout time.Duration `mapstructure:"approval_timeout"`
	MaxEditPasses   int           `mapstructure:"max_edit_passes"`
	Drafter         string        `mapstructure:"drafter"`
	TemplateBody    string        `mapstructure:"template_body"`
	Model           string        `mapstructure:"model"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
}

func defaultConfig() appConfig {
	return appConfig{
		AuthDir:         os.ExpandEnv("$HOME/.gmailctl"),
		Query:           "in:inbox is:unread -in:draft",
		PageSize:        100,
		RedactionPasses: 3,
		QuotaUnits:      250,
		QuotaWindow:     time.Minute,
		MaxEditPasses:   3,
		Drafter:         "anthropic",
	}
}

// loadConfig reads the YAML file at path, if one exists, over the defaults.
func loadConfig(path string) (appConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
