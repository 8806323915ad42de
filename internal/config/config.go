package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "PLANTOS"

const (
	KeyAPIURL               = "api_url"
	KeyDBPath               = "db_path"
	KeyLogFile              = "log_file"
	KeyLogLevel             = "log_level"
	KeyHorizonDays          = "horizon_days"
	KeyRequestTimeout       = "request_timeout"
	KeySchedulerBuffer      = "scheduler_buffer"
	KeyDesktopNotifications = "desktop_notifications"
	KeyDueWindowMinutes     = "due_window_minutes"
	KeyDevAddr              = "dev_addr"
)

type RuntimeConfig struct {
	APIURL               string        `mapstructure:"api_url"`
	DBPath               string        `mapstructure:"db_path"`
	LogFile              string        `mapstructure:"log_file"`
	LogLevel             string        `mapstructure:"log_level"`
	HorizonDays          int           `mapstructure:"horizon_days"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	SchedulerBuffer      int           `mapstructure:"scheduler_buffer"`
	DesktopNotifications bool          `mapstructure:"desktop_notifications"`
	DueWindowMinutes     int           `mapstructure:"due_window_minutes"`
	DevAddr              string        `mapstructure:"dev_addr"`
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		APIURL:               "http://localhost:8000",
		DBPath:               "plantos.db",
		LogFile:              "plantos.log",
		LogLevel:             "info",
		HorizonDays:          7,
		RequestTimeout:       10 * time.Second,
		SchedulerBuffer:      64,
		DesktopNotifications: false,
		DueWindowMinutes:     120,
		DevAddr:              ":8000",
	}
}

// NewViper returns a viper instance with defaults registered and PLANTOS_*
// environment variables bound.
func NewViper() *viper.Viper {
	v := viper.New()
	d := DefaultRuntimeConfig()
	v.SetDefault(KeyAPIURL, d.APIURL)
	v.SetDefault(KeyDBPath, d.DBPath)
	v.SetDefault(KeyLogFile, d.LogFile)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyHorizonDays, d.HorizonDays)
	v.SetDefault(KeyRequestTimeout, d.RequestTimeout)
	v.SetDefault(KeySchedulerBuffer, d.SchedulerBuffer)
	v.SetDefault(KeyDesktopNotifications, d.DesktopNotifications)
	v.SetDefault(KeyDueWindowMinutes, d.DueWindowMinutes)
	v.SetDefault(KeyDevAddr, d.DevAddr)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file into v and decodes the result. An explicit
// path must exist; otherwise plantos.yaml is looked up in the working
// directory and $HOME/.config/plantos and may be absent.
func Load(v *viper.Viper, path string) (RuntimeConfig, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("plantos")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/plantos")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return RuntimeConfig{}, fmt.Errorf("read config: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper decodes v and replaces invalid values with defaults.
func FromViper(v *viper.Viper) (RuntimeConfig, error) {
	var cfg RuntimeConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return RuntimeConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg.normalized(), nil
}

func (c RuntimeConfig) normalized() RuntimeConfig {
	d := DefaultRuntimeConfig()
	out := c
	out.APIURL = strings.TrimRight(strings.TrimSpace(out.APIURL), "/")
	if u, err := url.Parse(out.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		out.APIURL = d.APIURL
	}
	if strings.TrimSpace(out.DBPath) == "" {
		out.DBPath = d.DBPath
	}
	if strings.TrimSpace(out.LogFile) == "" {
		out.LogFile = d.LogFile
	}
	switch strings.ToLower(strings.TrimSpace(out.LogLevel)) {
	case "debug", "info", "warn", "error":
		out.LogLevel = strings.ToLower(strings.TrimSpace(out.LogLevel))
	default:
		out.LogLevel = d.LogLevel
	}
	if out.HorizonDays <= 0 {
		out.HorizonDays = d.HorizonDays
	}
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = d.RequestTimeout
	}
	if out.SchedulerBuffer <= 0 {
		out.SchedulerBuffer = d.SchedulerBuffer
	}
	if out.DueWindowMinutes <= 0 {
		out.DueWindowMinutes = d.DueWindowMinutes
	}
	if strings.TrimSpace(out.DevAddr) == "" {
		out.DevAddr = d.DevAddr
	}
	return out
}
