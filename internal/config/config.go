// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults for optional settings.
const (
	DefaultPort         = 8080
	DefaultPlanCapacity = 6
	DefaultSMTPPort     = "587"
	DefaultRateLimit    = 10
)

// Config holds the server configuration.
type Config struct {
	Port         int
	DBPath       string // empty means db.DefaultPath()
	DevMode      bool
	PlanCapacity int
	Watch        bool          // refresh the live feed on database changes
	Debounce     time.Duration // watcher debounce; zero means the watcher default
	RateLimit    int           // failed API key attempts per minute per client

	AdminEmail string // digest recipient
	SMTP       SMTP
}

// SMTP holds mail server settings for the daily digest.
type SMTP struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// IsConfigured reports whether enough is set to send mail.
func (s SMTP) IsConfigured() bool {
	return s.Host != "" && s.From != ""
}

// FromEnv reads HUB_* variables, applying defaults for unset ones. Every
// invalid value is reported in the returned error.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:         DefaultPort,
		DBPath:       env("HUB_DB"),
		DevMode:      env("HUB_DEV_MODE") == "true",
		PlanCapacity: DefaultPlanCapacity,
		Watch:        true,
		RateLimit:    DefaultRateLimit,
		AdminEmail:   env("HUB_ADMIN_EMAIL"),
		SMTP: SMTP{
			Host: env("HUB_SMTP_HOST"),
			Port: DefaultSMTPPort,
			User: env("HUB_SMTP_USER"),
			Pass: env("HUB_SMTP_PASS"),
			From: env("HUB_SMTP_FROM"),
		},
	}

	var invalid []string

	if v := env("HUB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "HUB_PORT")
		} else {
			cfg.Port = port
		}
	}

	if v := env("HUB_PLAN_CAPACITY"); v != "" {
		capacity, err := strconv.Atoi(v)
		if err != nil || capacity <= 0 {
			invalid = append(invalid, "HUB_PLAN_CAPACITY")
		} else {
			cfg.PlanCapacity = capacity
		}
	}

	if v := env("HUB_WATCH"); v != "" {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			invalid = append(invalid, "HUB_WATCH")
		} else {
			cfg.Watch = watch
		}
	}

	if v := env("HUB_WATCH_DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			invalid = append(invalid, "HUB_WATCH_DEBOUNCE")
		} else {
			cfg.Debounce = d
		}
	}

	if v := env("HUB_RATE_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			invalid = append(invalid, "HUB_RATE_LIMIT")
		} else {
			cfg.RateLimit = limit
		}
	}

	if v := env("HUB_SMTP_PORT"); v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			invalid = append(invalid, "HUB_SMTP_PORT")
		} else {
			cfg.SMTP.Port = v
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
