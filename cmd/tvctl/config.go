package main

import (
	"fmt"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for the serve command.
type Config struct {
	TVHost     string `yaml:"tv_host"`
	TVPort     int    `yaml:"tv_port"`
	TVMAC      string `yaml:"tv_mac"`
	Broadcast  string `yaml:"broadcast"`
	DisableTLS bool   `yaml:"disable_tls"`

	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`

	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimit      float64  `yaml:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst"`

	GoogleClientID     string   `yaml:"google_client_id"`
	GoogleClientSecret string   `yaml:"google_client_secret"`
	GoogleRedirectURL  string   `yaml:"google_redirect_url"`
	AllowedEmails      []string `yaml:"allowed_emails"`

	DiscordToken string `yaml:"discord_token"`
	GuildID      string `yaml:"guild_id"`

	MDNS bool `yaml:"mdns"`

	StateDir string `yaml:"-"`
}

// loadConfigFile overlays settings from a YAML file. Flags set on the
// command line still win because they are applied after this.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func validateConfig(cfg Config) error {
	if cfg.TVHost == "" {
		return fmt.Errorf("TV host is required (--tv-host or TVCTL_TV_HOST)")
	}
	if cfg.TVPort <= 0 || cfg.TVPort > 65535 {
		return fmt.Errorf("invalid TV port: %d (must be 1-65535)", cfg.TVPort)
	}
	if cfg.TVMAC != "" {
		if _, err := net.ParseMAC(cfg.TVMAC); err != nil {
			return fmt.Errorf("invalid TV MAC address %q: %w", cfg.TVMAC, err)
		}
	}
	if cfg.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", cfg.Listen, err)
	}
	if cfg.GoogleClientID != "" && cfg.GoogleRedirectURL == "" {
		return fmt.Errorf("google sign-in requires a redirect URL (--google-redirect-url)")
	}
	return nil
}

// splitList parses a comma separated flag or env value.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
