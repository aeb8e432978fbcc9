// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

// Package config loads the handful of host-persisted settings the engine
// reads once at init: the user blacklist, message templates, emote and OOC
// toggles, the debug-setting whitelist, and the ambient logging/metrics
// knobs. Everything else the engine knows is rebuilt from live in-world
// commands each session.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Error codes for configuration failures.
const (
	CodeConfigLoad    = "CONFIG_LOAD"
	CodeConfigInvalid = "CONFIG_INVALID"
)

// Emote controls emote crunching.
type Emote struct {
	// TruncateLimit caps emote length when no period ends it sooner.
	TruncateLimit int `koanf:"truncate_limit" validate:"gt=0"`
	// Untruncated disables emote truncation entirely.
	Untruncated bool `koanf:"untruncated"`
}

// Messages are the canned texts substituted for blocked IM traffic.
type Messages struct {
	RecvIM string `koanf:"recv_im" validate:"required"`
	SendIM string `koanf:"send_im" validate:"required"`
}

// Logging selects the slog output format.
type Logging struct {
	Format string `koanf:"format" validate:"omitempty,oneof=json text"`
}

// Metrics configures the observability endpoint.
type Metrics struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr" validate:"required_if=Enabled true"`
}

// Config is the full persisted configuration.
type Config struct {
	// Blacklist is the comma-joined set of administratively disabled
	// commands. BlacklistPreset, when set, appends a canned preset.
	Blacklist       string `koanf:"blacklist"`
	BlacklistPreset string `koanf:"blacklist_preset" validate:"omitempty,oneof=vanilla roleplay"`

	AllowOOC bool  `koanf:"allow_ooc"`
	Emote    Emote `koanf:"emote"`

	Messages Messages `koanf:"messages"`

	// DebugWhitelist lists the debug settings (glob patterns) that
	// setdebug_* force commands may touch.
	DebugWhitelist []string `koanf:"debug_whitelist"`

	// ReattachTimeout bounds how long a kicked locked attachment may keep
	// the command queue gated while waiting to be re-attached.
	ReattachTimeout time.Duration `koanf:"reattach_timeout" validate:"gt=0"`

	// GCInterval is the period between garbage-collector sweeps.
	GCInterval time.Duration `koanf:"gc_interval" validate:"gt=0"`

	AuditPath string `koanf:"audit_path"`

	Logging Logging `koanf:"logging"`
	Metrics Metrics `koanf:"metrics"`
}

// Default returns the configuration used when nothing is persisted yet.
func Default() Config {
	return Config{
		AllowOOC: true,
		Emote: Emote{
			TruncateLimit: 60,
		},
		Messages: Messages{
			RecvIM: "*** IM blocked by sender's viewer",
			SendIM: "*** IM blocked by your viewer",
		},
		DebugWhitelist:  []string{"avatarsex", "renderresolutiondivisor"},
		ReattachTimeout: 1 * time.Minute,
		GCInterval:      30 * time.Second,
		Logging:         Logging{Format: "json"},
		Metrics:         Metrics{Addr: "127.0.0.1:9321"},
	}
}

// Load reads the file at path (optional) over the defaults, overlays any
// flags, validates, and returns the result.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code(CodeConfigLoad).With("path", path).Wrap(err)
		}
	}
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.Code(CodeConfigLoad).Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code(CodeConfigLoad).Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration's structural constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return oops.Code(CodeConfigInvalid).Wrap(err)
	}
	return nil
}
