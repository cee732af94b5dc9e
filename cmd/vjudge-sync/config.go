package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rw-r-r-0644/vjudge-sync/logging"
	"github.com/rw-r-r-0644/vjudge-sync/vjudge"
)

const (
	// defaultConfigFile is read when --config is not given and the file exists.
	defaultConfigFile = "vjudge-sync.yaml"

	// dotEnvFile holds credentials as KEY=value lines. It is optional and the
	// process environment takes precedence over it.
	dotEnvFile = ".env"
)

type Config struct {
	DataDir string   `koanf:"data_dir" validate:"required"`
	Judges  []string `koanf:"judges" validate:"required,min=1,dive,required"`

	// Settings holds per-judge settings keyed by judge name. The "type" key
	// selects the judge implementation and defaults to the name itself.
	Settings map[string]map[string]string `koanf:"settings"`

	VJudge VJudgeConfig   `koanf:"vjudge" validate:"-"`
	Log    logging.Config `koanf:"log"`
}

type VJudgeConfig struct {
	Cookie           string        `koanf:"cookie" validate:"required"`
	BaseURL          string        `koanf:"base_url" validate:"required,url"`
	UserAgent        string        `koanf:"user_agent"`
	Proxy            string        `koanf:"proxy" validate:"omitempty,url"`
	Timeout          time.Duration `koanf:"timeout" validate:"gt=0"`
	Rate             float64       `koanf:"rate" validate:"gte=0"`
	BreakerThreshold uint32        `koanf:"breaker_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
}

func defaultConfig() *Config {
	return &Config{
		DataDir: ".",
		Judges:  []string{"atcoder", "codeforces", "luogu"},
		VJudge: VJudgeConfig{
			BaseURL:          vjudge.DefaultBaseURL,
			UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) vjudge-sync",
			Timeout:          30 * time.Second,
			Rate:             1,
			BreakerThreshold: 5,
			BreakerTimeout:   time.Minute,
		},
		Log: logging.Config{
			Level:     "info",
			Format:    "console",
			Timestamp: true,
		},
	}
}

// envMappings maps environment and .env variables (lower-cased) to config
// keys. VJUDGE_COOKIE, ATC_USER and CF_USER are the names earlier releases
// read from .env.
var envMappings = map[string]string{
	"vjudge_cookie":        "vjudge.cookie",
	"atc_user":             "settings.atcoder.user",
	"cf_user":              "settings.codeforces.handle",
	"vjudge_base_url":      "vjudge.base_url",
	"vjudge_proxy":         "vjudge.proxy",
	"vjudge_rate":          "vjudge.rate",
	"vjudge_timeout":       "vjudge.timeout",
	"vjudge_sync_data_dir": "data_dir",
	"vjudge_sync_judges":   "judges",
	"log_level":            "log.level",
	"log_format":           "log.format",
}

// envTransformFunc maps a variable to its config key. Unknown and empty
// variables are skipped.
func envTransformFunc(key, value string) (string, any) {
	mapped, ok := envMappings[strings.ToLower(key)]
	if !ok || strings.TrimSpace(value) == "" {
		return "", nil
	}
	if mapped == "judges" {
		return mapped, splitList(value)
	}
	return mapped, value
}

// loadConfig layers defaults, the YAML file, .env, the environment and
// finally overrides (command-line flags). An explicit path must exist.
func loadConfig(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := loadDotEnv(k, dotEnvFile); err != nil {
		return nil, err
	}

	if err := k.Load(env.ProviderWithValue("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	for key, v := range overrides {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("apply %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadDotEnv applies the variables of the .env file at path through the same
// mapping as the process environment. A missing file is not an error.
func loadDotEnv(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	data, err := file.Provider(path).ReadBytes()
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	vars, err := dotenv.Parser().Unmarshal(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for name, v := range vars {
		key, value := envTransformFunc(name, fmt.Sprint(v))
		if key == "" {
			continue
		}
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("apply %s from %s: %w", name, path, err)
		}
	}
	return nil
}

var validate = validator.New()

// Validate checks everything except the vjudge section, which only the sync
// command needs.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Judges))
	for _, name := range c.Judges {
		if seen[name] {
			return fmt.Errorf("judge %q listed twice", name)
		}
		seen[name] = true
	}
	return nil
}

// ValidateVJudge checks the settings needed to submit.
func (c *Config) ValidateVJudge() error {
	if err := validate.Struct(c.VJudge); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "Cookie" {
					return errors.New("vjudge.cookie is required (set VJUDGE_COOKIE)")
				}
			}
		}
		return err
	}
	return nil
}

// JudgeType returns the implementation ID of judge name.
func (c *Config) JudgeType(name string) string {
	if t := c.Settings[name]["type"]; t != "" {
		return t
	}
	return name
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
