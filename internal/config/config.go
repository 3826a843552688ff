// Package config loads the settings shared by the resumekit binaries. Values
// come from built-in defaults, an optional YAML file and RESUMEKIT_ prefixed
// environment variables, in increasing order of precedence. Flags applied by
// the binaries override all three.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override: server.addr is read from
// RESUMEKIT_SERVER_ADDR.
const EnvPrefix = "RESUMEKIT"

// ErrInvalid marks configuration values that failed validation.
var ErrInvalid = errors.New("config: invalid value")

// Config is the decoded configuration tree.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Templates Templates `mapstructure:"templates"`
	Theme     Theme     `mapstructure:"theme"`
	Log       Log       `mapstructure:"log"`
	Persist   Persist   `mapstructure:"persist"`
	Data      Data      `mapstructure:"data"`
}

type Server struct {
	Addr          string        `mapstructure:"addr"`
	BasePath      string        `mapstructure:"base_path"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
	ReadOnly      bool          `mapstructure:"read_only"`
}

type Templates struct {
	// Default is the component name used when a resume has no selection.
	Default string `mapstructure:"default"`
	// Dir overrides the embedded HTML templates with a local directory.
	Dir    string `mapstructure:"dir"`
	Locale string `mapstructure:"locale"`
}

type Theme struct {
	Name     string `mapstructure:"name"`
	Variant  string `mapstructure:"variant"`
	Manifest string `mapstructure:"manifest"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Persist points the binaries at a remote storage API. An empty endpoint
// keeps everything in memory.
type Persist struct {
	Endpoint   string        `mapstructure:"endpoint"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SaveMethod string        `mapstructure:"save_method"`
}

// Data seeds the in-memory store.
type Data struct {
	Seed string `mapstructure:"seed"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Server: Server{
			Addr:          ":8484",
			BasePath:      "/",
			ShutdownGrace: 5 * time.Second,
		},
		Templates: Templates{
			Default: "ModernResume",
			Locale:  "en",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Persist: Persist{
			Timeout:    10 * time.Second,
			SaveMethod: http.MethodPost,
		},
	}
}

// Load reads path (if not empty) over the defaults and applies environment
// overrides. A missing file named explicitly is an error.
func Load(path string) (Config, error) {
	vp := newViper()

	if path = strings.TrimSpace(path); path != "" {
		vp.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			vp.SetConfigType("yaml")
		}
		if err := vp.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := vp.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late, at first use.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalid)
	}
	if c.Server.ShutdownGrace < 0 {
		return fmt.Errorf("%w: server.shutdown_grace must not be negative", ErrInvalid)
	}
	if c.Persist.Timeout < 0 {
		return fmt.Errorf("%w: persist.timeout must not be negative", ErrInvalid)
	}
	switch c.Persist.SaveMethod {
	case http.MethodPost, http.MethodPut:
	default:
		return fmt.Errorf("%w: persist.save_method %q", ErrInvalid, c.Persist.SaveMethod)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format)
	}
	if c.Persist.Endpoint != "" && !strings.HasPrefix(c.Persist.Endpoint, "http://") && !strings.HasPrefix(c.Persist.Endpoint, "https://") {
		return fmt.Errorf("%w: persist.endpoint must be an http(s) URL", ErrInvalid)
	}
	return nil
}

func (c *Config) normalize() {
	c.Server.BasePath = "/" + strings.Trim(strings.TrimSpace(c.Server.BasePath), "/")
	c.Templates.Default = strings.TrimSpace(c.Templates.Default)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Persist.Endpoint = strings.TrimRight(strings.TrimSpace(c.Persist.Endpoint), "/")
	c.Persist.SaveMethod = strings.ToUpper(strings.TrimSpace(c.Persist.SaveMethod))
}

func newViper() *viper.Viper {
	vp := viper.New()
	setDefaults(vp, Defaults())
	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()
	return vp
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(vp *viper.Viper, d Config) {
	vp.SetDefault("server.addr", d.Server.Addr)
	vp.SetDefault("server.base_path", d.Server.BasePath)
	vp.SetDefault("server.shutdown_grace", d.Server.ShutdownGrace)
	vp.SetDefault("server.read_only", d.Server.ReadOnly)
	vp.SetDefault("templates.default", d.Templates.Default)
	vp.SetDefault("templates.dir", d.Templates.Dir)
	vp.SetDefault("templates.locale", d.Templates.Locale)
	vp.SetDefault("theme.name", d.Theme.Name)
	vp.SetDefault("theme.variant", d.Theme.Variant)
	vp.SetDefault("theme.manifest", d.Theme.Manifest)
	vp.SetDefault("log.level", d.Log.Level)
	vp.SetDefault("log.format", d.Log.Format)
	vp.SetDefault("persist.endpoint", d.Persist.Endpoint)
	vp.SetDefault("persist.timeout", d.Persist.Timeout)
	vp.SetDefault("persist.save_method", d.Persist.SaveMethod)
	vp.SetDefault("data.seed", d.Data.Seed)
}
