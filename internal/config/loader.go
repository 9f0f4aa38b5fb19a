package config

import (
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Load reads the configuration from file and environment variables.
// File lookup order: /etc/posture/config.yaml, then ./config.yaml; every key
// can be overridden through POSTURE_-prefixed environment variables
// (e.g. POSTURE_DATABASE_PASSWORD). The viper instance is returned so the
// caller can wire hot reload through Runtime.Watch.
func Load() (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/posture/")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, err
		}
	}

	v.SetEnvPrefix("POSTURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return &cfg, v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30)

	v.SetDefault("graph.base_url", "https://graph.microsoft.com")
	v.SetDefault("graph.login_url", "https://login.microsoftonline.com")
	v.SetDefault("graph.scope", "https://graph.microsoft.com/.default")
	v.SetDefault("graph.timeout", 30)

	v.SetDefault("vault.mount_path", "secret")

	v.SetDefault("cache.ttl", 60)
	v.SetDefault("cache.bypass", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.service_name", "posture")
}

// Runtime holds the configuration knobs that may change while the process is
// running. Reads are lock-free; the watcher swaps values atomically.
type Runtime struct {
	cacheBypass atomic.Bool
	logLevel    atomic.Value // string
}

// NewRuntime seeds the runtime view from the loaded configuration.
func NewRuntime(cfg *Config) *Runtime {
	r := &Runtime{}
	r.cacheBypass.Store(cfg.Cache.Bypass)
	r.logLevel.Store(cfg.Log.Level)
	return r
}

// CacheBypass reports whether the response cache is bypassed.
func (r *Runtime) CacheBypass() bool { return r.cacheBypass.Load() }

// LogLevel returns the current log level name.
func (r *Runtime) LogLevel() string { return r.logLevel.Load().(string) }

// Watch re-reads the hot-reloadable keys whenever the config file changes.
// onChange is invoked after the runtime view has been updated; it may be nil.
func (r *Runtime) Watch(v *viper.Viper, onChange func()) {
	v.OnConfigChange(func(in fsnotify.Event) {
		r.cacheBypass.Store(v.GetBool("cache.bypass"))
		r.logLevel.Store(v.GetString("log.level"))
		if onChange != nil {
			onChange()
		}
	})
	v.WatchConfig()
}
