// Package config loads and hot-reloads this service's configuration.
// The original teacher repo's own config package wasn't retrieved
// alongside it, so this one is rebuilt from its declared dependencies
// (viper, fsnotify, yaml.v3) and the shapes internal/audit.go expects
// of a config.AuditConfig — the same spf13/viper + fsnotify pattern
// used throughout the Go ecosystem for "watch a YAML file, reload on
// write" configuration.
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AuditConfig configures the audit event sink (internal/audit).
type AuditConfig struct {
	Enabled            bool              `yaml:"enabled" mapstructure:"enabled"`
	MaxEvents          int               `yaml:"max_events" mapstructure:"max_events"`
	RedactMetadataKeys []string          `yaml:"redact_metadata_keys" mapstructure:"redact_metadata_keys"`
	Sink               AuditSinkConfig   `yaml:"sink" mapstructure:"sink"`
}

// AuditSinkConfig configures where audit events are written.
type AuditSinkConfig struct {
	Type          string            `yaml:"type" mapstructure:"type"` // "stdout", "file", "http"
	FilePath      string            `yaml:"file_path" mapstructure:"file_path"`
	Endpoint      string            `yaml:"endpoint" mapstructure:"endpoint"`
	Headers       map[string]string `yaml:"headers" mapstructure:"headers"`
	BatchSize     int               `yaml:"batch_size" mapstructure:"batch_size"`
	FlushInterval time.Duration     `yaml:"flush_interval" mapstructure:"flush_interval"`
	RetryCount    int               `yaml:"retry_count" mapstructure:"retry_count"`
	RetryBackoff  time.Duration     `yaml:"retry_backoff" mapstructure:"retry_backoff"`
}

// HardwareConfig toggles the hardware-acceleration introspection flags
// consulted by internal/hardware.Enabled.
type HardwareConfig struct {
	EnableAESNI    bool `yaml:"enable_aesni" mapstructure:"enable_aesni"`
	EnableARMv8AES bool `yaml:"enable_armv8_aes" mapstructure:"enable_armv8_aes"`
}

// RegistryConfig configures the transform descriptor allow-list
// (internal/registry).
type RegistryConfig struct {
	AllowedAlgorithms []string `yaml:"allowed_algorithms" mapstructure:"allowed_algorithms"`
}

// KeyManagerConfig selects and configures a key manager
// (internal/keymanager).
type KeyManagerConfig struct {
	Provider string       `yaml:"provider" mapstructure:"provider"` // "static" or "kmip"
	Static   StaticConfig `yaml:"static" mapstructure:"static"`
	KMIP     KMIPConfig   `yaml:"kmip" mapstructure:"kmip"`
}

// StaticConfig configures the Static key manager.
type StaticConfig struct {
	Keys map[string]string `yaml:"keys" mapstructure:"keys"` // keyID -> base64-encoded key bytes
}

// KMIPConfig configures the KMIP-backed key manager.
type KMIPConfig struct {
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint"`
	WrappingKeyID  string `yaml:"wrapping_key_id" mapstructure:"wrapping_key_id"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// ServerConfig configures the HTTP driver demo (internal/httpapi).
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr"`
}

// Config is the service's full, reloadable configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Hardware   HardwareConfig   `yaml:"hardware" mapstructure:"hardware"`
	Registry   RegistryConfig   `yaml:"registry" mapstructure:"registry"`
	KeyManager KeyManagerConfig `yaml:"key_manager" mapstructure:"key_manager"`
	Audit      AuditConfig      `yaml:"audit" mapstructure:"audit"`
}

func defaults() Config {
	return Config{
		Server:   ServerConfig{ListenAddr: ":8443"},
		Hardware: HardwareConfig{EnableAESNI: true, EnableARMv8AES: true},
		Audit: AuditConfig{
			Enabled:   true,
			MaxEvents: 1000,
			Sink:      AuditSinkConfig{Type: "stdout"},
		},
	}
}

// Loader loads Config from a YAML file via viper and watches it for
// changes, notifying subscribers on every successful reload.
type Loader struct {
	v *viper.Viper

	mu       sync.RWMutex
	current  Config
	onChange []func(Config)
}

// NewLoader reads path once to populate the initial config and arms a
// file watcher to reload on subsequent writes.
func NewLoader(path string) (*Loader, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	l := &Loader{v: v, current: defaults()}

	if err := l.reload(); err != nil {
		return nil, fmt.Errorf("config: initial load: %w", err)
	}

	v.OnConfigChange(func(fsnotify.Event) {
		_ = l.reload()
	})
	v.WatchConfig()

	return l, nil
}

func (l *Loader) reload() error {
	if err := l.v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read: %w", err)
	}
	cfg := defaults()
	if err := l.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}

	l.mu.Lock()
	l.current = cfg
	subscribers := append([]func(Config){}, l.onChange...)
	l.mu.Unlock()

	for _, fn := range subscribers {
		fn(cfg)
	}
	return nil
}

// Current returns the most recently loaded configuration snapshot.
func (l *Loader) Current() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers fn to be called with every successfully reloaded
// configuration. fn is called synchronously from the fsnotify callback
// goroutine; it should not block.
func (l *Loader) OnChange(fn func(Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}
