package config

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// loader layers configuration sources on one koanf instance and remembers
// which layer last set each key.
type loader struct {
	koanf     *koanf.Koanf
	validator *validator.Validate

	mu       sync.RWMutex
	metadata Metadata
}

// NewService creates a configuration service with the quizbank validators registered.
func NewService() Service {
	v := validator.New()
	if err := RegisterCustomValidators(v); err != nil {
		panic(fmt.Sprintf("config: register validators: %v", err))
	}
	return &loader{
		koanf:     koanf.New("."),
		validator: v,
		metadata:  Metadata{Sources: make(map[string]SourceType)},
	}
}

// Load builds the configuration with precedence defaults < YAML < environment < CLI.
// Sources are grouped by type, so the order they are passed in does not matter.
func (l *loader) Load(_ context.Context, sources ...Source) (*Config, error) {
	l.reset()
	err := l.layer(SourceDefault, func() error {
		if err := l.koanf.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
			return fmt.Errorf("failed to load defaults: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, kind := range []SourceType{SourceDefault, SourceYAML} {
		if err := l.loadSources(sources, kind); err != nil {
			return nil, err
		}
	}
	if err := l.layer(SourceEnv, l.loadEnvironment); err != nil {
		return nil, err
	}
	if err := l.loadSources(sources, SourceCLI); err != nil {
		return nil, err
	}
	return l.decode()
}

func (l *loader) reset() {
	l.koanf.Cut("")
	l.mu.Lock()
	l.metadata = Metadata{Sources: make(map[string]SourceType), LoadedAt: time.Now()}
	l.mu.Unlock()
}

// layer runs apply and attributes every key it added or changed to source.
func (l *loader) layer(source SourceType, apply func() error) error {
	before := l.koanf.All()
	if err := apply(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, value := range l.koanf.All() {
		if prev, ok := before[key]; !ok || !reflect.DeepEqual(prev, value) {
			l.metadata.Sources[key] = source
		}
	}
	return nil
}

// loadEnvironment applies the variables named by env tags and their
// QUIZBANK_ counterparts. Anything else in the environment is ignored.
func (l *loader) loadEnvironment() error {
	provider := env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			path, ok := ConfigPathForEnv(key)
			if !ok {
				return "", nil
			}
			return path, value
		},
	})
	if err := l.koanf.Load(provider, nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

func (l *loader) loadSources(sources []Source, kind SourceType) error {
	for _, source := range sources {
		if source == nil || source.Type() != kind {
			continue
		}
		data, err := source.Load()
		if err != nil {
			return fmt.Errorf("failed to load from source %s: %w", source.Type(), err)
		}
		err = l.layer(kind, func() error {
			// keys are set one by one so a partial section keeps the values below it
			for key, value := range flattenMap("", data) {
				if err := l.koanf.Set(key, value); err != nil {
					return fmt.Errorf("failed to set key %s from source %s: %w", key, kind, err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// flattenMap turns nested maps into dot separated keys.
func flattenMap(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flattenMap(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}

func sensitiveStringDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != sensitiveStringType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return SensitiveString(v), nil
	case []byte:
		return SensitiveString(v), nil
	}
	return data, nil
}

func (l *loader) decode() (*Config, error) {
	var cfg Config
	err := l.koanf.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				sensitiveStringDecodeHook,
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := l.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate applies the struct tag rules and then the cross-field database rules.
func (l *loader) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if err := l.validator.Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := validateDatabase(&cfg.Database); err != nil {
		return fmt.Errorf("custom validation failed: %w", err)
	}
	return nil
}

func validateDatabase(db *DatabaseConfig) error {
	switch db.Driver {
	case DriverPostgres:
		if db.ConnString == "" && (db.Host == "" || db.DBName == "") {
			return fmt.Errorf("database configuration incomplete: either conn_string or host and name required")
		}
	case DriverSQLite:
		if strings.TrimSpace(db.Path) == "" {
			return fmt.Errorf("database path is required for the sqlite driver")
		}
	}
	if db.MaxOpenConns > 0 && db.MaxIdleConns > db.MaxOpenConns {
		return fmt.Errorf("database max_idle_conns must not exceed max_open_conns")
	}
	return nil
}

// GetSource returns the layer that last set key, SourceDefault when unknown.
func (l *loader) GetSource(key string) SourceType {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if source, ok := l.metadata.Sources[key]; ok {
		return source
	}
	return SourceDefault
}
