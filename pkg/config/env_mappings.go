package config

import (
	"reflect"
	"slices"
	"strings"
	"sync"
)

// EnvPrefix namespaces the derived environment variables. Every config key can
// be set as EnvPrefix + SECTION_FIELD, e.g. QUIZBANK_DATABASE_MAX_OPEN_CONNS.
const EnvPrefix = "QUIZBANK_"

// EnvBinding ties one configuration key to the environment variables that set it.
type EnvBinding struct {
	ConfigPath string `json:"key"`
	// EnvVar is the short name from the field's env tag, empty when it has none.
	EnvVar    string `json:"env,omitempty"`
	Sensitive bool   `json:"sensitive,omitempty"`
}

// PrefixedVar returns the derived QUIZBANK_ variable for the binding.
func (b EnvBinding) PrefixedVar() string {
	return PrefixedEnvVar(b.ConfigPath)
}

type envRegistry struct {
	bindings []EnvBinding
	byPath   map[string]EnvBinding
	byEnv    map[string]string
}

var (
	registryOnce sync.Once
	registry     *envRegistry
)

func envBindings() *envRegistry {
	registryOnce.Do(func() {
		r := &envRegistry{byPath: make(map[string]EnvBinding), byEnv: make(map[string]string)}
		collectBindings(reflect.TypeOf(Config{}), "", r)
		// explicit tags win over derived names
		for _, b := range r.bindings {
			if _, taken := r.byEnv[b.PrefixedVar()]; !taken {
				r.byEnv[b.PrefixedVar()] = b.ConfigPath
			}
		}
		registry = r
	})
	return registry
}

var sensitiveStringType = reflect.TypeOf(SensitiveString(""))

func collectBindings(t reflect.Type, prefix string, r *envRegistry) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("koanf")
		if !field.IsExported() || key == "" || key == "-" {
			continue
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if field.Type.Kind() == reflect.Struct {
			collectBindings(field.Type, path, r)
			continue
		}
		b := EnvBinding{
			ConfigPath: path,
			Sensitive:  field.Type == sensitiveStringType || field.Tag.Get("sensitive") == "true",
		}
		if env := field.Tag.Get("env"); env != "" && env != "-" {
			b.EnvVar = env
			r.byEnv[env] = path
		}
		r.bindings = append(r.bindings, b)
		r.byPath[path] = b
	}
}

// EnvBindings lists every configuration key with its environment variables,
// in declaration order.
func EnvBindings() []EnvBinding {
	return slices.Clone(envBindings().bindings)
}

// PrefixedEnvVar derives the QUIZBANK_ variable name for a config key.
func PrefixedEnvVar(configPath string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(configPath, ".", "_"))
}

// ConfigPathForEnv resolves an environment variable to the config key it sets.
// Only known keys resolve; unrelated variables report false.
func ConfigPathForEnv(name string) (string, bool) {
	path, ok := envBindings().byEnv[name]
	return path, ok
}

// EnvVarsForConfigPath returns the variables that set configPath, the explicit
// one first.
func EnvVarsForConfigPath(configPath string) []string {
	b, ok := envBindings().byPath[configPath]
	if !ok {
		return nil
	}
	if b.EnvVar == "" {
		return []string{b.PrefixedVar()}
	}
	return []string{b.EnvVar, b.PrefixedVar()}
}

// IsSensitiveConfigPath reports whether the key holds a secret.
func IsSensitiveConfigPath(configPath string) bool {
	return envBindings().byPath[configPath].Sensitive
}
