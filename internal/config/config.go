// Package config loads the service configuration from a YAML file with
// environment-variable overrides, and builds the runtime plan objects
// (registries, bindings, route tables) from it.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Arena    ArenaConfig    `koanf:"arena"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Storage  StorageConfig  `koanf:"storage"`
	Modules  []ModuleConfig `koanf:"modules"`
	Routes   []RouteConfig  `koanf:"routes"`
}

type ServerConfig struct {
	Port int    `koanf:"port"`
	Bind string `koanf:"bind"`
	// RequestTimeout is a duration string like "30s". Zero disables the
	// per-request deadline.
	RequestTimeout string `koanf:"request_timeout"`
}

type ArenaConfig struct {
	// ChunkSize is the initial chunk size in bytes.
	ChunkSize int `koanf:"chunk_size"`
	// Policy is "chunked" (grow on demand) or "fixed" (hard cap).
	Policy string `koanf:"policy"`
	// ZeroOnReset scrubs arena memory between requests. Debug aid.
	ZeroOnReset bool `koanf:"zero_on_reset"`
}

type PipelineConfig struct {
	// Phases overrides the default phase order. Rarely needed.
	Phases []string `koanf:"phases"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, none
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// ModuleConfig instantiates one named module from a registered factory.
type ModuleConfig struct {
	// Name is the instance name bindings refer to.
	Name string `koanf:"name"`
	// Factory is the registered factory; defaults to Name.
	Factory string `koanf:"factory"`
	// Params are passed to the factory verbatim.
	Params map[string]any `koanf:"params"`
}

// BindingConfig attaches a module instance to a phase within a route.
type BindingConfig struct {
	Phase  string `koanf:"phase"`
	Module string `koanf:"module"`
	// Policy is abort, skip_module, or skip_phase. Empty means abort.
	Policy string `koanf:"policy"`
	// Headers gates the binding on header regexes, keyed by header name.
	Headers map[string]string `koanf:"headers"`
	// Query gates the binding on a query-string regex.
	Query string `koanf:"query"`
}

type RouteConfig struct {
	Name     string          `koanf:"name"`
	Methods  []string        `koanf:"methods"`
	Path     string          `koanf:"path"`
	Protocol string          `koanf:"protocol"`
	Upgrade  bool            `koanf:"upgrade"`
	Bindings []BindingConfig `koanf:"bindings"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (optional; missing file falls back to env and defaults)
// and overlays OXWEB_ environment variables, where double underscores
// separate nesting levels (OXWEB_SERVER__PORT=9000).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("OXWEB_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "OXWEB_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("server.bind") {
		k.Set("server.bind", "0.0.0.0")
	}
	if !k.Exists("arena.chunk_size") {
		k.Set("arena.chunk_size", 64*1024)
	}
	if !k.Exists("arena.policy") {
		k.Set("arena.policy", "chunked")
	}
	if !k.Exists("storage.type") {
		k.Set("storage.type", "none")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Storage.SQLite.Path = substituteEnvVars(cfg.Storage.SQLite.Path)
	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
