package config

import (
	"context"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// SourceType names where a configuration value came from, used both for
// precedence decisions and for diagnostics.
type SourceType string

const (
	SourceDefault SourceType = "default"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceCLI     SourceType = "cli"
)

// Provider supplies a layer of configuration as a nested map, ready to be
// merged on top of whatever has already been loaded.
type Provider interface {
	Load() (map[string]any, error)
	Type() SourceType
	// Watch invokes onChange whenever this source's underlying data changes.
	// Providers with no meaningful notion of change (env, CLI flags) return
	// nil immediately.
	Watch(ctx context.Context, onChange func()) error
}

// defaultProvider supplies Default() as the base layer.
type defaultProvider struct{}

// NewDefaultProvider returns the built-in default configuration layer.
func NewDefaultProvider() Provider { return &defaultProvider{} }

func (p *defaultProvider) Type() SourceType { return SourceDefault }

func (p *defaultProvider) Watch(_ context.Context, _ func()) error { return nil }

func (p *defaultProvider) Load() (map[string]any, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(*Default(), "koanf"), nil); err != nil {
		return nil, err
	}
	return k.Raw(), nil
}

// envProvider loads COMPOSER_-prefixed environment variables via koanf's
// env provider. Actual parsing into the nested map happens in the loader,
// which is why Load here returns an empty map — koanf owns the env merge.
type envProvider struct {
	prefix string
}

// NewEnvProvider returns a provider reading environment variables prefixed
// with "COMPOSER_" (e.g. COMPOSER_SERVER_PORT). The first underscore after
// the prefix separates the section from the field, so
// COMPOSER_DISPATCH_BASE_BACKOFF sets dispatch.base_backoff.
func NewEnvProvider() Provider { return &envProvider{prefix: "COMPOSER_"} }

func (p *envProvider) Type() SourceType { return SourceEnv }

func (p *envProvider) Watch(_ context.Context, _ func()) error { return nil }

func (p *envProvider) Load() (map[string]any, error) {
	return map[string]any{}, nil
}

func (p *envProvider) koanfProvider() *env.Env {
	return env.Provider(".", env.Opt{
		Prefix: p.prefix,
		TransformFunc: func(k, v string) (string, any) {
			key := strings.ToLower(strings.TrimPrefix(k, p.prefix))
			key = strings.Replace(key, "_", ".", 1)
			return key, v
		},
	})
}

// yamlProvider loads a configuration layer from a YAML file on disk.
type yamlProvider struct {
	path string
}

// NewYAMLProvider returns a provider reading the given YAML file. A missing
// file is treated as an empty layer, never an error, consistent with
// the composer being runnable without any config file present.
func NewYAMLProvider(path string) Provider { return &yamlProvider{path: path} }

func (p *yamlProvider) Type() SourceType { return SourceYAML }

func (p *yamlProvider) Load() (map[string]any, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func (p *yamlProvider) Watch(ctx context.Context, onChange func()) error {
	return watchFile(ctx, p.path, onChange)
}

// cliProvider wraps flag values already parsed by cobra/pflag.
type cliProvider struct {
	flags map[string]any
}

// NewCLIProvider wraps a flat map of CLI flag values (flag name -> value).
func NewCLIProvider(flags map[string]any) Provider {
	return &cliProvider{flags: flags}
}

func (p *cliProvider) Type() SourceType { return SourceCLI }

func (p *cliProvider) Watch(_ context.Context, _ func()) error { return nil }

func (p *cliProvider) Load() (map[string]any, error) {
	out := map[string]any{}
	for k, v := range p.flags {
		out[k] = v
	}
	return cliFlagsToNested(out), nil
}
