package config

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

// Service loads layered configuration and validates the result. It carries
// no mutable state of its own beyond the last-loaded source attribution,
// which lets callers answer "where did this field's value come from".
type Service struct {
	validate *validator.Validate
	sources  map[string]SourceType
	last     *Config
}

// NewService constructs a Service ready to Load configuration layers.
func NewService() *Service {
	return &Service{
		validate: validator.New(),
		sources:  map[string]SourceType{},
	}
}

// lastLoaded returns the Config produced by the most recent successful Load.
func (s *Service) lastLoaded() *Config {
	return s.last
}

// Load merges every provider's layer in order (later providers win on a
// per-field basis), decodes the result into a Config, and validates it.
func (s *Service) Load(_ context.Context, providers ...Provider) (*Config, error) {
	k := koanf.New(".")
	for _, p := range providers {
		if envP, ok := p.(*envProvider); ok {
			envK := koanf.New(".")
			if err := envK.Load(envP.koanfProvider(), nil); err != nil {
				return nil, fmt.Errorf("load env config layer: %w", err)
			}
			if err := k.Merge(envK); err != nil {
				return nil, fmt.Errorf("merge env config layer: %w", err)
			}
			s.recordSources(envK.Raw(), "", p.Type())
			continue
		}
		layer, err := p.Load()
		if err != nil {
			return nil, fmt.Errorf("load %s config layer: %w", p.Type(), err)
		}
		if err := k.Load(confmap.Provider(layer, "."), nil); err != nil {
			return nil, fmt.Errorf("merge %s config layer: %w", p.Type(), err)
		}
		s.recordSources(layer, "", p.Type())
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(cfg); err != nil {
		return nil, err
	}
	s.last = cfg
	return cfg, nil
}

// Validate runs struct-tag validation over a Config.
func (s *Service) Validate(cfg *Config) error {
	if err := s.validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetSource reports which provider last set the given dotted key, or
// SourceDefault if no layer overrode it.
func (s *Service) GetSource(key string) SourceType {
	if src, ok := s.sources[key]; ok {
		return src
	}
	return SourceDefault
}

func (s *Service) recordSources(layer map[string]any, prefix string, src SourceType) {
	for k, v := range layer {
		full := k
		if prefix != "" {
			full = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			s.recordSources(nested, full, src)
			continue
		}
		s.sources[full] = src
	}
}
