package config

import "context"

type ctxKey string

const (
	configCtxKey  ctxKey = "config"
	managerCtxKey ctxKey = "config-manager"
)

// ContextWithConfig returns a copy of ctx carrying cfg, retrievable with
// FromContext.
func ContextWithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configCtxKey, cfg)
}

// FromContext extracts the Config stored in ctx, or nil if none is present.
func FromContext(ctx context.Context) *Config {
	if ctx == nil {
		return nil
	}
	cfg, _ := ctx.Value(configCtxKey).(*Config)
	return cfg
}

// ContextWithManager returns a copy of ctx carrying mgr.
func ContextWithManager(ctx context.Context, mgr *Manager) context.Context {
	return context.WithValue(ctx, managerCtxKey, mgr)
}

// ManagerFromContext extracts the Manager stored in ctx, or nil if none is
// present.
func ManagerFromContext(ctx context.Context) *Manager {
	if ctx == nil {
		return nil
	}
	mgr, _ := ctx.Value(managerCtxKey).(*Manager)
	return mgr
}
