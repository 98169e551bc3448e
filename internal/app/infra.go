package app

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/carelog/carelog_backend/config"
	"github.com/carelog/carelog_backend/internal/service/feedback"
	"github.com/carelog/carelog_backend/internal/store"
	"github.com/carelog/carelog_backend/pkg/authorize"
	"github.com/carelog/carelog_backend/pkg/cipher"
	"github.com/carelog/carelog_backend/pkg/drafter"
	"github.com/carelog/carelog_backend/pkg/observability"
	"github.com/carelog/carelog_backend/pkg/sessiontoken"
)

// InfraModule provides all infrastructure dependencies.
var InfraModule = fx.Module("infra",
	fx.Provide(ProvideCipherStore),
	fx.Provide(ProvideDocStore),
	fx.Provide(ProvideAuthorization),
	fx.Provide(ProvideTokenManager),
	fx.Provide(ProvideDrafter),
	fx.Provide(ProvideOTel),
)

func ProvideCipherStore(cfg *config.Config) (*store.CipherStore, error) {
	key, err := cipher.LoadOrCreateKey(cfg.Store.KeyPath)
	if err != nil {
		return nil, err
	}
	return store.NewCipherStore(cfg.Store.Path, key)
}

// ProvideDocStore opens the document store. Construction loads the record
// file once, so a wrong key or corrupted blob fails startup instead of the
// first request.
func ProvideDocStore(cs *store.CipherStore, cfg *config.Config) (*store.DocStore, error) {
	return store.NewDocStore(cs, cfg.Store.LockTimeout())
}

func ProvideAuthorization() (authorize.IAuthorization, error) {
	base, err := authorize.NewAuthorization()
	if err != nil {
		return nil, err
	}
	return authorize.NewAuditedAuthorization(base, slog.Default()), nil
}

func ProvideTokenManager(cfg *config.Config) (*sessiontoken.Manager, error) {
	return sessiontoken.New(sessiontoken.Config{
		KeyHex:    cfg.Authentication.Token.LocalKeyHex,
		Issuer:    cfg.Authentication.Token.Issuer,
		Audience:  cfg.Authentication.Token.Audience,
		AccessTTL: cfg.Authentication.Token.AccessTTL(),
	})
}

func ProvideDrafter(cfg *config.Config) (feedback.Drafter, error) {
	if cfg.Drafter.Provider == "anthropic" {
		return drafter.NewAnthropic(drafter.AnthropicConfig{
			APIKey:    cfg.Drafter.APIKey,
			Model:     cfg.Drafter.Model,
			MaxTokens: cfg.Drafter.MaxTokens,
		})
	}
	return drafter.NewTemplate(), nil
}

func ProvideOTel(lc fx.Lifecycle, cfg *config.Config) (*observability.Provider, error) {
	if !cfg.Observability.Enabled {
		return nil, nil
	}
	provider, err := observability.InitTelemetry(context.Background(), observability.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Observability.Tracing.OTLPEndpoint,
		OTLPInsecure:   cfg.Observability.Tracing.OTLPInsecure,
		SamplingRate:   cfg.Observability.Tracing.SamplingRate,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("observability initialized", "otlp_endpoint", cfg.Observability.Tracing.OTLPEndpoint)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("shutting down observability providers")
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}
