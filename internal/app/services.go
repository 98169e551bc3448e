package app

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/carelog/carelog_backend/config"
	"github.com/carelog/carelog_backend/internal/service/care"
	"github.com/carelog/carelog_backend/internal/service/chat"
	"github.com/carelog/carelog_backend/internal/service/feedback"
	"github.com/carelog/carelog_backend/internal/store"
	"github.com/carelog/carelog_backend/pkg/authorize"
	"github.com/carelog/carelog_backend/pkg/sessiontoken"
	"github.com/carelog/carelog_backend/pkg/util/password"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideCareService,
		ProvideChatService,
		ProvideFeedbackService,
	),
)

func ProvideCareService(
	docs *store.DocStore,
	authz authorize.IAuthorization,
	tokens *sessiontoken.Manager,
	cfg *config.Config,
) care.Service {
	return care.New(docs, authz, tokens, care.Options{
		PasswordParams: &password.Params{
			Memory:      cfg.Password.MemoryKiB,
			Iterations:  cfg.Password.Iterations,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
		RequireAssignmentDefault: cfg.Authentication.RequireAssignmentDefault,
	}, slog.Default())
}

func ProvideChatService(docs *store.DocStore, authz authorize.IAuthorization) chat.Service {
	return chat.New(docs, authz, slog.Default())
}

func ProvideFeedbackService(docs *store.DocStore, authz authorize.IAuthorization, d feedback.Drafter) feedback.Service {
	return feedback.New(docs, authz, d, slog.Default())
}
