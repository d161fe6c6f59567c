// Package svcctx provides service context for dependency injection via context.
// Commands build the services once and components extract what they need.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/unfoldingWord/door43-job-handler/internal/completion"
	"github.com/unfoldingWord/door43-job-handler/internal/config"
	"github.com/unfoldingWord/door43-job-handler/internal/deploy"
	"github.com/unfoldingWord/door43-job-handler/internal/home"
	"github.com/unfoldingWord/door43-job-handler/internal/storage"
)

// Services holds all core services that flow through context.
type Services struct {
	Config     *config.Manager
	Home       *home.Dir
	Logger     *slog.Logger
	CDN        storage.Store
	Site       storage.Store
	Completion *completion.Protocol
	Deployer   *deploy.Deployer
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context, falling back to the
// default logger.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// CDNFrom extracts the converted-output store from context.
func CDNFrom(ctx context.Context) storage.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.CDN
	}
	return nil
}

// SiteFrom extracts the website store from context.
func SiteFrom(ctx context.Context) storage.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Site
	}
	return nil
}

// CompletionFrom extracts the completion protocol from context.
func CompletionFrom(ctx context.Context) *completion.Protocol {
	if s := ServicesFrom(ctx); s != nil {
		return s.Completion
	}
	return nil
}

// DeployerFrom extracts the deployer from context.
func DeployerFrom(ctx context.Context) *deploy.Deployer {
	if s := ServicesFrom(ctx); s != nil {
		return s.Deployer
	}
	return nil
}
