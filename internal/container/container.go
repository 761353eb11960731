// Package container provides a dependency injection container for the application.
package container

import (
	"errors"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/dig"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/internal/app"
	"github.com/goliatone/go-settings/internal/audit"
	"github.com/goliatone/go-settings/internal/config"
	"github.com/goliatone/go-settings/internal/definitions"
	"github.com/goliatone/go-settings/internal/handler"
	"github.com/goliatone/go-settings/internal/i18n"
	"github.com/goliatone/go-settings/internal/logger"
	"github.com/goliatone/go-settings/internal/nonce"
	"github.com/goliatone/go-settings/internal/router"
	"github.com/goliatone/go-settings/internal/store"
	"github.com/goliatone/go-settings/pkg/render"
	"github.com/goliatone/go-settings/schema/openapi"
)

// BuildContainer creates a new dependency injection container and provides all the application's services.
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Infrastructure Services
	if err := container.Provide(config.NewManager); err != nil {
		return nil, err
	}
	if err := container.Provide(store.NewBackend); err != nil {
		return nil, err
	}
	if err := container.Provide(NewI18n); err != nil {
		return nil, err
	}
	if err := container.Provide(NewNonceManager); err != nil {
		return nil, err
	}

	// Settings Services
	if err := container.Provide(NewCatalog); err != nil {
		return nil, err
	}
	if err := container.Provide(NewRenderer); err != nil {
		return nil, err
	}
	if err := container.Provide(NewGenerator); err != nil {
		return nil, err
	}

	// Handlers & Router
	if err := container.Provide(handler.NewServer); err != nil {
		return nil, err
	}
	if err := container.Provide(router.NewRouter); err != nil {
		return nil, err
	}

	// Application Layer
	if err := container.Provide(app.NewApp); err != nil {
		return nil, err
	}

	return container, nil
}

// NewI18n loads the translation catalogs with the configured fallback locale.
func NewI18n(cfg *config.Manager) (*i18n.Manager, error) {
	return i18n.New(cfg.GetLocale())
}

// NewNonceManager signs action tokens with SETTINGS_SECRET. Without a secret
// tokens only survive until the process restarts.
func NewNonceManager(cfg *config.Manager) *nonce.Manager {
	secret := cfg.GetAuthConfig().Secret
	if secret == "" {
		logrus.Warn("SETTINGS_SECRET is not set, using a random secret for action tokens")
		secret = uuid.NewString()
	}
	return nonce.New(secret)
}

// NewRenderer builds the page renderer.
func NewRenderer() (*render.Renderer, error) {
	return render.New()
}

// NewGenerator builds the OpenAPI generator served under /settings/:group/schema.
func NewGenerator() *openapi.Generator {
	return openapi.NewGenerator(openapi.WithDescription("Routes and stored values of one option group"))
}

// NewCatalog loads the definition directory. Registries persist through the
// configured backend and report to the log and audit trail. A missing
// directory yields an empty catalog.
func NewCatalog(cfg *config.Manager, backend *store.Backend) (*definitions.Catalog, error) {
	activityCfg := cfg.GetActivityConfig()
	opts := []settings.Option{
		settings.WithStore(backend.Store),
		settings.WithEngine(cfg.GetDefinitionsConfig().Engine),
		settings.WithProgramCache(settings.NewMemoryProgramCache()),
		settings.WithLogger(logger.RegistryLogger(logrus.WithField("component", "registry"))),
	}
	if activityCfg.Enabled {
		opts = append(opts,
			settings.WithActivityHooks(audit.Hooks(logrus.WithField("component", "audit"))),
			settings.WithActivityChannel(activityCfg.Channel),
		)
	}

	catalog := definitions.NewCatalog(cfg.GetDefinitionsConfig().Dir, func(def *settings.Definition) (*settings.Registry, error) {
		return settings.NewRegistry(def, opts...)
	})
	if err := catalog.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logrus.WithField("dir", catalog.Dir()).Warn("Definitions directory not found, serving no option groups")
			return catalog, nil
		}
		logrus.WithError(err).Warn("Some settings definitions failed to load")
	}
	return catalog, nil
}
