// Package app runs the settings HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/dig"

	"github.com/goliatone/go-settings/internal/config"
	"github.com/goliatone/go-settings/internal/definitions"
	"github.com/goliatone/go-settings/internal/store"
)

// App owns the HTTP server and the resources it serves from.
type App struct {
	config  *config.Manager
	engine  *gin.Engine
	backend *store.Backend
	catalog *definitions.Catalog

	httpServer  *http.Server
	cancelWatch context.CancelFunc
}

// AppParams defines the dependencies for the NewApp constructor.
type AppParams struct {
	dig.In
	Config  *config.Manager
	Engine  *gin.Engine
	Backend *store.Backend
	Catalog *definitions.Catalog
}

// NewApp creates the application.
func NewApp(params AppParams) *App {
	return &App{
		config:  params.Config,
		engine:  params.Engine,
		backend: params.Backend,
		catalog: params.Catalog,
	}
}

// Handler exposes the router.
func (a *App) Handler() http.Handler {
	return a.engine
}

// Start begins serving in the background. Listener failures are returned on
// the channel.
func (a *App) Start() (<-chan error, error) {
	a.config.DisplayServerConfig()

	if a.config.GetDefinitionsConfig().Watch {
		ctx, cancel := context.WithCancel(context.Background())
		if err := a.catalog.Watch(ctx); err != nil {
			cancel()
			return nil, fmt.Errorf("app: watch definitions: %w", err)
		}
		a.cancelWatch = cancel
	}

	serverCfg := a.config.GetServerConfig()
	a.httpServer = &http.Server{
		Addr:         serverCfg.Addr,
		Handler:      a.engine,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":   serverCfg.Addr,
			"groups": a.catalog.Groups(),
		}).Info("Settings server listening")
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh, nil
}

// Stop shuts the server down and releases the store and watcher.
func (a *App) Stop(ctx context.Context) error {
	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("app: shutdown: %w", err))
		}
	}
	if a.cancelWatch != nil {
		a.cancelWatch()
	}
	if err := a.catalog.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.backend.Close(); err != nil {
		errs = append(errs, err)
	}
	logrus.Info("Settings server stopped")
	return errors.Join(errs...)
}
