// Command settingsd serves settings pages and the settings API for every
// definition file in a directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-settings/internal/app"
	"github.com/goliatone/go-settings/internal/config"
	"github.com/goliatone/go-settings/internal/container"
	"github.com/goliatone/go-settings/internal/logger"
	"github.com/goliatone/go-settings/internal/middleware"
)

func main() {
	hashKey := flag.String("hash-key", "", "print a bcrypt hash of the given admin key and exit")
	flag.Parse()

	if *hashKey != "" {
		hash, err := middleware.HashKey(*hashKey)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	if err := run(); err != nil {
		logrus.WithError(err).Fatal("Settings server failed")
	}
}

func run() error {
	c, err := container.BuildContainer()
	if err != nil {
		return err
	}

	var cfg *config.Manager
	if err := c.Invoke(func(m *config.Manager) {
		cfg = m
		logger.Setup(m.GetLogConfig())
	}); err != nil {
		return err
	}

	var application *app.App
	if err := c.Invoke(func(a *app.App) {
		application = a
	}); err != nil {
		return err
	}

	errCh, err := application.Start()
	if err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case sig := <-quit:
		logrus.WithField("signal", sig.String()).Info("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetServerConfig().GracefulShutdownTimeout)
	defer cancel()
	return application.Stop(ctx)
}
