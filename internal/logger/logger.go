// Package logger configures logrus and bridges registry events into it.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/internal/config"
)

// Setup applies level and format to the standard logrus logger.
func Setup(cfg config.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// RegistryLogger forwards registry events to entry. Failed operations log at
// warn level, everything else at debug.
func RegistryLogger(entry *logrus.Entry) settings.Logger {
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	return settings.LoggerFunc(func(event settings.LogEvent) {
		fields := logrus.Fields{
			"group":    event.Group,
			"op":       event.Op,
			"duration": event.Duration,
		}
		if event.Key != "" {
			fields["key"] = event.Key.String()
		}
		if event.Engine != "" {
			fields["engine"] = event.Engine
		}
		if event.Expr != "" {
			fields["expr"] = event.Expr
		}
		log := entry.WithFields(fields)
		if event.Err != nil {
			log.WithError(event.Err).Warn("settings operation failed")
			return
		}
		log.Debug("settings operation")
	})
}
