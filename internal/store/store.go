// Package store selects the persistence backend of option groups.
package store

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/internal/config"
	"github.com/goliatone/go-settings/internal/db"
	"github.com/goliatone/go-settings/pkg/state"
	"github.com/goliatone/go-settings/pkg/state/gormstore"
	"github.com/goliatone/go-settings/pkg/state/redisstore"
)

// Backend is the configured store plus the connections it owns.
type Backend struct {
	Name  string
	Store state.Store[settings.Values]

	gormDB      *gorm.DB
	redisClient *redis.Client
}

// NewBackend opens the store named by the configuration.
func NewBackend(cfg *config.Manager) (*Backend, error) {
	storeCfg := cfg.GetStoreConfig()
	switch storeCfg.Backend {
	case config.StoreMemory, "":
		logrus.Info("Using in-memory settings store")
		return &Backend{Name: config.StoreMemory, Store: state.NewMemoryStore(state.WithMemoryCopy(settings.Values.Clone))}, nil
	case config.StoreGorm:
		conn, err := db.Open(storeCfg.DSN, cfg.GetLogConfig().Level == "debug")
		if err != nil {
			return nil, err
		}
		return &Backend{Name: config.StoreGorm, Store: gormstore.New[settings.Values](conn), gormDB: conn}, nil
	case config.StoreRedis:
		client, err := redisstore.NewClient(storeCfg.RedisURL)
		if err != nil {
			return nil, err
		}
		logrus.WithField("prefix", storeCfg.Prefix).Info("Using Redis settings store")
		return &Backend{
			Name:        config.StoreRedis,
			Store:       redisstore.New[settings.Values](client, redisstore.WithPrefix(storeCfg.Prefix)),
			redisClient: client,
		}, nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", storeCfg.Backend)
	}
}

// Close releases the connections opened by NewBackend.
func (b *Backend) Close() error {
	if b == nil {
		return nil
	}
	var errs []error
	if b.gormDB != nil {
		errs = append(errs, db.Close(b.gormDB))
	}
	if b.redisClient != nil {
		errs = append(errs, b.redisClient.Close())
	}
	return errors.Join(errs...)
}
