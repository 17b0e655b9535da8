// Package app bundles the shared process-wide dependencies that
// services are constructed from. Nothing here is a singleton; main
// builds one AppContext and hands it down.
package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/veiledapp/veiled-backend/internal/cache"
)

// AppContext carries the handles every service needs.
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
}

func NewAppContext(gdb *gorm.DB, redisCache *cache.RedisCache, logger *slog.Logger) *AppContext {
	return &AppContext{
		DB:         gdb,
		RedisCache: redisCache,
		Logger:     logger,
	}
}
