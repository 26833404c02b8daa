package cache

import (
	"context"
	"fmt"

	"github.com/jhoicas/procurement-api/pkg/config"
	"github.com/jhoicas/procurement-api/pkg/logger"
)

// NewIdempotencyStore elige el almacén según la configuración: Redis si está habilitado,
// memoria del proceso si no. Con Redis habilitado pero caído, usa memoria solo si allowFallback.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, log *logger.Logger, allowFallback bool) (IdempotencyStore, error) {
	if !cfg.Enabled {
		log.Info().Msg("idempotencia: almacén en memoria")
		return NewInMemoryIdempotencyStore(), nil
	}
	store, err := NewRedisIdempotencyStore(ctx, cfg)
	if err == nil {
		log.Info().Str("addr", cfg.Addr()).Msg("idempotencia: almacén Redis")
		return store, nil
	}
	if !allowFallback {
		return nil, fmt.Errorf("idempotencia: Redis requerido: %w", err)
	}
	log.Warn().Err(err).Msg("idempotencia: Redis no disponible, se usa memoria; las claves no se comparten entre instancias")
	return NewInMemoryIdempotencyStore(), nil
}
