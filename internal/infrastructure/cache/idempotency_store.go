// Package cache implementa los almacenes de claves Idempotency-Key usados por la API HTTP.
package cache

import (
	"context"
	"time"
)

// IdempotencyStore registra claves ya procesadas durante un TTL.
type IdempotencyStore interface {
	// MarkProcessed marca la clave. Devuelve false si ya estaba marcada y vigente.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Forget libera la clave (la petición falló y el cliente puede reintentar).
	Forget(ctx context.Context, key string) error
	Close() error
}
