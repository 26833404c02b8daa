package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/rs/zerolog"

	"github.com/jhoicas/procurement-api/internal/application/dto"
	"github.com/jhoicas/procurement-api/internal/infrastructure/cache"
)

// HeaderIdempotencyKey cabecera con la que el cliente marca un POST como reintentable.
const HeaderIdempotencyKey = "Idempotency-Key"

// HTTPRecorder colector de métricas HTTP (implementado por metrics.Recorder).
type HTTPRecorder interface {
	HTTPRequest(method, route string, status int, elapsed time.Duration)
}

// responseStatus status final: si el handler devolvió error, el que le asignará el ErrorHandler.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// RequestLogger registra una línea por petición con método, ruta, status y duración.
func RequestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := responseStatus(c, err)

		ev := log.Info()
		switch {
		case status >= fiber.StatusInternalServerError:
			ev = log.Error().Err(err)
		case status >= fiber.StatusBadRequest:
			ev = log.Warn()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Str("user_id", GetUserID(c)).
			Msg("http")
		return err
	}
}

// Metrics cuenta peticiones por ruta registrada (no por path crudo, para acotar cardinalidad).
func Metrics(rec HTTPRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		route := c.Route().Path
		if route == "" {
			route = "desconocida"
		}
		rec.HTTPRequest(utils.CopyString(c.Method()), route, responseStatus(c, err), time.Since(start))
		return err
	}
}

// Idempotency rechaza un POST repetido con la misma Idempotency-Key dentro del TTL.
// La clave se libera si la petición termina en error para que el cliente pueda reintentar.
// Si el almacén falla la petición sigue (fail-open) y se deja un warning.
func Idempotency(store cache.IdempotencyStore, ttl time.Duration, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}
		key := c.Get(HeaderIdempotencyKey)
		if key == "" {
			return c.Next()
		}
		if len(key) > 200 {
			return badRequest(c, "INVALID_IDEMPOTENCY_KEY", "Idempotency-Key admite hasta 200 caracteres")
		}
		scoped := GetUserID(c) + ":" + c.Method() + ":" + c.Path() + ":" + key

		ctx := c.Context()
		first, err := store.MarkProcessed(ctx, scoped, ttl)
		if err != nil {
			log.Warn().Err(err).Str("path", c.Path()).Msg("idempotencia: almacén no disponible, se procesa sin control")
			return c.Next()
		}
		if !first {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Code:      "DUPLICATE_REQUEST",
				Message:   "petición ya procesada con Idempotency-Key " + strconv.Quote(key),
				Retryable: true,
			})
		}

		err = c.Next()
		if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
			if ferr := store.Forget(ctx, scoped); ferr != nil {
				log.Warn().Err(ferr).Msg("idempotencia: no se pudo liberar la clave")
			}
		}
		return err
	}
}
