package http_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/procurement-api/internal/infrastructure/cache"
	apphttp "github.com/jhoicas/procurement-api/internal/interfaces/http"
)

type brokenStore struct{}

func (brokenStore) MarkProcessed(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis caído")
}
func (brokenStore) IsProcessed(context.Context, string) (bool, error) { return false, nil }
func (brokenStore) Forget(context.Context, string) error              { return nil }
func (brokenStore) Close() error                                      { return nil }

var _ cache.IdempotencyStore = brokenStore{}

func postWithKey(t *testing.T, app *fiber.App, path, key string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set(apphttp.HeaderIdempotencyKey, key)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestIdempotency_AlmacenCaido_NoBloquea(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(apphttp.Idempotency(brokenStore{}, time.Minute, zerolog.New(&buf)))
	app.Post("/x", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	assert.Equal(t, http.StatusCreated, postWithKey(t, app, "/x", "k1"))
	assert.Equal(t, http.StatusCreated, postWithKey(t, app, "/x", "k1"))
	assert.Contains(t, buf.String(), "almacén no disponible")
}

func TestIdempotency_SoloPOSTConClave(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	app := fiber.New()
	app.Use(apphttp.Idempotency(store, time.Minute, zerolog.Nop()))
	app.Post("/x", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })
	app.Put("/x", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	assert.Equal(t, http.StatusCreated, postWithKey(t, app, "/x", ""))
	assert.Equal(t, http.StatusCreated, postWithKey(t, app, "/x", ""), "sin clave no hay control")

	assert.Equal(t, http.StatusCreated, postWithKey(t, app, "/x", "k1"))
	assert.Equal(t, http.StatusConflict, postWithKey(t, app, "/x", "k1"))

	req := httptest.NewRequest(http.MethodPut, "/x", nil)
	req.Header.Set(apphttp.HeaderIdempotencyKey, "k1")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIdempotency_ErrorDelHandlerLiberaLaClave(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	fail := true
	app := fiber.New()
	app.Use(apphttp.Idempotency(store, time.Minute, zerolog.Nop()))
	app.Post("/x", func(c *fiber.Ctx) error {
		if fail {
			return fiber.NewError(fiber.StatusServiceUnavailable, "ocupado")
		}
		return c.SendStatus(fiber.StatusCreated)
	})

	assert.Equal(t, http.StatusServiceUnavailable, postWithKey(t, app, "/x", "k1"))
	fail = false
	assert.Equal(t, http.StatusCreated, postWithKey(t, app, "/x", "k1"))
}

func TestRequestLogger_NivelSegunStatus(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(apphttp.RequestLogger(zerolog.New(&buf)))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/mal", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusBadRequest) })

	for _, path := range []string{"/ok", "/mal"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
	}
	out := buf.String()
	assert.Contains(t, out, `"level":"info"`)
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"path":"/mal"`)
	assert.Contains(t, out, `"status":400`)
}
