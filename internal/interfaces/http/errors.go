package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/procurement-api/internal/application/dto"
	"github.com/jhoicas/procurement-api/internal/domain"
)

// kindStatus traduce el tipo de error de dominio a código HTTP.
var kindStatus = map[domain.Kind]int{
	domain.KindValidation:            fiber.StatusBadRequest,
	domain.KindNotFound:              fiber.StatusNotFound,
	domain.KindInsufficientStock:     fiber.StatusUnprocessableEntity,
	domain.KindInsufficientAvailable: fiber.StatusUnprocessableEntity,
	domain.KindOverReceipt:           fiber.StatusUnprocessableEntity,
	domain.KindInvalidTransition:     fiber.StatusConflict,
	domain.KindDuplicateReference:    fiber.StatusConflict,
	domain.KindConflict:              fiber.StatusConflict,
	domain.KindForbidden:             fiber.StatusForbidden,
}

// sentinelErrors errores sin Kind propio (repositorios, auth).
var sentinelErrors = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrEmailAlreadyExists, fiber.StatusConflict, "EMAIL_EXISTS"},
	{domain.ErrUserNotFound, fiber.StatusNotFound, "USER_NOT_FOUND"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
}

// respondError escribe la respuesta de error correspondiente a err.
// Errores sin tipo conocido se devuelven como 500 INTERNAL.
func respondError(c *fiber.Ctx, err error) error {
	var verr *validationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code: string(domain.KindValidation), Message: verr.Error(), Details: verr.details,
		})
	}
	for _, s := range sentinelErrors {
		if errors.Is(err, s.err) {
			return c.Status(s.status).JSON(dto.ErrorResponse{Code: s.code, Message: err.Error()})
		}
	}

	kind := domain.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(status).JSON(dto.ErrorResponse{
		Code:      string(kind),
		Message:   err.Error(),
		Retryable: domain.IsRetryable(err),
	})
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: string(domain.KindNotFound), Message: msg})
}

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
