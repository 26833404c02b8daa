package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound              = errors.New("recurso no encontrado")
	ErrUserNotFound          = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists    = errors.New("el email ya está registrado")
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrDuplicate             = errors.New("recurso duplicado")
	ErrUnauthorized          = errors.New("no autorizado")
	ErrForbidden             = errors.New("acceso denegado")
	ErrConflict              = errors.New("conflicto con el estado actual")
	ErrInsufficientStock     = errors.New("stock insuficiente")
	ErrInsufficientAvailable = errors.New("disponible insuficiente para reservar")
	ErrInvalidTransition     = errors.New("transición de estado no permitida")
	ErrOverReceipt           = errors.New("la recepción excede la cantidad ordenada")
	ErrDuplicateReference    = errors.New("movimiento ya aplicado para esta referencia")
)

// Kind clasifica un error para el llamador (HTTP, orquestador, CLI).
type Kind string

const (
	KindValidation            Kind = "VALIDATION"
	KindInsufficientStock     Kind = "INSUFFICIENT_STOCK"
	KindInsufficientAvailable Kind = "INSUFFICIENT_AVAILABLE"
	KindInvalidTransition     Kind = "INVALID_TRANSITION"
	KindOverReceipt           Kind = "OVER_RECEIPT"
	KindDuplicateReference    Kind = "DUPLICATE_REFERENCE"
	KindNotFound              Kind = "NOT_FOUND"
	KindForbidden             Kind = "FORBIDDEN"
	KindConflict              Kind = "CONFLICT"
	KindInternal              Kind = "INTERNAL"
)

var kindSentinels = map[Kind]error{
	KindValidation:            ErrInvalidInput,
	KindInsufficientStock:     ErrInsufficientStock,
	KindInsufficientAvailable: ErrInsufficientAvailable,
	KindInvalidTransition:     ErrInvalidTransition,
	KindOverReceipt:           ErrOverReceipt,
	KindDuplicateReference:    ErrDuplicateReference,
	KindNotFound:              ErrNotFound,
	KindForbidden:             ErrForbidden,
	KindConflict:              ErrConflict,
}

// Error es un error de dominio con tipo, motivo legible y marca de reintento.
// errors.Is(err, domain.ErrOverReceipt) sigue funcionando vía Unwrap.
type Error struct {
	Kind      Kind
	Reason    string
	Retryable bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap devuelve el sentinel asociado al tipo.
func (e *Error) Unwrap() error {
	return kindSentinels[e.Kind]
}

func newError(kind Kind, retryable bool, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), Retryable: retryable}
}

func Validation(format string, args ...any) *Error {
	return newError(KindValidation, false, format, args...)
}

func InsufficientStock(format string, args ...any) *Error {
	return newError(KindInsufficientStock, false, format, args...)
}

func InsufficientAvailable(format string, args ...any) *Error {
	return newError(KindInsufficientAvailable, false, format, args...)
}

func InvalidTransition(format string, args ...any) *Error {
	return newError(KindInvalidTransition, false, format, args...)
}

func OverReceipt(format string, args ...any) *Error {
	return newError(KindOverReceipt, false, format, args...)
}

// DuplicateReference es reintentable: el llamador puede repetir sin efecto doble.
func DuplicateReference(format string, args ...any) *Error {
	return newError(KindDuplicateReference, true, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, false, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newError(KindForbidden, false, format, args...)
}

// Conflict representa contención de bloqueos o fallas de serialización (reintentable).
func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, true, format, args...)
}

// KindOf devuelve el tipo de err, mapeando también los sentinels sueltos.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}

// IsRetryable indica si el llamador puede reintentar la operación.
func IsRetryable(err error) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Retryable
	}
	return errors.Is(err, ErrDuplicateReference) || errors.Is(err, ErrConflict)
}
