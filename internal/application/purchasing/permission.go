package purchasing

import "github.com/jhoicas/procurement-api/internal/domain/entity"

// Action operación sobre una OC sujeta a autorización.
type Action string

const (
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionOrder   Action = "order"
	ActionReceive Action = "receive"
	ActionCancel  Action = "cancel"
	ActionClose   Action = "close"
)

// Permission predicado de autorización evaluado en cada llamada a la máquina de estados.
type Permission func(actor Actor, action Action) bool

// Actor quien ejecuta la operación. Allow nil usa RolePermission.
type Actor struct {
	UserID string
	Role   string
	Allow  Permission
}

func (a Actor) can(action Action) bool {
	allow := a.Allow
	if allow == nil {
		allow = RolePermission
	}
	return allow(a, action)
}

// RolePermission regla por defecto: staff solo trabaja borradores; sacar una OC de DRAFT
// (enviar, aprobar, ordenar, recibir, cancelar, cerrar) requiere manager o admin.
func RolePermission(actor Actor, action Action) bool {
	switch actor.Role {
	case entity.RoleAdmin, entity.RoleManager:
		return true
	case entity.RoleStaff:
		return action == ActionCreate || action == ActionEdit || action == ActionDelete
	}
	return false
}

func actionForStatus(status string) Action {
	switch status {
	case entity.POStatusSubmitted:
		return ActionSubmit
	case entity.POStatusApproved:
		return ActionApprove
	case entity.POStatusOrdered:
		return ActionOrder
	case entity.POStatusCancelled:
		return ActionCancel
	case entity.POStatusClosed:
		return ActionClose
	case entity.POStatusPartiallyReceived, entity.POStatusFullyReceived:
		return ActionReceive
	}
	return ActionEdit
}
