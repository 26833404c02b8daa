package purchasing

import (
	"context"
	"time"

	"github.com/jhoicas/procurement-api/internal/application/inventory"
	"github.com/jhoicas/procurement-api/internal/application/ports"
)

// StockLedger contrato mínimo del ledger que usa la recepción de OC.
// Lo implementa *inventory.LedgerUseCase.
type StockLedger interface {
	ApplyMovementInTx(ctx context.Context, repos ports.TxRepos, in inventory.MovementInput, now time.Time) (*inventory.MovementResult, error)
}

// TransitionRecorder recibe cada transición de estado aplicada (métricas).
type TransitionRecorder interface {
	PurchaseOrderTransition(from, to string)
}
