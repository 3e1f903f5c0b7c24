package ledger

import (
	"context"

	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción del store, pasando
// repositorios atados a esa transacción. Garantiza el orden append-then-apply
// del ledger: si la aplicación al stock falla, el movimiento anotado se
// deshace junto con la transacción y no queda estado parcial.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		stockRepo repository.StockLevelRepository,
	) error) error
}
