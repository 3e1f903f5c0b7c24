// Package reporting contiene los casos de uso de reportes derivados del ledger
// (valoración y antigüedad). Solo lectura: nunca disparan escrituras.
package reporting

import (
	"context"
	"time"
)

// ReportCache cachea snapshots de reportes con TTL. Los reportes son vistas
// derivadas sin ciclo de vida propio, así que una entrada vencida simplemente
// se regenera desde el ledger y el stock.
type ReportCache interface {
	// Get deserializa la entrada en v; devuelve false si no existe o venció.
	Get(ctx context.Context, key string, v any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}
