package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrUnknownReason      = errors.New("código de motivo desconocido")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrDuplicateReference = errors.New("referencia de movimiento ya registrada")
	ErrNegativeStock      = errors.New("la operación dejaría el stock en negativo")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrVersionConflict    = errors.New("conflicto de versión en stock")
	ErrContention         = errors.New("reintentos agotados por escrituras concurrentes")
)

// TransferFailedError indica que el abono en destino falló después de debitar el origen.
// Siempre incluye la referencia del movimiento de compensación que restauró el saldo
// del origen, para que el caller nunca vea un débito colgante.
type TransferFailedError struct {
	TransferID      string
	CompensationRef string
	Err             error
}

func (e *TransferFailedError) Error() string {
	return fmt.Sprintf("transferencia %s fallida (compensación %s): %v", e.TransferID, e.CompensationRef, e.Err)
}

func (e *TransferFailedError) Unwrap() error { return e.Err }
