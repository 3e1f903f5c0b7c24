package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType es el conjunto cerrado de tipos de movimiento del ledger.
// La dirección (entrada/salida) se deriva del tipo, excepto para Count,
// donde depende de si lo contado supera o no lo esperado.
type MovementType string

const (
	MovementTypeIn            MovementType = "in"             // entrada por recepción (orden de compra)
	MovementTypeOut           MovementType = "out"            // salida por venta
	MovementTypeAdjustmentIn  MovementType = "adjustment_in"  // ajuste manual positivo
	MovementTypeAdjustmentOut MovementType = "adjustment_out" // ajuste manual negativo
	MovementTypeTransferIn    MovementType = "transfer_in"    // abono en bodega destino
	MovementTypeTransferOut   MovementType = "transfer_out"   // débito en bodega origen
	MovementTypeCount         MovementType = "count"          // conteo físico (diferencia contra lo esperado)
)

// Valid indica si el tipo pertenece al conjunto cerrado.
func (t MovementType) Valid() bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeAdjustmentIn, MovementTypeAdjustmentOut,
		MovementTypeTransferIn, MovementTypeTransferOut, MovementTypeCount:
		return true
	}
	return false
}

// DirectionOf devuelve +1 para tipos que aumentan stock y -1 para los que lo
// disminuyen. Para Count devuelve 0: la dirección se fija al crear el movimiento
// comparando lo contado contra lo esperado.
func (t MovementType) DirectionOf() int {
	switch t {
	case MovementTypeIn, MovementTypeAdjustmentIn, MovementTypeTransferIn:
		return 1
	case MovementTypeOut, MovementTypeAdjustmentOut, MovementTypeTransferOut:
		return -1
	}
	return 0
}

// Tipos de referencia que enlazan un movimiento con la operación que lo originó.
const (
	ReferenceTypePurchaseOrder        = "purchase_order"
	ReferenceTypeSale                 = "sale"
	ReferenceTypeAdjustment           = "adjustment"
	ReferenceTypeBulkAdjustment       = "bulk_adjustment"
	ReferenceTypeTransfer             = "transfer"
	ReferenceTypeTransferCompensation = "transfer_compensation"
	ReferenceTypeCount                = "count"
)

// Reference enlaza un movimiento con la operación externa que lo originó.
// El par (Type, ID) junto con el tipo de movimiento es la llave de idempotencia.
type Reference struct {
	Type string
	ID   string
}

// Códigos de motivo permitidos en ajustes manuales (enumeración cerrada).
const (
	ReasonDamage   = "damage"
	ReasonTheft    = "theft"
	ReasonLoss     = "loss"
	ReasonFound    = "found"
	ReasonExpiry   = "expiry"
	ReasonRecount  = "recount"
	ReasonTransfer = "transfer"
)

// ValidReason indica si el código de motivo pertenece a la enumeración.
func ValidReason(reason string) bool {
	switch reason {
	case ReasonDamage, ReasonTheft, ReasonLoss, ReasonFound, ReasonExpiry, ReasonRecount, ReasonTransfer:
		return true
	}
	return false
}

// Movement es una entrada inmutable del ledger: un cambio de cantidad para un
// producto en una ubicación. Nunca se actualiza ni se borra; las correcciones
// son movimientos compensatorios nuevos.
//
// Quantity es siempre estrictamente positiva; Direction lleva el signo (+1/-1).
// LocationID vacío significa pool de stock global (sin ubicaciones).
type Movement struct {
	ID          string
	ProductID   string
	LocationID  string
	Type        MovementType
	Direction   int
	Quantity    decimal.Decimal
	UnitCost    *decimal.Decimal
	Reference   Reference
	BatchNumber string
	ExpiryDate  *time.Time
	Reason      string
	ActorID     string
	CreatedAt   time.Time
}

// Delta devuelve la cantidad con signo que este movimiento aporta al stock.
func (m *Movement) Delta() decimal.Decimal {
	if m.Direction < 0 {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// Increasing indica si el movimiento aumenta el stock (aplica costo promedio).
func (m *Movement) Increasing() bool { return m.Direction > 0 }
