package entity

import "time"

// Location representa una bodega o sucursal donde se almacena inventario.
type Location struct {
	ID        string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
