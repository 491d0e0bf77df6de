package accounts

import "time"

// Tipo enumerates PUC account categories.
type Tipo string

const (
	TipoActivo     Tipo = "Activo"
	TipoPasivo     Tipo = "Pasivo"
	TipoPatrimonio Tipo = "Patrimonio"
	TipoIngreso    Tipo = "Ingreso"
	TipoGasto      Tipo = "Gasto"
)

// Naturaleza is the side on which an account carries its normal balance.
type Naturaleza string

const (
	NaturalezaDebito  Naturaleza = "Débito"
	NaturalezaCredito Naturaleza = "Crédito"
)

// Cuenta models a chart of accounts node. The catalog is seeded
// externally and read-only for this service.
type Cuenta struct {
	ID         int64
	Codigo     string
	Nombre     string
	Tipo       Tipo
	Naturaleza Naturaleza
	Activa     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
