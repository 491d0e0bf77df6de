package sources

import (
	"time"

	"github.com/google/uuid"
)

// Doc origin tags recorded on automatic asientos.
const (
	DocFactura = "FACTURA"
	DocPago    = "PAGO"
)

// Factura is the read model of a billing invoice, just the fields the
// automatic posting needs.
type Factura struct {
	ID             uuid.UUID
	Numero         string
	FechaEmision   time.Time
	Subtotal       float64
	Impuestos      float64
	Total          float64
	Estado         string
	PacienteID     uuid.UUID
	PacienteNombre string
}

// Pago is the read model of a received payment.
type Pago struct {
	ID             uuid.UUID
	FacturaID      uuid.UUID
	FacturaNumero  string
	Fecha          time.Time
	Monto          float64
	MetodoPago     string
	PacienteID     uuid.UUID
	PacienteNombre string
}
