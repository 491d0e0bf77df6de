package journals

import (
	"time"

	"github.com/google/uuid"
)

// Estado enumerates the asiento lifecycle.
type Estado string

const (
	EstadoBorrador  Estado = "BORRADOR"
	EstadoPendiente Estado = "PENDIENTE"
	EstadoAprobado  Estado = "APROBADO"
	EstadoAnulado   Estado = "ANULADO"
)

// Tipo classifies how an asiento originated.
type Tipo string

const (
	TipoDiario     Tipo = "DIARIO"
	TipoAjuste     Tipo = "AJUSTE"
	TipoAutomatico Tipo = "AUTOMATICO"
	TipoCierre     Tipo = "CIERRE"
)

// Asiento is one double-entry transaction. Lines are immutable once the
// entry reaches APROBADO.
type Asiento struct {
	ID                int64
	Numero            string
	PeriodoID         int64
	PeriodoNombre     string
	Fecha             time.Time
	Tipo              Tipo
	Descripcion       string
	TotalDebito       float64
	TotalCredito      float64
	Estado            Estado
	CreadoPor         int64
	AprobadoPor       *int64
	FechaAprobacion   *time.Time
	AnuladoPor        *int64
	FechaAnulacion    *time.Time
	MotivoAnulacion   string
	TipoDocOrigen     string
	DocOrigenID       *uuid.UUID
	EsReversion       bool
	AsientoOriginalID *int64
	SiigoID           string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Lineas            []Linea
}

// Linea is one debit-or-credit row within an asiento. Only the entry-level
// sum invariant is enforced; a line may in principle carry both sides.
type Linea struct {
	ID            int64
	AsientoID     int64
	CuentaCodigo  string
	CuentaNombre  string
	Debito        float64
	Credito       float64
	Descripcion   string
	TerceroTipo   string
	TerceroID     *uuid.UUID
	TerceroNombre string
	CentroCostoID string
	Orden         int
}

// Stats aggregates entry counts for dashboards.
type Stats struct {
	Total     int
	PorEstado map[Estado]int
	PorTipo   map[Tipo]int
}
