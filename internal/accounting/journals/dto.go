package journals

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/clinicamia/contable/internal/accounting/shared"
)

// LineaInput describes one line of a posting request.
type LineaInput struct {
	CuentaCodigo  string     `json:"cuentaCodigo" validate:"required"`
	CuentaNombre  string     `json:"cuentaNombre"`
	Debito        float64    `json:"debito" validate:"gte=0"`
	Credito       float64    `json:"credito" validate:"gte=0"`
	Descripcion   string     `json:"descripcion"`
	TerceroTipo   string     `json:"terceroTipo"`
	TerceroID     *uuid.UUID `json:"terceroId"`
	TerceroNombre string     `json:"terceroNombre"`
	CentroCostoID string     `json:"centroCostoId"`
}

// CreateInput groups the fields required to create an asiento.
type CreateInput struct {
	Fecha         time.Time    `json:"fecha" validate:"required"`
	Tipo          Tipo         `json:"tipo"`
	Descripcion   string       `json:"descripcion" validate:"required"`
	Lineas        []LineaInput `json:"lineas" validate:"required,min=2,dive"`
	TipoDocOrigen string       `json:"tipoDocOrigen"`
	DocOrigenID   *uuid.UUID   `json:"docOrigenId"`
}

// TotalDebito sums the debit side.
func TotalDebito(lineas []LineaInput) float64 {
	var total float64
	for _, l := range lineas {
		total += l.Debito
	}
	return total
}

// TotalCredito sums the credit side.
func TotalCredito(lineas []LineaInput) float64 {
	var total float64
	for _, l := range lineas {
		total += l.Credito
	}
	return total
}

// ValidarCuadre enforces the fundamental invariant: debits equal credits
// within tolerance.
func ValidarCuadre(lineas []LineaInput) error {
	debito := TotalDebito(lineas)
	credito := TotalCredito(lineas)
	if math.Abs(debito-credito) > shared.BalanceTolerance {
		return shared.Validationf(
			"el asiento no cuadra: débitos (%.2f) ≠ créditos (%.2f)", debito, credito)
	}
	return nil
}

// ValidarCuadreLineas re-checks persisted lines. Approval runs it as the
// last gate before the lines hit the libro mayor.
func ValidarCuadreLineas(numero string, lineas []Linea) error {
	var debito, credito float64
	for _, l := range lineas {
		debito += l.Debito
		credito += l.Credito
	}
	if math.Abs(debito-credito) > shared.BalanceTolerance {
		return shared.Validationf(
			"el asiento %s no cuadra: débitos (%.2f) ≠ créditos (%.2f)", numero, debito, credito)
	}
	return nil
}

// Validate checks structural rules before touching the database.
func (in CreateInput) Validate() error {
	if in.Fecha.IsZero() {
		return shared.Validationf("la fecha del asiento es obligatoria")
	}
	if len(in.Lineas) < 2 {
		return shared.Validationf("el asiento requiere al menos dos líneas")
	}
	for i, l := range in.Lineas {
		if l.CuentaCodigo == "" {
			return shared.Validationf("la línea %d no tiene cuenta", i+1)
		}
		if l.Debito < 0 || l.Credito < 0 {
			return shared.Validationf("la línea %d tiene un monto negativo", i+1)
		}
	}
	return ValidarCuadre(in.Lineas)
}

// UpdateInput carries partial edits; nil fields keep their value. Lineas,
// when present, replace every existing line.
type UpdateInput struct {
	Fecha       *time.Time   `json:"fecha"`
	Tipo        *Tipo        `json:"tipo"`
	Descripcion *string      `json:"descripcion"`
	Lineas      []LineaInput `json:"lineas"`
}

// ListFilter narrows List queries.
type ListFilter struct {
	PeriodoID   int64
	Estado      Estado
	Tipo        Tipo
	FechaInicio *time.Time
	FechaFin    *time.Time
	Search      string
	Page        int
	Limit       int
}

func (f ListFilter) normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	return f
}

// Page wraps a listado with its pagination metadata.
type Page struct {
	Data       []Asiento `json:"data"`
	Pagina     int       `json:"page"`
	Limite     int       `json:"limit"`
	Total      int       `json:"total"`
	TotalPages int       `json:"totalPages"`
}
