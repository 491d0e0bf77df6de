package periods

import (
	"fmt"
	"time"
)

// Estado enumerates period states.
type Estado string

const (
	EstadoAbierto Estado = "ABIERTO"
	EstadoCerrado Estado = "CERRADO"
)

// Periodo is one calendar month of the ledger. Exactly one row exists per
// (anio, mes); rows are created lazily the first time an entry needs them.
type Periodo struct {
	ID          int64
	Anio        int
	Mes         int
	Nombre      string
	FechaInicio time.Time
	FechaFin    time.Time
	Estado      Estado
	FechaCierre *time.Time
	CerradoPor  *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CierreTipo distinguishes monthly from annual close snapshots.
type CierreTipo string

const (
	CierreMensual CierreTipo = "MENSUAL"
	CierreAnual   CierreTipo = "ANUAL"
)

// CierreEstado marks whether a close snapshot is still in force.
type CierreEstado string

const (
	CierreVigente   CierreEstado = "VIGENTE"
	CierreReversado CierreEstado = "REVERSADO"
)

// Cierre is the audit snapshot persisted by a close action. Reopening
// marks it REVERSADO instead of deleting it.
type Cierre struct {
	ID              int64
	PeriodoID       int64
	Tipo            CierreTipo
	FechaCierre     time.Time
	TotalActivos    float64
	TotalPasivos    float64
	TotalPatrimonio float64
	TotalIngresos   float64
	TotalGastos     float64
	UtilidadPerdida float64
	AsientoCierreID *int64
	EjecutadoPor    int64
	Estado          CierreEstado
	ReversadoPor    *int64
	FechaReversion  *time.Time
	Observaciones   string
}

// Saldos groups the aggregate totals per account type at close time.
type Saldos struct {
	Activos    float64
	Pasivos    float64
	Patrimonio float64
	Ingresos   float64
	Gastos     float64
}

// UtilidadPerdida is the net result implied by the income/expense totals.
func (s Saldos) UtilidadPerdida() float64 {
	return s.Ingresos - s.Gastos
}

var meses = [12]string{"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre"}

// Nombre builds the display name for (anio, mes), e.g. "Marzo 2025".
func Nombre(anio, mes int) string {
	return fmt.Sprintf("%s %d", meses[mes-1], anio)
}

// Rango returns the first and last day of (anio, mes).
func Rango(anio, mes int) (time.Time, time.Time) {
	inicio := time.Date(anio, time.Month(mes), 1, 0, 0, 0, 0, time.UTC)
	return inicio, inicio.AddDate(0, 1, -1)
}

// NewPeriodo builds an open period row for (anio, mes).
func NewPeriodo(anio, mes int) Periodo {
	inicio, fin := Rango(anio, mes)
	return Periodo{
		Anio:        anio,
		Mes:         mes,
		Nombre:      Nombre(anio, mes),
		FechaInicio: inicio,
		FechaFin:    fin,
		Estado:      EstadoAbierto,
	}
}

// Stats summarises the period calendar.
type Stats struct {
	Total        int
	Abiertos     int
	Cerrados     int
	UltimoCierre string
}
