package ledger

import (
	"time"

	"github.com/clinicamia/contable/internal/accounting/accounts"
)

// Row is one account's aggregated balance inside one monthly period,
// optionally split by cost center. Identity key: (anio, mes,
// cuenta_codigo, centro_costo_id) with '' when no cost center applies.
type Row struct {
	ID               int64
	Anio             int
	Mes              int
	CuentaCodigo     string
	CuentaNombre     string
	CuentaTipo       accounts.Tipo
	CuentaNaturaleza accounts.Naturaleza
	CentroCostoID    string
	SaldoInicial     float64
	Debitos          float64
	Creditos         float64
	SaldoFinal       float64
	NumMovimientos   int
	UpdatedAt        time.Time
}

// Movimiento is the ledger-relevant projection of one approved entry line.
type Movimiento struct {
	CuentaCodigo  string
	CentroCostoID string
	Debito        float64
	Credito       float64
}

// MovimientoCuenta is one contributing line in an account drill-down.
type MovimientoCuenta struct {
	Fecha         time.Time
	AsientoNumero string
	Descripcion   string
	Debito        float64
	Credito       float64
	Saldo         float64
}

// ExtractoCuenta is the account-level drill-down for one period.
type ExtractoCuenta struct {
	CuentaCodigo string
	CuentaNombre string
	Naturaleza   accounts.Naturaleza
	Anio         int
	Mes          int
	SaldoInicial float64
	Movimientos  []MovimientoCuenta
	SaldoFinal   float64
}

// SaldoDelta applies the account's natural side to a debit/credit pair: a
// natural-Débito account grows with debits, a natural-Crédito account
// grows with credits.
func SaldoDelta(naturaleza accounts.Naturaleza, debito, credito float64) float64 {
	if naturaleza == accounts.NaturalezaDebito {
		return debito - credito
	}
	return credito - debito
}

// PeriodoRange returns the [start, end] dates covering (anio, mes).
func PeriodoRange(anio, mes int) (time.Time, time.Time) {
	inicio := time.Date(anio, time.Month(mes), 1, 0, 0, 0, 0, time.UTC)
	fin := inicio.AddDate(0, 1, -1)
	return inicio, fin
}
