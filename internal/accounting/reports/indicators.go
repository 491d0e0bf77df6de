package reports

import (
	"strings"

	"github.com/clinicamia/contable/internal/accounting/ledger"
)

// buildIndicadores derives the liquidity, leverage, profitability and
// activity ratios from the balance sheet and income statement of the
// same period.
func buildIndicadores(anio, mes int, rows []ledger.Row) Indicadores {
	bg := buildBalanceGeneral(anio, mes, rows)
	er := buildEstadoResultados(anio, mes, rows)

	var inventarios float64
	for _, linea := range bg.Activos.Corrientes {
		if strings.HasPrefix(linea.Codigo, prefijoInventarios) {
			inventarios += linea.Saldo
		}
	}

	ind := Indicadores{
		Anio:              anio,
		Mes:               mes,
		Periodo:           nombrePeriodo(anio, mes),
		CapitalTrabajo:    bg.Activos.TotalCorrientes - bg.Pasivos.TotalCorrientes,
		MargenBruto:       er.MargenBruto,
		MargenNeto:        er.MargenNeto,
		MargenOperacional: er.MargenOperacional,
	}
	if bg.Pasivos.TotalCorrientes != 0 {
		ind.RazonCorriente = bg.Activos.TotalCorrientes / bg.Pasivos.TotalCorrientes
		ind.PruebaAcida = (bg.Activos.TotalCorrientes - inventarios) / bg.Pasivos.TotalCorrientes
	}
	if bg.Pasivos.Total != 0 {
		ind.ConcentracionCortoPlazo = bg.Pasivos.TotalCorrientes / bg.Pasivos.Total * 100
	}
	if bg.Activos.Total != 0 {
		ind.Endeudamiento = bg.Pasivos.Total / bg.Activos.Total * 100
		ind.ROA = er.UtilidadNeta / bg.Activos.Total * 100
		ind.RotacionActivos = er.TotalIngresos / bg.Activos.Total
	}
	if bg.TotalPatrim != 0 {
		ind.ROE = er.UtilidadNeta / bg.TotalPatrim * 100
	}
	return ind
}
