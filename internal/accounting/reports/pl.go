package reports

import (
	"math"

	"github.com/clinicamia/contable/internal/accounting/accounts"
	"github.com/clinicamia/contable/internal/accounting/ledger"
	"github.com/clinicamia/contable/internal/accounting/shared"
)

// Flat income tax rate applied to the pre-tax result.
const tarifaImpuestoRenta = 0.35

// buildEstadoResultados assembles the income statement from the
// cumulative balances of income and expense accounts. Result accounts
// only close at year end, so the absolute saldo is the year-to-date
// figure.
func buildEstadoResultados(anio, mes int, rows []ledger.Row) EstadoResultados {
	er := EstadoResultados{Anio: anio, Mes: mes, Periodo: nombrePeriodo(anio, mes)}
	for _, a := range acumularPorCuenta(rows) {
		valor := math.Abs(a.saldo)
		if valor <= shared.BalanceTolerance {
			continue
		}
		linea := CuentaSaldo{Codigo: a.codigo, Nombre: a.nombre, Saldo: valor}
		switch a.tipo {
		case accounts.TipoIngreso:
			if esIngresoOperacional(a.codigo) {
				er.IngresosOperacionales = append(er.IngresosOperacionales, linea)
				er.TotalIngresosOper += valor
			} else {
				er.OtrosIngresos = append(er.OtrosIngresos, linea)
				er.TotalOtrosIngresos += valor
			}
			er.TotalIngresos += valor
		case accounts.TipoGasto:
			switch {
			case esCosto(a.codigo):
				er.Costos = append(er.Costos, linea)
				er.TotalCostos += valor
			case esGastoAdmin(a.codigo):
				er.GastosAdmin = append(er.GastosAdmin, linea)
				er.TotalGastosOper += valor
			case esGastoVentas(a.codigo):
				er.GastosVentas = append(er.GastosVentas, linea)
				er.TotalGastosOper += valor
			default:
				er.OtrosGastos = append(er.OtrosGastos, linea)
				er.TotalOtrosGastos += valor
			}
			er.TotalGastos += valor
		}
	}

	er.UtilidadBruta = er.TotalIngresosOper - er.TotalCostos
	er.UtilidadOperacional = er.UtilidadBruta - er.TotalGastosOper
	er.UtilidadAntesImpuesto = er.UtilidadOperacional +
		er.TotalOtrosIngresos - er.TotalOtrosGastos
	if er.UtilidadAntesImpuesto > 0 {
		er.Impuestos = er.UtilidadAntesImpuesto * tarifaImpuestoRenta
	}
	er.UtilidadNeta = er.UtilidadAntesImpuesto - er.Impuestos

	if er.TotalIngresosOper != 0 {
		er.MargenBruto = er.UtilidadBruta / er.TotalIngresosOper * 100
		er.MargenOperacional = er.UtilidadOperacional / er.TotalIngresosOper * 100
	}
	if er.TotalIngresos != 0 {
		er.MargenNeto = er.UtilidadNeta / er.TotalIngresos * 100
	}
	return er
}
