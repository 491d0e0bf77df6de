package reports

import (
	"strings"

	"github.com/clinicamia/contable/internal/accounting/accounts"
	"github.com/clinicamia/contable/internal/accounting/ledger"
)

// buildFlujoCaja assembles the indirect-method cash flow: start from the
// month's net result, add back depreciation, and adjust for the working
// capital deltas read off the ledger's opening/closing balances.
func buildFlujoCaja(anio, mes int, rows []ledger.Row) FlujoCaja {
	er := buildEstadoResultados(anio, mes, rows)
	fc := FlujoCaja{
		Anio:         anio,
		Mes:          mes,
		Periodo:      nombrePeriodo(anio, mes),
		UtilidadNeta: er.UtilidadNeta,
	}

	var (
		varActivosNoCorr float64
		varPasivosNoCorr float64
		varPatrimonio    float64
	)
	for _, a := range acumularPorCuenta(rows) {
		variacion := a.saldo - a.inicio
		switch a.tipo {
		case accounts.TipoActivo:
			switch {
			case strings.HasPrefix(a.codigo, prefijoDisponible):
				fc.EfectivoInicial += a.inicio
				fc.EfectivoFinal += a.saldo
			case strings.HasPrefix(a.codigo, prefijoDeudores):
				fc.VariacionDeudores += variacion
			case strings.HasPrefix(a.codigo, prefijoInventarios):
				fc.VariacionInventarios += variacion
			case !esActivoCorriente(a.codigo):
				varActivosNoCorr += variacion
			}
		case accounts.TipoPasivo:
			if esPasivoCorriente(a.codigo) {
				fc.VariacionPasivosCorr += variacion
			} else {
				varPasivosNoCorr += variacion
			}
		case accounts.TipoPatrimonio:
			varPatrimonio += variacion
		case accounts.TipoGasto:
			if strings.HasPrefix(a.codigo, cuentaDepreciacion) {
				fc.Depreciacion += a.delta
			}
		}
	}

	fc.FlujoOperacion = fc.UtilidadNeta + fc.Depreciacion -
		fc.VariacionDeudores - fc.VariacionInventarios + fc.VariacionPasivosCorr
	fc.FlujoInversion = -varActivosNoCorr
	fc.FlujoFinanciacion = varPasivosNoCorr + varPatrimonio
	fc.FlujoNeto = fc.FlujoOperacion + fc.FlujoInversion + fc.FlujoFinanciacion
	return fc
}
