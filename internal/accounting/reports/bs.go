package reports

import (
	"math"
	"sort"

	"github.com/clinicamia/contable/internal/accounting/accounts"
	"github.com/clinicamia/contable/internal/accounting/ledger"
	"github.com/clinicamia/contable/internal/accounting/shared"
)

// cuentaAcum folds cost-center-split ledger rows back into one line per
// account.
type cuentaAcum struct {
	codigo string
	nombre string
	tipo   accounts.Tipo
	saldo  float64
	delta  float64
	inicio float64
}

func acumularPorCuenta(rows []ledger.Row) []cuentaAcum {
	porCodigo := make(map[string]*cuentaAcum)
	for _, row := range rows {
		a, ok := porCodigo[row.CuentaCodigo]
		if !ok {
			a = &cuentaAcum{
				codigo: row.CuentaCodigo,
				nombre: row.CuentaNombre,
				tipo:   row.CuentaTipo,
			}
			porCodigo[row.CuentaCodigo] = a
		}
		a.saldo += row.SaldoFinal
		a.inicio += row.SaldoInicial
		a.delta += ledger.SaldoDelta(row.CuentaNaturaleza, row.Debitos, row.Creditos)
	}
	out := make([]cuentaAcum, 0, len(porCodigo))
	for _, a := range porCodigo {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].codigo < out[j].codigo })
	return out
}

// buildBalanceGeneral assembles the balance sheet from the period's
// ledger rows. Income and expense accounts have not been closed during
// the year, so their net lands in equity as "Resultado del ejercicio".
func buildBalanceGeneral(anio, mes int, rows []ledger.Row) BalanceGeneral {
	bg := BalanceGeneral{Anio: anio, Mes: mes, Periodo: nombrePeriodo(anio, mes)}
	var resultado float64
	for _, a := range acumularPorCuenta(rows) {
		if math.Abs(a.saldo) <= shared.BalanceTolerance {
			continue
		}
		linea := CuentaSaldo{Codigo: a.codigo, Nombre: a.nombre, Saldo: a.saldo}
		switch a.tipo {
		case accounts.TipoActivo:
			if esActivoCorriente(a.codigo) {
				bg.Activos.Corrientes = append(bg.Activos.Corrientes, linea)
				bg.Activos.TotalCorrientes += a.saldo
			} else {
				bg.Activos.NoCorrientes = append(bg.Activos.NoCorrientes, linea)
				bg.Activos.TotalNoCorrientes += a.saldo
			}
		case accounts.TipoPasivo:
			if esPasivoCorriente(a.codigo) {
				bg.Pasivos.Corrientes = append(bg.Pasivos.Corrientes, linea)
				bg.Pasivos.TotalCorrientes += a.saldo
			} else {
				bg.Pasivos.NoCorrientes = append(bg.Pasivos.NoCorrientes, linea)
				bg.Pasivos.TotalNoCorrientes += a.saldo
			}
		case accounts.TipoPatrimonio:
			bg.Patrimonio = append(bg.Patrimonio, linea)
			bg.TotalPatrim += a.saldo
		case accounts.TipoIngreso:
			resultado += a.saldo
		case accounts.TipoGasto:
			resultado -= a.saldo
		}
	}
	bg.Activos.Total = bg.Activos.TotalCorrientes + bg.Activos.TotalNoCorrientes
	bg.Pasivos.Total = bg.Pasivos.TotalCorrientes + bg.Pasivos.TotalNoCorrientes

	bg.ResultadoEjercicio = resultado
	bg.TotalPatrim += resultado

	bg.Verificacion = VerificacionBalance{
		Activos:             bg.Activos.Total,
		PasivoMasPatrimonio: bg.Pasivos.Total + bg.TotalPatrim,
	}
	bg.Verificacion.Diferencia = bg.Verificacion.Activos - bg.Verificacion.PasivoMasPatrimonio
	bg.Verificacion.Cuadrado = math.Abs(bg.Verificacion.Diferencia) <= shared.BalanceTolerance
	return bg
}
