package reports

import (
	"math"
	"sort"

	"github.com/clinicamia/contable/internal/accounting/accounts"
	"github.com/clinicamia/contable/internal/accounting/ledger"
	"github.com/clinicamia/contable/internal/accounting/shared"
)

// buildBalancePrueba assembles the trial balance at the requested detail
// level. PUC codes grow two digits per level, so a level of n keeps the
// accounts whose code is at most 2n characters long; cost-center splits
// of the same account fold into one row.
func buildBalancePrueba(anio, mes, nivel int, rows []ledger.Row) BalancePrueba {
	if nivel < 1 || nivel > 4 {
		nivel = 4
	}
	largo := nivel * 2

	porCodigo := make(map[string]*FilaBalancePrueba)
	orden := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row.CuentaCodigo) > largo {
			continue
		}
		fila, ok := porCodigo[row.CuentaCodigo]
		if !ok {
			fila = &FilaBalancePrueba{
				Codigo:     row.CuentaCodigo,
				Nombre:     row.CuentaNombre,
				Tipo:       string(row.CuentaTipo),
				Naturaleza: string(row.CuentaNaturaleza),
			}
			porCodigo[row.CuentaCodigo] = fila
			orden = append(orden, row.CuentaCodigo)
		}
		fila.SaldoInicial += row.SaldoInicial
		fila.Debitos += row.Debitos
		fila.Creditos += row.Creditos
		fila.SaldoFinal += row.SaldoFinal
	}
	sort.Strings(orden)

	tb := BalancePrueba{Anio: anio, Mes: mes, Periodo: nombrePeriodo(anio, mes), Nivel: nivel}
	for _, codigo := range orden {
		fila := porCodigo[codigo]
		tb.Filas = append(tb.Filas, *fila)
		tb.Totales.Debitos += fila.Debitos
		tb.Totales.Creditos += fila.Creditos
		if fila.Naturaleza == string(accounts.NaturalezaDebito) {
			tb.Totales.SaldoInicialDebito += math.Max(fila.SaldoInicial, 0)
			tb.Totales.SaldoFinalDebito += math.Max(fila.SaldoFinal, 0)
		} else {
			tb.Totales.SaldoInicialCredito += math.Max(fila.SaldoInicial, 0)
			tb.Totales.SaldoFinalCredito += math.Max(fila.SaldoFinal, 0)
		}
	}
	tb.Cuadrado = math.Abs(tb.Totales.Debitos-tb.Totales.Creditos) <= shared.BalanceTolerance
	return tb
}
