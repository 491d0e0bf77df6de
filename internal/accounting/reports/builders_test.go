package reports

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clinicamia/contable/internal/accounting/accounts"
	"github.com/clinicamia/contable/internal/accounting/ledger"
)

func row(codigo, nombre string, tipo accounts.Tipo, nat accounts.Naturaleza, inicio, deb, cred, saldo float64) ledger.Row {
	return ledger.Row{
		Anio: 2025, Mes: 3,
		CuentaCodigo: codigo, CuentaNombre: nombre,
		CuentaTipo: tipo, CuentaNaturaleza: nat,
		SaldoInicial: inicio, Debitos: deb, Creditos: cred, SaldoFinal: saldo,
	}
}

// librosCuadrados is a balanced book: A = P + Pat + (ingresos - gastos).
func librosCuadrados() []ledger.Row {
	return []ledger.Row{
		row("110505", "Caja general", accounts.TipoActivo, accounts.NaturalezaDebito, 0, 1000000, 0, 1000000),
		row("130505", "Clientes nacionales", accounts.TipoActivo, accounts.NaturalezaDebito, 0, 500000, 0, 500000),
		row("152405", "Equipo médico", accounts.TipoActivo, accounts.NaturalezaDebito, 2000000, 0, 0, 2000000),
		row("240804", "IVA por pagar", accounts.TipoPasivo, accounts.NaturalezaCredito, 0, 0, 190000, 190000),
		row("270505", "Obligaciones largo plazo", accounts.TipoPasivo, accounts.NaturalezaCredito, 810000, 0, 0, 810000),
		row("311505", "Capital social", accounts.TipoPatrimonio, accounts.NaturalezaCredito, 2000000, 0, 0, 2000000),
		row("413595", "Servicios médicos", accounts.TipoIngreso, accounts.NaturalezaCredito, 0, 0, 800000, 800000),
		row("510506", "Sueldos", accounts.TipoGasto, accounts.NaturalezaDebito, 0, 300000, 0, 300000),
	}
}

func TestBalanceGeneralCuadraConResultado(t *testing.T) {
	bg := buildBalanceGeneral(2025, 3, librosCuadrados())

	require.Equal(t, "Marzo 2025", bg.Periodo)
	require.Equal(t, 1500000.0, bg.Activos.TotalCorrientes)
	require.Equal(t, 2000000.0, bg.Activos.TotalNoCorrientes)
	require.Equal(t, 3500000.0, bg.Activos.Total)
	require.Equal(t, 190000.0, bg.Pasivos.TotalCorrientes)
	require.Equal(t, 1000000.0, bg.Pasivos.Total)

	// Income and expenses fold into the result-of-the-year figure.
	require.Len(t, bg.Patrimonio, 1)
	require.Equal(t, 500000.0, bg.ResultadoEjercicio)
	require.Equal(t, 2500000.0, bg.TotalPatrim)

	require.Equal(t, 3500000.0, bg.Verificacion.Activos)
	require.Equal(t, 3500000.0, bg.Verificacion.PasivoMasPatrimonio)
	require.True(t, bg.Verificacion.Cuadrado)
	require.InDelta(t, 0, bg.Verificacion.Diferencia, 0.01)
}

func TestBalanceGeneralDetectaDescuadre(t *testing.T) {
	rows := librosCuadrados()
	rows[0].SaldoFinal += 1000

	bg := buildBalanceGeneral(2025, 3, rows)
	require.False(t, bg.Verificacion.Cuadrado)
	require.Equal(t, 1000.0, bg.Verificacion.Diferencia)
}

func TestBalanceGeneralAgrupaCentrosDeCosto(t *testing.T) {
	base := row("110505", "Caja general", accounts.TipoActivo, accounts.NaturalezaDebito, 0, 100, 0, 100)
	sede := base
	sede.CentroCostoID = "sede-norte"
	sede.Debitos = 40
	sede.SaldoFinal = 40

	bg := buildBalanceGeneral(2025, 3, []ledger.Row{base, sede})
	require.Len(t, bg.Activos.Corrientes, 1)
	require.Equal(t, 140.0, bg.Activos.Corrientes[0].Saldo)
}

func TestEstadoResultadosAplicaImpuestoDeRenta(t *testing.T) {
	rows := []ledger.Row{
		row("413595", "Servicios médicos", accounts.TipoIngreso, accounts.NaturalezaCredito, 0, 0, 800000, 800000),
		row("612005", "Costo servicios", accounts.TipoGasto, accounts.NaturalezaDebito, 0, 200000, 0, 200000),
		row("510506", "Sueldos", accounts.TipoGasto, accounts.NaturalezaDebito, 0, 240000, 0, 240000),
		row("523550", "Publicidad", accounts.TipoGasto, accounts.NaturalezaDebito, 0, 60000, 0, 60000),
	}
	er := buildEstadoResultados(2025, 3, rows)

	require.Equal(t, 800000.0, er.TotalIngresos)
	require.Equal(t, 800000.0, er.TotalIngresosOper)
	require.Len(t, er.IngresosOperacionales, 1)
	require.Equal(t, 200000.0, er.TotalCostos)
	require.Equal(t, 600000.0, er.UtilidadBruta)
	require.Len(t, er.GastosAdmin, 1)
	require.Len(t, er.GastosVentas, 1)
	require.Equal(t, 300000.0, er.TotalGastosOper)
	require.Equal(t, 500000.0, er.TotalGastos)
	require.Equal(t, 300000.0, er.UtilidadOperacional)
	require.Equal(t, 105000.0, er.Impuestos)
	require.Equal(t, 195000.0, er.UtilidadNeta)
	require.InDelta(t, 75.0, er.MargenBruto, 0.001)
	require.InDelta(t, 37.5, er.MargenOperacional, 0.001)
	require.InDelta(t, 24.375, er.MargenNeto, 0.001)
}

func TestEstadoResultadosSeparaNoOperacionales(t *testing.T) {
	rows := []ledger.Row{
		row("413595", "Servicios médicos", accounts.TipoIngreso, accounts.NaturalezaCredito, 0, 0, 1000, 1000),
		row("421005", "Rendimientos financieros", accounts.TipoIngreso, accounts.NaturalezaCredito, 0, 0, 200, 200),
		row("612005", "Costo servicios", accounts.TipoGasto, accounts.NaturalezaDebito, 0, 300, 0, 300),
		row("510506", "Sueldos", accounts.TipoGasto, accounts.NaturalezaDebito, 0, 100, 0, 100),
		row("539525", "Gastos extraordinarios", accounts.TipoGasto, accounts.NaturalezaDebito, 0, 50, 0, 50),
	}
	er := buildEstadoResultados(2025, 3, rows)

	require.Equal(t, 1000.0, er.TotalIngresosOper)
	require.Equal(t, 200.0, er.TotalOtrosIngresos)
	require.Equal(t, 1200.0, er.TotalIngresos)
	require.Equal(t, 50.0, er.TotalOtrosGastos)
	require.Equal(t, 450.0, er.TotalGastos)

	// The operating result excludes non-operating items until the
	// pre-tax line.
	require.Equal(t, 700.0, er.UtilidadBruta)
	require.Equal(t, 600.0, er.UtilidadOperacional)
	require.Equal(t, 750.0, er.UtilidadAntesImpuesto)
	require.Equal(t, 262.5, er.Impuestos)
	require.Equal(t, 487.5, er.UtilidadNeta)
	require.InDelta(t, 70.0, er.MargenBruto, 0.001)
	require.InDelta(t, 60.0, er.MargenOperacional, 0.001)
	require.InDelta(t, 40.625, er.MargenNeto, 0.001)
}

func TestEstadoResultadosSinImpuestoEnPerdida(t *testing.T) {
	rows := []ledger.Row{
		row("413595", "Servicios médicos", accounts.TipoIngreso, accounts.NaturalezaCredito, 0, 0, 100, 100),
		row("510506", "Sueldos", accounts.TipoGasto, accounts.NaturalezaDebito, 0, 400, 0, 400),
	}
	er := buildEstadoResultados(2025, 3, rows)
	require.Equal(t, -300.0, er.UtilidadAntesImpuesto)
	require.Zero(t, er.Impuestos)
	require.Equal(t, -300.0, er.UtilidadNeta)
}

func TestEstadoResultadosAcumulaSaldoDelAnio(t *testing.T) {
	// Result accounts close once a year; a month with no movement still
	// reports the year-to-date balance.
	conMovimiento := row("413595", "Servicios médicos", accounts.TipoIngreso, accounts.NaturalezaCredito, 900, 0, 100, 1000)
	er := buildEstadoResultados(2025, 3, []ledger.Row{conMovimiento})
	require.Equal(t, 1000.0, er.TotalIngresos)

	sinMovimiento := row("413595", "Servicios médicos", accounts.TipoIngreso, accounts.NaturalezaCredito, 500, 0, 0, 500)
	er = buildEstadoResultados(2025, 4, []ledger.Row{sinMovimiento})
	require.Equal(t, 500.0, er.TotalIngresos)
}

func TestBalancePruebaTotalesPorNaturaleza(t *testing.T) {
	rows := []ledger.Row{
		row("110505", "Caja general", accounts.TipoActivo, accounts.NaturalezaDebito, 200, 100, 0, 300),
		row("110510", "Caja menor", accounts.TipoActivo, accounts.NaturalezaDebito, 0, 50, 0, 50),
		row("240804", "IVA por pagar", accounts.TipoPasivo, accounts.NaturalezaCredito, 200, 0, 150, 350),
	}

	tb := buildBalancePrueba(2025, 3, 4, rows)
	require.Len(t, tb.Filas, 3)
	require.Equal(t, string(accounts.TipoActivo), tb.Filas[0].Tipo)
	require.Equal(t, 150.0, tb.Totales.Debitos)
	require.Equal(t, 150.0, tb.Totales.Creditos)
	require.Equal(t, 200.0, tb.Totales.SaldoInicialDebito)
	require.Equal(t, 200.0, tb.Totales.SaldoInicialCredito)
	require.Equal(t, 350.0, tb.Totales.SaldoFinalDebito)
	require.Equal(t, 350.0, tb.Totales.SaldoFinalCredito)
	require.True(t, tb.Cuadrado)
}

func TestBalancePruebaFiltraPorNivel(t *testing.T) {
	rows := []ledger.Row{
		row("11", "Disponible", accounts.TipoActivo, accounts.NaturalezaDebito, 0, 100, 0, 100),
		row("1105", "Caja", accounts.TipoActivo, accounts.NaturalezaDebito, 0, 100, 0, 100),
		row("110505", "Caja general", accounts.TipoActivo, accounts.NaturalezaDebito, 0, 900, 0, 900),
	}

	// Level 2 keeps class and group rows; six-digit detail stays out
	// instead of folding into its parent.
	porGrupo := buildBalancePrueba(2025, 3, 2, rows)
	require.Len(t, porGrupo.Filas, 2)
	require.Equal(t, "11", porGrupo.Filas[0].Codigo)
	require.Equal(t, 100.0, porGrupo.Filas[0].Debitos)
	require.Equal(t, "1105", porGrupo.Filas[1].Codigo)
	require.Equal(t, 200.0, porGrupo.Totales.Debitos)

	porClase := buildBalancePrueba(2025, 3, 1, rows)
	require.Len(t, porClase.Filas, 1)
	require.Equal(t, "11", porClase.Filas[0].Codigo)

	detalle := buildBalancePrueba(2025, 3, 4, rows)
	require.Len(t, detalle.Filas, 3)
}

func TestBalancePruebaAgrupaCentrosDeCosto(t *testing.T) {
	base := row("110505", "Caja general", accounts.TipoActivo, accounts.NaturalezaDebito, 0, 60, 0, 60)
	sede := base
	sede.CentroCostoID = "sede-norte"
	sede.Debitos = 40
	sede.SaldoFinal = 40

	tb := buildBalancePrueba(2025, 3, 4, []ledger.Row{base, sede})
	require.Len(t, tb.Filas, 1)
	require.Equal(t, 100.0, tb.Filas[0].Debitos)
	require.Equal(t, 100.0, tb.Filas[0].SaldoFinal)
}

func TestBalancePruebaNivelInvalidoCaeADetalle(t *testing.T) {
	tb := buildBalancePrueba(2025, 3, 9, nil)
	require.Equal(t, 4, tb.Nivel)
}

func TestFlujoCajaMetodoIndirecto(t *testing.T) {
	rows := []ledger.Row{
		row("110505", "Caja general", accounts.TipoActivo, accounts.NaturalezaDebito, 100, 80, 0, 180),
		row("130505", "Clientes nacionales", accounts.TipoActivo, accounts.NaturalezaDebito, 50, 20, 0, 70),
		row("240804", "IVA por pagar", accounts.TipoPasivo, accounts.NaturalezaCredito, 30, 0, 30, 60),
		row("413595", "Servicios médicos", accounts.TipoIngreso, accounts.NaturalezaCredito, 0, 0, 200, 200),
		row("510506", "Sueldos", accounts.TipoGasto, accounts.NaturalezaDebito, 0, 90, 0, 90),
		row("516005", "Depreciación equipo", accounts.TipoGasto, accounts.NaturalezaDebito, 0, 10, 0, 10),
	}
	fc := buildFlujoCaja(2025, 3, rows)

	// PL: 200 ingresos, 100 gastos admin, 35% de impuesto sobre 100.
	require.Equal(t, 65.0, fc.UtilidadNeta)
	require.Equal(t, 10.0, fc.Depreciacion)
	require.Equal(t, 20.0, fc.VariacionDeudores)
	require.Equal(t, 30.0, fc.VariacionPasivosCorr)
	require.Equal(t, 85.0, fc.FlujoOperacion)
	require.Zero(t, fc.FlujoInversion)
	require.Zero(t, fc.FlujoFinanciacion)
	require.Equal(t, 85.0, fc.FlujoNeto)
	require.Equal(t, 100.0, fc.EfectivoInicial)
	require.Equal(t, 180.0, fc.EfectivoFinal)
}

func TestIndicadoresLiquidezYEndeudamiento(t *testing.T) {
	rows := []ledger.Row{
		row("110505", "Caja general", accounts.TipoActivo, accounts.NaturalezaDebito, 0, 200, 0, 200),
		row("143505", "Inventario insumos", accounts.TipoActivo, accounts.NaturalezaDebito, 0, 100, 0, 100),
		row("240804", "IVA por pagar", accounts.TipoPasivo, accounts.NaturalezaCredito, 0, 0, 150, 150),
	}
	ind := buildIndicadores(2025, 3, rows)

	require.InDelta(t, 2.0, ind.RazonCorriente, 0.001)
	require.InDelta(t, 1.3333, ind.PruebaAcida, 0.001)
	require.Equal(t, 150.0, ind.CapitalTrabajo)
	require.InDelta(t, 50.0, ind.Endeudamiento, 0.001)
}

func TestIndicadoresRentabilidadYActividad(t *testing.T) {
	ind := buildIndicadores(2025, 3, librosCuadrados())

	// Resultado: 800000 de ingresos, 300000 de gastos, 35% de impuesto.
	require.InDelta(t, 100.0, ind.MargenBruto, 0.001)
	require.InDelta(t, 62.5, ind.MargenOperacional, 0.001)
	require.InDelta(t, 40.625, ind.MargenNeto, 0.001)
	require.InDelta(t, 9.2857, ind.ROA, 0.001)
	require.InDelta(t, 13.0, ind.ROE, 0.001)
	require.InDelta(t, 0.2286, ind.RotacionActivos, 0.001)
	require.InDelta(t, 19.0, ind.ConcentracionCortoPlazo, 0.001)
}

func TestIndicadoresSinPasivosNoDividePorCero(t *testing.T) {
	rows := []ledger.Row{
		row("110505", "Caja general", accounts.TipoActivo, accounts.NaturalezaDebito, 0, 200, 0, 200),
	}
	ind := buildIndicadores(2025, 3, rows)
	require.Zero(t, ind.RazonCorriente)
	require.Zero(t, ind.PruebaAcida)
	require.Zero(t, ind.ConcentracionCortoPlazo)
	require.Zero(t, ind.ROE)
}
