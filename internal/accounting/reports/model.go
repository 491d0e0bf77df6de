package reports

import "github.com/clinicamia/contable/internal/accounting/periods"

// CuentaSaldo is one account line inside a statement section.
type CuentaSaldo struct {
	Codigo string  `json:"codigo"`
	Nombre string  `json:"nombre"`
	Saldo  float64 `json:"saldo"`
}

// SeccionBalance groups the current/non-current split of one side of the
// balance sheet.
type SeccionBalance struct {
	Corrientes        []CuentaSaldo `json:"corrientes"`
	NoCorrientes      []CuentaSaldo `json:"noCorrientes"`
	TotalCorrientes   float64       `json:"totalCorrientes"`
	TotalNoCorrientes float64       `json:"totalNoCorrientes"`
	Total             float64       `json:"total"`
}

// VerificacionBalance records the accounting-equation check. Field names
// are fixed by existing consumers of the JSON.
type VerificacionBalance struct {
	Activos             float64 `json:"activos"`
	PasivoMasPatrimonio float64 `json:"pasivoMasPatrimonio"`
	Diferencia          float64 `json:"diferencia"`
	Cuadrado            bool    `json:"cuadrado"`
}

// BalanceGeneral is the balance sheet at the close of (anio, mes). While
// the year is open, income and expense balances land in ResultadoEjercicio
// inside equity.
type BalanceGeneral struct {
	Anio               int                 `json:"anio"`
	Mes                int                 `json:"mes"`
	Periodo            string              `json:"periodo"`
	Activos            SeccionBalance      `json:"activos"`
	Pasivos            SeccionBalance      `json:"pasivos"`
	Patrimonio         []CuentaSaldo       `json:"patrimonio"`
	ResultadoEjercicio float64             `json:"resultadoEjercicio"`
	TotalPatrim        float64             `json:"totalPatrimonio"`
	Verificacion       VerificacionBalance `json:"verificacion"`
}

// EstadoResultados is the income statement at the close of (anio, mes),
// built from the year-to-date balances of income and expense accounts.
type EstadoResultados struct {
	Anio                  int           `json:"anio"`
	Mes                   int           `json:"mes"`
	Periodo               string        `json:"periodo"`
	IngresosOperacionales []CuentaSaldo `json:"ingresosOperacionales"`
	OtrosIngresos         []CuentaSaldo `json:"otrosIngresos"`
	TotalIngresosOper     float64       `json:"totalIngresosOperacionales"`
	TotalOtrosIngresos    float64       `json:"totalOtrosIngresos"`
	TotalIngresos         float64       `json:"totalIngresos"`
	Costos                []CuentaSaldo `json:"costos"`
	TotalCostos           float64       `json:"totalCostos"`
	UtilidadBruta         float64       `json:"utilidadBruta"`
	GastosAdmin           []CuentaSaldo `json:"gastosAdministracion"`
	GastosVentas          []CuentaSaldo `json:"gastosVentas"`
	OtrosGastos           []CuentaSaldo `json:"otrosGastos"`
	TotalGastosOper       float64       `json:"totalGastosOperacionales"`
	TotalOtrosGastos      float64       `json:"totalOtrosGastos"`
	TotalGastos           float64       `json:"totalGastos"`
	UtilidadOperacional   float64       `json:"utilidadOperacional"`
	UtilidadAntesImpuesto float64       `json:"utilidadAntesImpuestos"`
	Impuestos             float64       `json:"impuestos"`
	UtilidadNeta          float64       `json:"utilidadNeta"`
	MargenBruto           float64       `json:"margenBruto"`
	MargenOperacional     float64       `json:"margenOperacional"`
	MargenNeto            float64       `json:"margenNeto"`
}

// FilaBalancePrueba is one row of the trial balance.
type FilaBalancePrueba struct {
	Codigo       string  `json:"codigo"`
	Nombre       string  `json:"nombre"`
	Tipo         string  `json:"tipo"`
	Naturaleza   string  `json:"naturaleza"`
	SaldoInicial float64 `json:"saldoInicial"`
	Debitos      float64 `json:"debitos"`
	Creditos     float64 `json:"creditos"`
	SaldoFinal   float64 `json:"saldoFinal"`
}

// TotalesBalancePrueba splits the opening and closing totals by the
// natural side of each account, alongside the raw movement sums.
type TotalesBalancePrueba struct {
	SaldoInicialDebito  float64 `json:"saldoInicialDebito"`
	SaldoInicialCredito float64 `json:"saldoInicialCredito"`
	Debitos             float64 `json:"debitos"`
	Creditos            float64 `json:"creditos"`
	SaldoFinalDebito    float64 `json:"saldoFinalDebito"`
	SaldoFinalCredito   float64 `json:"saldoFinalCredito"`
}

// BalancePrueba lists the moved accounts at the requested detail level.
type BalancePrueba struct {
	Anio     int                  `json:"anio"`
	Mes      int                  `json:"mes"`
	Periodo  string               `json:"periodo"`
	Nivel    int                  `json:"nivelDetalle"`
	Filas    []FilaBalancePrueba  `json:"cuentas"`
	Totales  TotalesBalancePrueba `json:"totales"`
	Cuadrado bool                 `json:"cuadrado"`
}

// FlujoCaja is the indirect-method cash flow statement.
type FlujoCaja struct {
	Anio                 int     `json:"anio"`
	Mes                  int     `json:"mes"`
	Periodo              string  `json:"periodo"`
	UtilidadNeta         float64 `json:"utilidadNeta"`
	Depreciacion         float64 `json:"depreciacion"`
	VariacionDeudores    float64 `json:"variacionDeudores"`
	VariacionInventarios float64 `json:"variacionInventarios"`
	VariacionPasivosCorr float64 `json:"variacionPasivosCorrientes"`
	FlujoOperacion       float64 `json:"flujoOperacion"`
	FlujoInversion       float64 `json:"flujoInversion"`
	FlujoFinanciacion    float64 `json:"flujoFinanciacion"`
	FlujoNeto            float64 `json:"flujoNeto"`
	EfectivoInicial      float64 `json:"efectivoInicial"`
	EfectivoFinal        float64 `json:"efectivoFinal"`
}

// Indicadores carries the liquidity, leverage, profitability and
// activity ratios.
type Indicadores struct {
	Anio                    int     `json:"anio"`
	Mes                     int     `json:"mes"`
	Periodo                 string  `json:"periodo"`
	RazonCorriente          float64 `json:"razonCorriente"`
	PruebaAcida             float64 `json:"pruebaAcida"`
	CapitalTrabajo          float64 `json:"capitalTrabajo"`
	Endeudamiento           float64 `json:"endeudamiento"`
	ConcentracionCortoPlazo float64 `json:"concentracionCortoPlazo"`
	MargenBruto             float64 `json:"margenBruto"`
	MargenNeto              float64 `json:"margenNeto"`
	MargenOperacional       float64 `json:"margenOperacional"`
	ROA                     float64 `json:"roa"`
	ROE                     float64 `json:"roe"`
	RotacionActivos         float64 `json:"rotacionActivos"`
}

// BalanceComparativo pairs two balance sheets for side-by-side review.
type BalanceComparativo struct {
	Actual   BalanceGeneral `json:"actual"`
	Anterior BalanceGeneral `json:"anterior"`
}

func nombrePeriodo(anio, mes int) string {
	return periods.Nombre(anio, mes)
}
