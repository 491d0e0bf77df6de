package reports

import "strings"

// PUC classification prefixes. Statements bucket accounts by the first
// digits of their code following the Colombian chart of accounts.
const (
	prefijoDisponible   = "11"
	prefijoDeudores     = "13"
	prefijoInventarios  = "14"
	cuentaDepreciacion  = "5160"
	prefijoGastosAdmin  = "51"
	prefijoGastosVentas = "52"
	prefijoIngresosOper = "41"
)

var (
	prefijosActivoCorriente = []string{"11", "12", "13", "14"}
	prefijosPasivoCorriente = []string{"21", "22", "23", "24", "25"}
)

func tienePrefijo(codigo string, prefijos ...string) bool {
	for _, p := range prefijos {
		if strings.HasPrefix(codigo, p) {
			return true
		}
	}
	return false
}

// esActivoCorriente reports whether an asset account is short term
// (disponible, inversiones, deudores, inventarios).
func esActivoCorriente(codigo string) bool {
	return tienePrefijo(codigo, prefijosActivoCorriente...)
}

// esPasivoCorriente reports whether a liability is due within the year.
func esPasivoCorriente(codigo string) bool {
	return tienePrefijo(codigo, prefijosPasivoCorriente...)
}

func esIngresoOperacional(codigo string) bool {
	return strings.HasPrefix(codigo, prefijoIngresosOper)
}

func esCosto(codigo string) bool {
	return strings.HasPrefix(codigo, "6")
}

func esGastoAdmin(codigo string) bool {
	return strings.HasPrefix(codigo, prefijoGastosAdmin)
}

func esGastoVentas(codigo string) bool {
	return strings.HasPrefix(codigo, prefijoGastosVentas)
}
