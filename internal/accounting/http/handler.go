// Package http exposes the accounting subsystem as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clinicamia/contable/internal/accounting/accounts"
	"github.com/clinicamia/contable/internal/accounting/journals"
	"github.com/clinicamia/contable/internal/accounting/ledger"
	"github.com/clinicamia/contable/internal/accounting/periods"
	"github.com/clinicamia/contable/internal/accounting/reports"
	"github.com/clinicamia/contable/internal/accounting/shared"
	"github.com/clinicamia/contable/internal/accounting/sources"
	"github.com/clinicamia/contable/internal/platform/httpx"
)

// Enqueuer submits background work; nil disables async syncing.
type Enqueuer interface {
	EnqueueBridgeSync(ctx context.Context, asientoID int64) error
}

// Handler groups the accounting services behind HTTP endpoints.
type Handler struct {
	logger      *slog.Logger
	cuentas     *accounts.Service
	periodos    *periods.Service
	asientos    *journals.Service
	mayor       *ledger.Service
	reportes    *reports.Service
	automaticos *sources.Service
	sync        Enqueuer
	validate    *validator.Validate
}

// NewHandler constructs the accounting HTTP handler.
func NewHandler(
	logger *slog.Logger,
	cuentas *accounts.Service,
	periodos *periods.Service,
	asientos *journals.Service,
	mayor *ledger.Service,
	reportes *reports.Service,
	automaticos *sources.Service,
	sync Enqueuer,
) *Handler {
	return &Handler{
		logger:      logger,
		cuentas:     cuentas,
		periodos:    periodos,
		asientos:    asientos,
		mayor:       mayor,
		reportes:    reportes,
		automaticos: automaticos,
		sync:        sync,
		validate:    validator.New(),
	}
}

// MountRoutes attaches the accounting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/cuentas", func(r chi.Router) {
		r.Get("/", h.listCuentas)
		r.Get("/buscar", h.buscarCuentas)
		r.Get("/{codigo}", h.getCuenta)
	})
	r.Route("/periodos", func(r chi.Router) {
		r.Get("/", h.listPeriodos)
		r.Get("/actual", h.currentPeriodo)
		r.Get("/stats", h.statsPeriodos)
		r.Post("/anio/{anio}", h.crearPeriodosAnio)
		r.Post("/cierre-anual/{anio}", h.cerrarAnio)
		r.Get("/{id}", h.getPeriodo)
		r.Post("/{id}/cerrar", h.cerrarPeriodo)
		r.Post("/{id}/reabrir", h.reabrirPeriodo)
	})
	r.Route("/asientos", func(r chi.Router) {
		r.Get("/", h.listAsientos)
		r.Post("/", h.createAsiento)
		r.Get("/siguiente-numero", h.siguienteNumero)
		r.Get("/stats", h.statsAsientos)
		r.Post("/factura/{facturaId}", h.asientoDesdeFactura)
		r.Post("/pago/{pagoId}", h.asientoDesdePago)
		r.Get("/{id}", h.getAsiento)
		r.Put("/{id}", h.updateAsiento)
		r.Post("/{id}/aprobar", h.aprobarAsiento)
		r.Post("/{id}/anular", h.anularAsiento)
		r.Post("/{id}/revertir", h.revertirAsiento)
		r.Post("/{id}/sincronizar", h.sincronizarAsiento)
	})
	r.Route("/libro-mayor", func(r chi.Router) {
		r.Get("/", h.libroMayor)
		r.Get("/cuenta/{codigo}", h.extractoCuenta)
		r.Post("/recalcular", h.recalcularMayor)
		r.Post("/verificar", h.verificarMayor)
	})
	r.Route("/reportes", func(r chi.Router) {
		r.Get("/balance-general", h.balanceGeneral)
		r.Get("/estado-resultados", h.estadoResultados)
		r.Get("/balance-prueba", h.balancePrueba)
		r.Get("/flujo-caja", h.flujoCaja)
		r.Get("/indicadores", h.indicadores)
		r.Get("/comparativo", h.comparativo)
	})
}

// usuarioID reads the acting user from the gateway-injected header.
func usuarioID(r *http.Request) (int64, error) {
	raw := r.Header.Get("X-Usuario-Id")
	if raw == "" {
		return 0, shared.Validationf("falta el encabezado X-Usuario-Id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("encabezado X-Usuario-Id inválido")
	}
	return id, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("identificador inválido")
	}
	return id, nil
}

// queryPeriodo reads the mandatory anio/mes pair used by ledger and
// report endpoints.
func queryPeriodo(r *http.Request) (int, int, error) {
	anio, err := strconv.Atoi(r.URL.Query().Get("anio"))
	if err != nil || anio < 2000 || anio > 2100 {
		return 0, 0, shared.Validationf("parámetro anio inválido")
	}
	mes, err := strconv.Atoi(r.URL.Query().Get("mes"))
	if err != nil || mes < 1 || mes > 12 {
		return 0, 0, shared.Validationf("parámetro mes inválido")
	}
	return anio, mes, nil
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	if !shared.IsValidation(err) && !shared.IsNotFound(err) {
		h.logger.Error("request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
