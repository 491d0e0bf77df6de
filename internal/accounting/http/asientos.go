package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicamia/contable/internal/accounting/journals"
	"github.com/clinicamia/contable/internal/accounting/shared"
	"github.com/clinicamia/contable/internal/platform/httpx"
)

func (h *Handler) listAsientos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := journals.ListFilter{
		Estado: journals.Estado(q.Get("estado")),
		Tipo:   journals.Tipo(q.Get("tipo")),
		Search: q.Get("buscar"),
	}
	filter.PeriodoID, _ = strconv.ParseInt(q.Get("periodoId"), 10, 64)
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	if desde, err := time.Parse("2006-01-02", q.Get("fechaInicio")); err == nil {
		if hasta, err := time.Parse("2006-01-02", q.Get("fechaFin")); err == nil {
			filter.FechaInicio = &desde
			filter.FechaFin = &hasta
		}
	}
	page, err := h.asientos.List(r.Context(), filter)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) getAsiento(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	asiento, err := h.asientos.GetByID(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, asiento)
}

func (h *Handler) createAsiento(w http.ResponseWriter, r *http.Request) {
	usuario, err := usuarioID(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	var in journals.CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.respondErr(w, r, shared.Validationf("cuerpo JSON inválido"))
		return
	}
	if err := h.validate.Struct(in); err != nil {
		h.respondErr(w, r, shared.Validationf("%v", err))
		return
	}
	asiento, err := h.asientos.Create(r.Context(), in, usuario)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, asiento)
}

func (h *Handler) updateAsiento(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	usuario, err := usuarioID(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	var in journals.UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.respondErr(w, r, shared.Validationf("cuerpo JSON inválido"))
		return
	}
	asiento, err := h.asientos.Update(r.Context(), id, in, usuario)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, asiento)
}

func (h *Handler) aprobarAsiento(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	usuario, err := usuarioID(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	asiento, err := h.asientos.Aprobar(r.Context(), id, usuario)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.invalidarReportes(r, asiento.Fecha.Year(), int(asiento.Fecha.Month()))
	h.encolarSync(r, asiento.ID)
	httpx.JSON(w, http.StatusOK, asiento)
}

type motivoRequest struct {
	Motivo string `json:"motivo" validate:"required"`
}

func (h *Handler) anularAsiento(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	usuario, err := usuarioID(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	var req motivoRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondErr(w, r, shared.Validationf("cuerpo JSON inválido"))
		return
	}
	asiento, err := h.asientos.Anular(r.Context(), id, usuario, req.Motivo)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.invalidarReportes(r, asiento.Fecha.Year(), int(asiento.Fecha.Month()))
	httpx.JSON(w, http.StatusOK, asiento)
}

func (h *Handler) revertirAsiento(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	usuario, err := usuarioID(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	var req motivoRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondErr(w, r, shared.Validationf("cuerpo JSON inválido"))
		return
	}
	reversion, err := h.asientos.Revertir(r.Context(), id, usuario, req.Motivo)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.invalidarReportes(r, reversion.Fecha.Year(), int(reversion.Fecha.Month()))
	httpx.JSON(w, http.StatusCreated, reversion)
}

func (h *Handler) sincronizarAsiento(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if h.sync == nil {
		h.respondErr(w, r, shared.Validationf("la sincronización externa no está habilitada"))
		return
	}
	if err := h.sync.EnqueueBridgeSync(r.Context(), id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"estado": "encolado"})
}

func (h *Handler) siguienteNumero(w http.ResponseWriter, r *http.Request) {
	anio, err := strconv.Atoi(r.URL.Query().Get("anio"))
	if err != nil {
		anio = time.Now().Year()
	}
	numero, err := h.asientos.GetNextNumero(r.Context(), anio)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"numero": numero})
}

func (h *Handler) statsAsientos(w http.ResponseWriter, r *http.Request) {
	periodoID, _ := strconv.ParseInt(r.URL.Query().Get("periodoId"), 10, 64)
	stats, err := h.asientos.Stats(r.Context(), periodoID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) asientoDesdeFactura(w http.ResponseWriter, r *http.Request) {
	usuario, err := usuarioID(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	facturaID, err := uuid.Parse(chi.URLParam(r, "facturaId"))
	if err != nil {
		h.respondErr(w, r, shared.Validationf("identificador de factura inválido"))
		return
	}
	asiento, err := h.automaticos.CreateFromFactura(r.Context(), facturaID, usuario)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, asiento)
}

func (h *Handler) asientoDesdePago(w http.ResponseWriter, r *http.Request) {
	usuario, err := usuarioID(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	pagoID, err := uuid.Parse(chi.URLParam(r, "pagoId"))
	if err != nil {
		h.respondErr(w, r, shared.Validationf("identificador de pago inválido"))
		return
	}
	asiento, err := h.automaticos.CreateFromPago(r.Context(), pagoID, usuario)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, asiento)
}

// encolarSync schedules the external sync after an approval; a full
// queue must not fail the originating request.
func (h *Handler) encolarSync(r *http.Request, asientoID int64) {
	if h.sync == nil {
		return
	}
	if err := h.sync.EnqueueBridgeSync(r.Context(), asientoID); err != nil {
		h.logger.Warn("no se pudo encolar la sincronización",
			slog.Int64("asiento_id", asientoID), slog.Any("error", err))
	}
}
