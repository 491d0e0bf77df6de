package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clinicamia/contable/internal/accounting/shared"
	"github.com/clinicamia/contable/internal/platform/httpx"
)

func (h *Handler) listPeriodos(w http.ResponseWriter, r *http.Request) {
	anio, _ := strconv.Atoi(r.URL.Query().Get("anio"))
	periodos, err := h.periodos.List(r.Context(), anio)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, periodos)
}

func (h *Handler) getPeriodo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	periodo, err := h.periodos.GetByID(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, periodo)
}

func (h *Handler) currentPeriodo(w http.ResponseWriter, r *http.Request) {
	periodo, err := h.periodos.CurrentPeriodo(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, periodo)
}

func (h *Handler) statsPeriodos(w http.ResponseWriter, r *http.Request) {
	stats, err := h.periodos.Stats(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) crearPeriodosAnio(w http.ResponseWriter, r *http.Request) {
	anio, err := strconv.Atoi(chi.URLParam(r, "anio"))
	if err != nil || anio < 2000 || anio > 2100 {
		h.respondErr(w, r, shared.Validationf("año inválido"))
		return
	}
	creados, err := h.periodos.CrearPeriodosAnio(r.Context(), anio)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int{"creados": creados})
}

func (h *Handler) cerrarPeriodo(w http.ResponseWriter, r *http.Request) {
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
	periodo, cierre, err := h.periodos.Cerrar(r.Context(), id, usuario)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.invalidarReportes(r, periodo.Anio, periodo.Mes)
	httpx.JSON(w, http.StatusOK, map[string]any{"periodo": periodo, "cierre": cierre})
}

type reabrirRequest struct {
	Motivo string `json:"motivo" validate:"required"`
}

func (h *Handler) reabrirPeriodo(w http.ResponseWriter, r *http.Request) {
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
	var req reabrirRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondErr(w, r, shared.Validationf("cuerpo JSON inválido"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondErr(w, r, shared.Validationf("el motivo de reapertura es obligatorio"))
		return
	}
	periodo, err := h.periodos.Reabrir(r.Context(), id, usuario, req.Motivo)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.invalidarReportes(r, periodo.Anio, periodo.Mes)
	httpx.JSON(w, http.StatusOK, periodo)
}

func (h *Handler) cerrarAnio(w http.ResponseWriter, r *http.Request) {
	anio, err := strconv.Atoi(chi.URLParam(r, "anio"))
	if err != nil || anio < 2000 || anio > 2100 {
		h.respondErr(w, r, shared.Validationf("año inválido"))
		return
	}
	usuario, err := usuarioID(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	cierre, asiento, err := h.periodos.CerrarAnio(r.Context(), anio, usuario)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.invalidarReportes(r, anio, 12)
	httpx.JSON(w, http.StatusOK, map[string]any{"cierre": cierre, "asientoCierre": asiento})
}

func (h *Handler) invalidarReportes(r *http.Request, anio, mes int) {
	if h.reportes != nil {
		h.reportes.InvalidatePeriodo(r.Context(), anio, mes)
	}
}
