package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinicamia/contable/internal/platform/httpx"
)

func (h *Handler) libroMayor(w http.ResponseWriter, r *http.Request) {
	anio, mes, err := queryPeriodo(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	rows, err := h.mayor.RowsForPeriodo(r.Context(), anio, mes)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) extractoCuenta(w http.ResponseWriter, r *http.Request) {
	anio, mes, err := queryPeriodo(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	extracto, err := h.mayor.ExtractoCuenta(r.Context(), chi.URLParam(r, "codigo"), anio, mes)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, extracto)
}

func (h *Handler) recalcularMayor(w http.ResponseWriter, r *http.Request) {
	anio, mes, err := queryPeriodo(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	cuentas, err := h.mayor.RecalcularPeriodo(r.Context(), anio, mes)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.invalidarReportes(r, anio, mes)
	httpx.JSON(w, http.StatusOK, map[string]int{"cuentas": cuentas})
}

func (h *Handler) verificarMayor(w http.ResponseWriter, r *http.Request) {
	anio, mes, err := queryPeriodo(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := h.mayor.VerificarPeriodo(r.Context(), anio, mes); err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"consistente": true})
}
