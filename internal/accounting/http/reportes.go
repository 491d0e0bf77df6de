package http

import (
	"net/http"
	"strconv"

	"github.com/clinicamia/contable/internal/platform/httpx"
)

func (h *Handler) balanceGeneral(w http.ResponseWriter, r *http.Request) {
	anio, mes, err := queryPeriodo(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	bg, err := h.reportes.BalanceGeneral(r.Context(), anio, mes)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bg)
}

func (h *Handler) estadoResultados(w http.ResponseWriter, r *http.Request) {
	anio, mes, err := queryPeriodo(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	er, err := h.reportes.EstadoResultados(r.Context(), anio, mes)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, er)
}

func (h *Handler) balancePrueba(w http.ResponseWriter, r *http.Request) {
	anio, mes, err := queryPeriodo(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	nivel, _ := strconv.Atoi(r.URL.Query().Get("nivel"))
	tb, err := h.reportes.BalancePrueba(r.Context(), anio, mes, nivel)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) flujoCaja(w http.ResponseWriter, r *http.Request) {
	anio, mes, err := queryPeriodo(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	fc, err := h.reportes.FlujoCaja(r.Context(), anio, mes)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fc)
}

func (h *Handler) indicadores(w http.ResponseWriter, r *http.Request) {
	anio, mes, err := queryPeriodo(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	ind, err := h.reportes.Indicadores(r.Context(), anio, mes)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ind)
}

func (h *Handler) comparativo(w http.ResponseWriter, r *http.Request) {
	anio, mes, err := queryPeriodo(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	cmp, err := h.reportes.Comparativo(r.Context(), anio, mes)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cmp)
}
