package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinicamia/contable/internal/accounting/accounts"
	"github.com/clinicamia/contable/internal/accounting/shared"
	"github.com/clinicamia/contable/internal/platform/httpx"
)

func (h *Handler) listCuentas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if tipo := q.Get("tipo"); tipo != "" {
		cuentas, err := h.cuentas.ListByTipo(r.Context(), accounts.Tipo(tipo))
		if err != nil {
			h.respondErr(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, cuentas)
		return
	}
	cuentas, err := h.cuentas.List(r.Context(), q.Get("soloActivas") == "true")
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cuentas)
}

func (h *Handler) buscarCuentas(w http.ResponseWriter, r *http.Request) {
	prefijo := r.URL.Query().Get("prefijo")
	if prefijo == "" {
		h.respondErr(w, r, shared.Validationf("parámetro prefijo requerido"))
		return
	}
	cuentas, err := h.cuentas.Search(r.Context(), prefijo)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cuentas)
}

func (h *Handler) getCuenta(w http.ResponseWriter, r *http.Request) {
	cuenta, err := h.cuentas.GetByCodigo(r.Context(), chi.URLParam(r, "codigo"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cuenta)
}
