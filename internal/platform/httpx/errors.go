package httpx

import (
	"errors"
	"net/http"

	"github.com/clinicamia/contable/internal/accounting/shared"
)

// RespondError maps the accounting error taxonomy to HTTP responses
// using RFC7807. Consistency failures surface as 500: the books
// disagree with themselves and the caller cannot fix that.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case shared.IsNotFound(err):
		Problem(w, http.StatusNotFound, "No encontrado", err.Error())
	case shared.IsValidation(err):
		Problem(w, http.StatusUnprocessableEntity, "Validación fallida", err.Error())
	case errors.Is(err, shared.ErrNumeroConflict):
		Problem(w, http.StatusConflict, "Conflicto", err.Error())
	case shared.IsConsistency(err):
		Problem(w, http.StatusInternalServerError, "Inconsistencia contable", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Error interno", "")
	}
}
