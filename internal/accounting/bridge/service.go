package bridge

import (
	"context"
	"errors"
	"log/slog"

	"github.com/clinicamia/contable/internal/accounting/journals"
	"github.com/clinicamia/contable/internal/accounting/shared"
)

// Asientos is the slice of the journal manager the sync needs.
type Asientos interface {
	GetByID(ctx context.Context, id int64) (journals.Asiento, error)
	SetSiigoID(ctx context.Context, id int64, siigoID string) error
}

// Poster is satisfied by *Client; tests plug in a fake.
type Poster interface {
	PostJournal(ctx context.Context, req journalRequest) (string, error)
}

// Service mirrors approved asientos into the external accounting system.
// A sync failure never blocks local bookkeeping; callers retry it from
// the job queue.
type Service struct {
	client   Poster
	asientos Asientos
	logger   *slog.Logger
}

func NewService(client Poster, asientos Asientos, logger *slog.Logger) *Service {
	return &Service{client: client, asientos: asientos, logger: logger}
}

// SyncEntry pushes one approved asiento. Already-synced and non-approved
// entries are validation failures so the job queue drops them instead of
// retrying.
func (s *Service) SyncEntry(ctx context.Context, asientoID int64) (string, error) {
	a, err := s.asientos.GetByID(ctx, asientoID)
	if err != nil {
		return "", err
	}
	if a.Estado != journals.EstadoAprobado {
		return "", shared.Validationf("el asiento %s está %s; solo se sincronizan aprobados", a.Numero, a.Estado)
	}
	if a.SiigoID != "" {
		return "", shared.Validationf("el asiento %s ya está sincronizado (%s)", a.Numero, a.SiigoID)
	}

	req := buildJournalRequest(a)

	siigoID, err := s.client.PostJournal(ctx, req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			// The remote rejected the entry outright; retrying the same
			// payload cannot help.
			return "", shared.Validationf("siigo rechazó el asiento %s: %s", a.Numero, apiErr.Body)
		}
		return "", err
	}
	if err := s.asientos.SetSiigoID(ctx, asientoID, siigoID); err != nil {
		return "", err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "asiento sincronizado con siigo",
			slog.String("numero", a.Numero), slog.String("siigo_id", siigoID))
	}
	return siigoID, nil
}

// buildJournalRequest shapes the asiento as a Siigo journal voucher. The
// cost center rides on the header, taken from the first line that has one.
func buildJournalRequest(a journals.Asiento) journalRequest {
	req := journalRequest{
		Document: journalDocument{ID: documentTypeID(a.Tipo)},
		Date:     a.Fecha.Format("2006-01-02"),
	}
	for _, l := range a.Lineas {
		if req.CostCenter == nil && l.CentroCostoID != "" {
			req.CostCenter = &journalCostCenter{Code: l.CentroCostoID}
		}
		desc := l.Descripcion
		if desc == "" {
			desc = a.Descripcion
		}
		if len(desc) > 100 {
			desc = desc[:100]
		}
		req.Items = append(req.Items, journalItem{
			Account:     journalAccount{Code: l.CuentaCodigo},
			Description: desc,
			Debit:       l.Debito,
			Credit:      l.Credito,
		})
	}
	return req
}

// documentTypeID maps the asiento type onto the remote voucher catalog.
func documentTypeID(tipo journals.Tipo) int {
	switch tipo {
	case journals.TipoAjuste:
		return 1035
	case journals.TipoCierre:
		return 1040
	default:
		return 1030
	}
}
