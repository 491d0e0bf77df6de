package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clinicamia/contable/internal/accounting/journals"
	"github.com/clinicamia/contable/internal/accounting/shared"
	_ "github.com/clinicamia/contable/testing"
)

type asientosStub struct {
	asientos map[int64]journals.Asiento
	siigoIDs map[int64]string
}

func newAsientosStub(asientos ...journals.Asiento) *asientosStub {
	s := &asientosStub{
		asientos: make(map[int64]journals.Asiento),
		siigoIDs: make(map[int64]string),
	}
	for _, a := range asientos {
		s.asientos[a.ID] = a
	}
	return s
}

func (s *asientosStub) GetByID(ctx context.Context, id int64) (journals.Asiento, error) {
	a, ok := s.asientos[id]
	if !ok {
		return journals.Asiento{}, shared.NotFoundf("asiento %d no encontrado", id)
	}
	return a, nil
}

func (s *asientosStub) SetSiigoID(ctx context.Context, id int64, siigoID string) error {
	s.siigoIDs[id] = siigoID
	return nil
}

func asientoAprobado() journals.Asiento {
	return journals.Asiento{
		ID:          7,
		Numero:      "AC-2025-00007",
		Fecha:       time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC),
		Tipo:        journals.TipoAutomatico,
		Descripcion: "Causación factura FAC-0101",
		Estado:      journals.EstadoAprobado,
		Lineas: []journals.Linea{
			{CuentaCodigo: "130505", Debito: 238000, Descripcion: "Factura FAC-0101", CentroCostoID: "CC-01"},
			{CuentaCodigo: "413595", Credito: 200000},
			{CuentaCodigo: "240804", Credito: 38000},
		},
	}
}

func TestSyncEntryPostsAndStoresRemoteID(t *testing.T) {
	var got journalRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/journals", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("Authorization"))
		require.Equal(t, "clinicamia", r.Header.Get("Partner-Id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(journalResponse{ID: "siigo-abc-123"})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, AccessKey: "test-key", PartnerID: "clinicamia"})
	repo := newAsientosStub(asientoAprobado())
	svc := NewService(client, repo, nil)

	siigoID, err := svc.SyncEntry(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "siigo-abc-123", siigoID)
	require.Equal(t, "siigo-abc-123", repo.siigoIDs[7])

	require.Equal(t, "2025-03-12", got.Date)
	require.Equal(t, 1030, got.Document.ID)
	require.NotNil(t, got.CostCenter)
	require.Equal(t, "CC-01", got.CostCenter.Code)
	require.Len(t, got.Items, 3)
	require.Equal(t, "130505", got.Items[0].Account.Code)
	require.Equal(t, "Factura FAC-0101", got.Items[0].Description)
	require.Equal(t, 238000.0, got.Items[0].Debit)
	// Lines without their own glosa inherit the asiento's.
	require.Equal(t, "Causación factura FAC-0101", got.Items[1].Description)
}

func TestBuildJournalRequestMapsDocumentTypes(t *testing.T) {
	casos := map[journals.Tipo]int{
		journals.TipoDiario:     1030,
		journals.TipoAutomatico: 1030,
		journals.TipoAjuste:     1035,
		journals.TipoCierre:     1040,
	}
	for tipo, want := range casos {
		a := asientoAprobado()
		a.Tipo = tipo
		require.Equal(t, want, buildJournalRequest(a).Document.ID, "tipo %s", tipo)
	}
}

func TestBuildJournalRequestTruncatesLongDescriptions(t *testing.T) {
	a := asientoAprobado()
	larga := make([]byte, 120)
	for i := range larga {
		larga[i] = 'x'
	}
	a.Lineas[0].Descripcion = string(larga)

	req := buildJournalRequest(a)
	require.Len(t, req.Items[0].Description, 100)
}

func TestSyncEntryRejectionIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cuenta desconocida", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	repo := newAsientosStub(asientoAprobado())
	svc := NewService(client, repo, nil)

	_, err := svc.SyncEntry(context.Background(), 7)
	require.Error(t, err)
	require.True(t, shared.IsValidation(err))
	require.Empty(t, repo.siigoIDs)
}

func TestSyncEntryServerFaultStaysRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mantenimiento", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	repo := newAsientosStub(asientoAprobado())
	svc := NewService(client, repo, nil)

	_, err := svc.SyncEntry(context.Background(), 7)
	require.Error(t, err)
	require.False(t, shared.IsValidation(err))
}

func TestSyncEntrySkipsNonApproved(t *testing.T) {
	borrador := asientoAprobado()
	borrador.Estado = journals.EstadoBorrador
	svc := NewService(nil, newAsientosStub(borrador), nil)

	_, err := svc.SyncEntry(context.Background(), 7)
	require.Error(t, err)
	require.True(t, shared.IsValidation(err))
}

func TestSyncEntrySkipsAlreadySynced(t *testing.T) {
	sincronizado := asientoAprobado()
	sincronizado.SiigoID = "siigo-prev"
	svc := NewService(nil, newAsientosStub(sincronizado), nil)

	_, err := svc.SyncEntry(context.Background(), 7)
	require.Error(t, err)
	require.True(t, shared.IsValidation(err))
}

func TestAPIErrorRetryable(t *testing.T) {
	require.True(t, (&APIError{Status: 500}).Retryable())
	require.True(t, (&APIError{Status: 429}).Retryable())
	require.False(t, (&APIError{Status: 400}).Retryable())
	require.False(t, (&APIError{Status: 422}).Retryable())
}
