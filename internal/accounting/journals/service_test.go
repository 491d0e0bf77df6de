package journals

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clinicamia/contable/internal/accounting/accounts"
	"github.com/clinicamia/contable/internal/accounting/ledger"
	"github.com/clinicamia/contable/internal/accounting/periods"
	"github.com/clinicamia/contable/internal/accounting/shared"
	_ "github.com/clinicamia/contable/testing"
)

type memoryRepo struct {
	asientos map[int64]Asiento
	lineas   map[int64][]Linea
	periodos map[string]periods.Periodo
	nextID   int64
	nextPer  int64

	applied  []ledger.Movimiento
	reversed []ledger.Movimiento
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		asientos: make(map[int64]Asiento),
		lineas:   make(map[int64][]Linea),
		periodos: make(map[string]periods.Periodo),
	}
}

func periodoKey(anio, mes int) string {
	return fmt.Sprintf("%d-%02d", anio, mes)
}

func (r *memoryRepo) cerrarPeriodo(anio, mes int) {
	key := periodoKey(anio, mes)
	p := r.periodos[key]
	p.Estado = periods.EstadoCerrado
	r.periodos[key] = p
}

func (r *memoryRepo) GetByID(ctx context.Context, id int64) (Asiento, error) {
	a, ok := r.asientos[id]
	if !ok {
		return Asiento{}, shared.NotFoundf("asiento contable %d no encontrado", id)
	}
	a.Lineas = append([]Linea(nil), r.lineas[id]...)
	return a, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Asiento, int, error) {
	var out []Asiento
	for id, a := range r.asientos {
		if filter.Estado != "" && a.Estado != filter.Estado {
			continue
		}
		a.Lineas = append([]Linea(nil), r.lineas[id]...)
		out = append(out, a)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Stats(ctx context.Context, periodoID int64) (Stats, error) {
	st := Stats{PorEstado: map[Estado]int{}, PorTipo: map[Tipo]int{}}
	for _, a := range r.asientos {
		st.Total++
		st.PorEstado[a.Estado]++
		st.PorTipo[a.Tipo]++
	}
	return st, nil
}

func (r *memoryRepo) SetSiigoID(ctx context.Context, id int64, siigoID string) error {
	a, ok := r.asientos[id]
	if !ok {
		return shared.NotFoundf("asiento contable %d no encontrado", id)
	}
	a.SiigoID = siigoID
	r.asientos[id] = a
	return nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (t *memoryTx) NextNumero(ctx context.Context, anio int) (string, error) {
	max := 0
	prefix := fmt.Sprintf("AC-%d-", anio)
	for _, a := range t.repo.asientos {
		var seq int
		if _, err := fmt.Sscanf(a.Numero, prefix+"%05d", &seq); err == nil && seq > max {
			max = seq
		}
	}
	return fmt.Sprintf("%s%05d", prefix, max+1), nil
}

func (t *memoryTx) InsertAsiento(ctx context.Context, a Asiento) (Asiento, error) {
	for _, existente := range t.repo.asientos {
		if existente.Numero == a.Numero {
			return Asiento{}, shared.ErrNumeroConflict
		}
	}
	t.repo.nextID++
	a.ID = t.repo.nextID
	t.repo.asientos[a.ID] = a
	return a, nil
}

func (t *memoryTx) InsertLineas(ctx context.Context, asientoID int64, lineas []Linea) error {
	t.repo.lineas[asientoID] = append([]Linea(nil), lineas...)
	return nil
}

func (t *memoryTx) DeleteLineas(ctx context.Context, asientoID int64) error {
	delete(t.repo.lineas, asientoID)
	return nil
}

func (t *memoryTx) GetAsientoForUpdate(ctx context.Context, id int64) (Asiento, error) {
	return t.repo.GetByID(ctx, id)
}

func (t *memoryTx) UpdateAsiento(ctx context.Context, a Asiento) error {
	stored, ok := t.repo.asientos[a.ID]
	if !ok {
		return shared.NotFoundf("asiento contable %d no encontrado", a.ID)
	}
	stored.Fecha = a.Fecha
	stored.Tipo = a.Tipo
	stored.Descripcion = a.Descripcion
	stored.TotalDebito = a.TotalDebito
	stored.TotalCredito = a.TotalCredito
	stored.PeriodoID = a.PeriodoID
	t.repo.asientos[a.ID] = stored
	return nil
}

func (t *memoryTx) SetAprobado(ctx context.Context, id, usuarioID int64, ts time.Time) error {
	a := t.repo.asientos[id]
	a.Estado = EstadoAprobado
	a.AprobadoPor = &usuarioID
	a.FechaAprobacion = &ts
	t.repo.asientos[id] = a
	return nil
}

func (t *memoryTx) SetAnulado(ctx context.Context, id, usuarioID int64, ts time.Time, motivo string) error {
	a := t.repo.asientos[id]
	a.Estado = EstadoAnulado
	a.AnuladoPor = &usuarioID
	a.FechaAnulacion = &ts
	a.MotivoAnulacion = motivo
	t.repo.asientos[id] = a
	return nil
}

func (t *memoryTx) ResolvePeriodoForUpdate(ctx context.Context, fecha time.Time) (periods.Periodo, error) {
	key := periodoKey(fecha.Year(), int(fecha.Month()))
	if p, ok := t.repo.periodos[key]; ok {
		return p, nil
	}
	t.repo.nextPer++
	p := periods.NewPeriodo(fecha.Year(), int(fecha.Month()))
	p.ID = t.repo.nextPer
	t.repo.periodos[key] = p
	return p, nil
}

func (t *memoryTx) GetPeriodoForUpdate(ctx context.Context, periodoID int64) (periods.Periodo, error) {
	for _, p := range t.repo.periodos {
		if p.ID == periodoID {
			return p, nil
		}
	}
	return periods.Periodo{}, shared.NotFoundf("período contable %d no encontrado", periodoID)
}

func (t *memoryTx) ApplyLedger(ctx context.Context, fecha time.Time, movs []ledger.Movimiento) error {
	t.repo.applied = append(t.repo.applied, movs...)
	return nil
}

func (t *memoryTx) ReverseLedger(ctx context.Context, fecha time.Time, movs []ledger.Movimiento) error {
	t.repo.reversed = append(t.repo.reversed, movs...)
	return nil
}

type catalogStub struct {
	inactivas map[string]bool
}

func (c catalogStub) ValidateActiva(ctx context.Context, codigo string) (accounts.Cuenta, error) {
	if c.inactivas[codigo] {
		return accounts.Cuenta{}, shared.Validationf("cuenta %s está inactiva", codigo)
	}
	return accounts.Cuenta{
		Codigo:     codigo,
		Nombre:     "Cuenta " + codigo,
		Tipo:       accounts.TipoActivo,
		Naturaleza: accounts.NaturalezaDebito,
		Activa:     true,
	}, nil
}

func newTestService(repo *memoryRepo) *Service {
	svc := NewService(repo, catalogStub{}, nil)
	svc.WithNow(func() time.Time {
		return time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)
	})
	return svc
}

func lineasBalanceadas() []LineaInput {
	return []LineaInput{
		{CuentaCodigo: "110505", Debito: 250000},
		{CuentaCodigo: "413595", Credito: 250000},
	}
}

func TestCreateAssignsConsecutiveAndDraft(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	a, err := svc.Create(context.Background(), CreateInput{
		Fecha:       time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Descripcion: "Venta de servicios",
		Lineas:      lineasBalanceadas(),
	}, 7)
	require.NoError(t, err)
	require.Equal(t, "AC-2025-00001", a.Numero)
	require.Equal(t, EstadoBorrador, a.Estado)
	require.Equal(t, TipoDiario, a.Tipo)
	require.Equal(t, 250000.0, a.TotalDebito)
	require.Len(t, a.Lineas, 2)
	require.Equal(t, "Cuenta 110505", a.Lineas[0].CuentaNombre)
	require.Empty(t, repo.applied)

	b, err := svc.Create(context.Background(), CreateInput{
		Fecha:       time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC),
		Descripcion: "Otro asiento",
		Lineas:      lineasBalanceadas(),
	}, 7)
	require.NoError(t, err)
	require.Equal(t, "AC-2025-00002", b.Numero)
}

func TestCreateRejectsUnbalanced(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{
		Fecha:       time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Descripcion: "Descuadrado",
		Lineas: []LineaInput{
			{CuentaCodigo: "110505", Debito: 100},
			{CuentaCodigo: "413595", Credito: 99.50},
		},
	}, 7)
	require.Error(t, err)
	require.True(t, shared.IsValidation(err))
	require.Empty(t, repo.asientos)
}

func TestCreateToleratesRoundingWithinTolerance(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{
		Fecha:       time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Descripcion: "Redondeo",
		Lineas: []LineaInput{
			{CuentaCodigo: "110505", Debito: 100.004},
			{CuentaCodigo: "413595", Credito: 100},
		},
	}, 7)
	require.NoError(t, err)
}

func TestCreateRejectsClosedPeriod(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	fecha := time.Date(2025, time.February, 5, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), CreateInput{
		Fecha: fecha, Descripcion: "previo", Lineas: lineasBalanceadas(),
	}, 7)
	require.NoError(t, err)
	repo.cerrarPeriodo(2025, 2)

	_, err = svc.Create(context.Background(), CreateInput{
		Fecha: fecha, Descripcion: "tardío", Lineas: lineasBalanceadas(),
	}, 7)
	require.Error(t, err)
	require.True(t, shared.IsValidation(err))
	require.Contains(t, err.Error(), "CERRADO")
}

func TestAprobarPostsLedgerOnce(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	a, err := svc.Create(context.Background(), CreateInput{
		Fecha:       time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Descripcion: "Para aprobar",
		Lineas:      lineasBalanceadas(),
	}, 7)
	require.NoError(t, err)

	aprobado, err := svc.Aprobar(context.Background(), a.ID, 9)
	require.NoError(t, err)
	require.Equal(t, EstadoAprobado, aprobado.Estado)
	require.NotNil(t, aprobado.AprobadoPor)
	require.Equal(t, int64(9), *aprobado.AprobadoPor)
	require.Len(t, repo.applied, 2)
	require.Equal(t, "110505", repo.applied[0].CuentaCodigo)
	require.Equal(t, 250000.0, repo.applied[0].Debito)

	_, err = svc.Aprobar(context.Background(), a.ID, 9)
	require.Error(t, err)
	require.True(t, shared.IsValidation(err))
	require.Len(t, repo.applied, 2)
}

func TestAprobarRechazaLineasDescuadradas(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	a, err := svc.Create(context.Background(), CreateInput{
		Fecha:       time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Descripcion: "Cuadrado al crear",
		Lineas:      lineasBalanceadas(),
	}, 7)
	require.NoError(t, err)

	// The stored lines drift after creation; approval must re-check the
	// sums instead of trusting the create-time validation.
	repo.lineas[a.ID][0].Debito = 300000

	_, err = svc.Aprobar(context.Background(), a.ID, 9)
	require.Error(t, err)
	require.True(t, shared.IsValidation(err))
	require.Contains(t, err.Error(), "no cuadra")
	require.Empty(t, repo.applied)

	quieto, err := svc.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, EstadoBorrador, quieto.Estado)
}

func TestAprobarRejectsClosedPeriod(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	a, err := svc.Create(context.Background(), CreateInput{
		Fecha:       time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Descripcion: "Queda en borrador",
		Lineas:      lineasBalanceadas(),
	}, 7)
	require.NoError(t, err)
	repo.cerrarPeriodo(2025, 3)

	_, err = svc.Aprobar(context.Background(), a.ID, 9)
	require.Error(t, err)
	require.True(t, shared.IsValidation(err))
	require.Empty(t, repo.applied)
}

func TestAnularApprovedReversesLedger(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	a, err := svc.Create(context.Background(), CreateInput{
		Fecha:       time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Descripcion: "Para anular",
		Lineas:      lineasBalanceadas(),
	}, 7)
	require.NoError(t, err)
	_, err = svc.Aprobar(context.Background(), a.ID, 9)
	require.NoError(t, err)

	anulado, err := svc.Anular(context.Background(), a.ID, 9, "registro duplicado")
	require.NoError(t, err)
	require.Equal(t, EstadoAnulado, anulado.Estado)
	require.Equal(t, "registro duplicado", anulado.MotivoAnulacion)
	require.Len(t, repo.reversed, 2)

	_, err = svc.Anular(context.Background(), a.ID, 9, "de nuevo")
	require.Error(t, err)
	require.True(t, shared.IsValidation(err))
}

func TestAnularDraftSkipsLedger(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	a, err := svc.Create(context.Background(), CreateInput{
		Fecha:       time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Descripcion: "Borrador",
		Lineas:      lineasBalanceadas(),
	}, 7)
	require.NoError(t, err)

	_, err = svc.Anular(context.Background(), a.ID, 9, "no aplica")
	require.NoError(t, err)
	require.Empty(t, repo.reversed)

	_, err = svc.Anular(context.Background(), a.ID, 9, "")
	require.Error(t, err)
}

func TestRevertirSwapsSides(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	a, err := svc.Create(context.Background(), CreateInput{
		Fecha:       time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Descripcion: "Original",
		Lineas:      lineasBalanceadas(),
	}, 7)
	require.NoError(t, err)
	_, err = svc.Aprobar(context.Background(), a.ID, 9)
	require.NoError(t, err)

	reversion, err := svc.Revertir(context.Background(), a.ID, 9, "error de digitación")
	require.NoError(t, err)
	require.Equal(t, EstadoAprobado, reversion.Estado)
	require.Equal(t, TipoAjuste, reversion.Tipo)
	require.True(t, reversion.EsReversion)
	require.NotNil(t, reversion.AsientoOriginalID)
	require.Equal(t, a.ID, *reversion.AsientoOriginalID)
	require.Equal(t, 250000.0, reversion.Lineas[0].Credito)
	require.Equal(t, 0.0, reversion.Lineas[0].Debito)
	require.Equal(t, 250000.0, reversion.Lineas[1].Debito)

	// Original plus reversal cancel out on the ledger.
	var netoDebito, netoCredito float64
	for _, mov := range repo.applied {
		netoDebito += mov.Debito
		netoCredito += mov.Credito
	}
	require.Equal(t, netoDebito, netoCredito)

	original, err := svc.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, EstadoAprobado, original.Estado)
}

func TestRevertirRejectsNonApproved(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	a, err := svc.Create(context.Background(), CreateInput{
		Fecha:       time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Descripcion: "Borrador",
		Lineas:      lineasBalanceadas(),
	}, 7)
	require.NoError(t, err)

	_, err = svc.Revertir(context.Background(), a.ID, 9, "no procede")
	require.Error(t, err)
	require.True(t, shared.IsValidation(err))
}

func TestPostAsientoCierreBypassesClosedGate(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	fecha := time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), CreateInput{
		Fecha: fecha, Descripcion: "diciembre", Lineas: lineasBalanceadas(),
	}, 7)
	require.NoError(t, err)
	repo.cerrarPeriodo(2025, 12)

	ref, err := svc.PostAsientoCierre(context.Background(), periods.AsientoCierreInput{
		Fecha:       fecha,
		Descripcion: "Cierre de cuentas de resultados año 2025",
		Lineas: []periods.LineaCierre{
			{CuentaCodigo: "413595", Debito: 250000},
			{CuentaCodigo: "3605", Credito: 250000},
		},
		UsuarioID: 1,
	})
	require.NoError(t, err)
	require.NotZero(t, ref.ID)

	cierre, err := svc.GetByID(context.Background(), ref.ID)
	require.NoError(t, err)
	require.Equal(t, TipoCierre, cierre.Tipo)
	require.Equal(t, EstadoAprobado, cierre.Estado)
}

type conflictingRepo struct {
	*memoryRepo
	conflictos int
}

func (r *conflictingRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &conflictTx{memoryTx: memoryTx{repo: r.memoryRepo}, parent: r})
}

type conflictTx struct {
	memoryTx
	parent *conflictingRepo
}

func (t *conflictTx) InsertAsiento(ctx context.Context, a Asiento) (Asiento, error) {
	if t.parent.conflictos > 0 {
		t.parent.conflictos--
		return Asiento{}, shared.ErrNumeroConflict
	}
	return t.memoryTx.InsertAsiento(ctx, a)
}

func TestCreateReintentaTrasConflictoDeNumero(t *testing.T) {
	repo := &conflictingRepo{memoryRepo: newMemoryRepo(), conflictos: 2}
	svc := NewService(repo, catalogStub{}, nil)

	a, err := svc.Create(context.Background(), CreateInput{
		Fecha:       time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Descripcion: "Concurrente",
		Lineas:      lineasBalanceadas(),
	}, 7)
	require.NoError(t, err)
	require.Equal(t, "AC-2025-00001", a.Numero)
	require.Equal(t, 0, repo.conflictos)
	require.Len(t, repo.asientos, 1)
}

func TestCreateAgotaReintentosDeNumero(t *testing.T) {
	repo := &conflictingRepo{memoryRepo: newMemoryRepo(), conflictos: 5}
	svc := NewService(repo, catalogStub{}, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		Fecha:       time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Descripcion: "Concurrente",
		Lineas:      lineasBalanceadas(),
	}, 7)
	require.Error(t, err)
	require.ErrorIs(t, err, shared.ErrNumeroConflict)
	require.Empty(t, repo.asientos)
}

func TestUpdateOnlyDrafts(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	a, err := svc.Create(context.Background(), CreateInput{
		Fecha:       time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Descripcion: "Editable",
		Lineas:      lineasBalanceadas(),
	}, 7)
	require.NoError(t, err)

	nueva := "Descripción corregida"
	actualizado, err := svc.Update(context.Background(), a.ID, UpdateInput{Descripcion: &nueva}, 7)
	require.NoError(t, err)
	require.Equal(t, nueva, actualizado.Descripcion)

	_, err = svc.Aprobar(context.Background(), a.ID, 9)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), a.ID, UpdateInput{Descripcion: &nueva}, 7)
	require.Error(t, err)
	require.True(t, shared.IsValidation(err))
}
