package periods

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clinicamia/contable/internal/accounting/accounts"
	"github.com/clinicamia/contable/internal/accounting/ledger"
	"github.com/clinicamia/contable/internal/accounting/shared"
	_ "github.com/clinicamia/contable/testing"
)

type memoryRepo struct {
	periodos   map[int64]Periodo
	cierres    []Cierre
	borradores map[int64]int
	nextID     int64
	nextCierre int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		periodos:   make(map[int64]Periodo),
		borradores: make(map[int64]int),
	}
}

func (r *memoryRepo) seed(anio, mes int, estado Estado) Periodo {
	r.nextID++
	p := NewPeriodo(anio, mes)
	p.ID = r.nextID
	p.Estado = estado
	r.periodos[p.ID] = p
	return p
}

func (r *memoryRepo) GetByID(ctx context.Context, id int64) (Periodo, error) {
	p, ok := r.periodos[id]
	if !ok {
		return Periodo{}, shared.NotFoundf("período contable %d no encontrado", id)
	}
	return p, nil
}

func (r *memoryRepo) GetByAnioMes(ctx context.Context, anio, mes int) (Periodo, error) {
	for _, p := range r.periodos {
		if p.Anio == anio && p.Mes == mes {
			return p, nil
		}
	}
	return Periodo{}, shared.NotFoundf("período %s no encontrado", Nombre(anio, mes))
}

func (r *memoryRepo) List(ctx context.Context, anio int) ([]Periodo, error) {
	return r.ListAnio(ctx, anio)
}

func (r *memoryRepo) ListAnio(ctx context.Context, anio int) ([]Periodo, error) {
	var out []Periodo
	for mes := 1; mes <= 12; mes++ {
		for _, p := range r.periodos {
			if p.Anio == anio && p.Mes == mes {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (r *memoryRepo) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	for _, p := range r.periodos {
		st.Total++
		if p.Estado == EstadoAbierto {
			st.Abiertos++
		} else {
			st.Cerrados++
		}
	}
	return st, nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (t *memoryTx) GetForUpdate(ctx context.Context, id int64) (Periodo, error) {
	return t.repo.GetByID(ctx, id)
}

func (t *memoryTx) GetByAnioMesForUpdate(ctx context.Context, anio, mes int) (Periodo, error) {
	return t.repo.GetByAnioMes(ctx, anio, mes)
}

func (t *memoryTx) Insert(ctx context.Context, p Periodo) (Periodo, error) {
	if existente, err := t.repo.GetByAnioMes(ctx, p.Anio, p.Mes); err == nil {
		return existente, nil
	}
	t.repo.nextID++
	p.ID = t.repo.nextID
	t.repo.periodos[p.ID] = p
	return p, nil
}

func (t *memoryTx) CountAsientosBorrador(ctx context.Context, periodoID int64) (int, error) {
	return t.repo.borradores[periodoID], nil
}

func (t *memoryTx) CountPosterioresCerrados(ctx context.Context, anio, mes int) (int, error) {
	n := 0
	for _, p := range t.repo.periodos {
		if p.Estado != EstadoCerrado {
			continue
		}
		if p.Anio > anio || (p.Anio == anio && p.Mes > mes) {
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) SetCerrado(ctx context.Context, id int64, fechaCierre time.Time, usuarioID int64) error {
	p := t.repo.periodos[id]
	p.Estado = EstadoCerrado
	p.FechaCierre = &fechaCierre
	p.CerradoPor = &usuarioID
	t.repo.periodos[id] = p
	return nil
}

func (t *memoryTx) SetAbierto(ctx context.Context, id int64) error {
	p := t.repo.periodos[id]
	p.Estado = EstadoAbierto
	p.FechaCierre = nil
	p.CerradoPor = nil
	t.repo.periodos[id] = p
	return nil
}

func (t *memoryTx) InsertCierre(ctx context.Context, c Cierre) (Cierre, error) {
	t.repo.nextCierre++
	c.ID = t.repo.nextCierre
	t.repo.cierres = append(t.repo.cierres, c)
	return c, nil
}

func (t *memoryTx) MarkCierresReversados(ctx context.Context, periodoID, usuarioID int64, motivo string) error {
	for i := range t.repo.cierres {
		if t.repo.cierres[i].PeriodoID == periodoID && t.repo.cierres[i].Estado == CierreVigente {
			t.repo.cierres[i].Estado = CierreReversado
			t.repo.cierres[i].ReversadoPor = &usuarioID
		}
	}
	return nil
}

type ledgerStub struct {
	saldos       map[accounts.Tipo]float64
	rows         []ledger.Row
	recalculados []string
}

func (l *ledgerStub) RecalcularPeriodo(ctx context.Context, anio, mes int) (int, error) {
	l.recalculados = append(l.recalculados, Nombre(anio, mes))
	return len(l.rows), nil
}

func (l *ledgerStub) SaldosPorTipo(ctx context.Context, anio, mes int) (map[accounts.Tipo]float64, error) {
	return l.saldos, nil
}

func (l *ledgerStub) RowsForPeriodo(ctx context.Context, anio, mes int, tipos ...accounts.Tipo) ([]ledger.Row, error) {
	if len(tipos) == 0 {
		return l.rows, nil
	}
	var out []ledger.Row
	for _, row := range l.rows {
		for _, tipo := range tipos {
			if row.CuentaTipo == tipo {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

type asientosStub struct {
	inputs []AsientoCierreInput
}

func (a *asientosStub) PostAsientoCierre(ctx context.Context, in AsientoCierreInput) (AsientoCierreRef, error) {
	a.inputs = append(a.inputs, in)
	return AsientoCierreRef{ID: int64(len(a.inputs)), Numero: "AC-2025-00099"}, nil
}

func newTestService(repo *memoryRepo, lg *ledgerStub) *Service {
	svc := NewService(repo, lg, nil)
	svc.WithNow(func() time.Time {
		return time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)
	})
	return svc
}

func TestCerrarSnapshotsAndFlipsState(t *testing.T) {
	repo := newMemoryRepo()
	lg := &ledgerStub{saldos: map[accounts.Tipo]float64{
		accounts.TipoActivo:  900,
		accounts.TipoPasivo:  300,
		accounts.TipoIngreso: 500,
		accounts.TipoGasto:   200,
	}}
	svc := newTestService(repo, lg)
	p := repo.seed(2025, 3, EstadoAbierto)

	cerrado, cierre, err := svc.Cerrar(context.Background(), p.ID, 4)
	require.NoError(t, err)
	require.Equal(t, EstadoCerrado, cerrado.Estado)
	require.Equal(t, CierreMensual, cierre.Tipo)
	require.Equal(t, 300.0, cierre.UtilidadPerdida)
	require.Len(t, lg.recalculados, 1)

	_, _, err = svc.Cerrar(context.Background(), p.ID, 4)
	require.Error(t, err)
	require.True(t, shared.IsValidation(err))
}

func TestCerrarBlockedByDrafts(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &ledgerStub{})
	p := repo.seed(2025, 3, EstadoAbierto)
	repo.borradores[p.ID] = 2

	_, _, err := svc.Cerrar(context.Background(), p.ID, 4)
	require.Error(t, err)
	require.True(t, shared.IsValidation(err))
	require.Contains(t, err.Error(), "2 asientos en borrador")
	require.Equal(t, EstadoAbierto, repo.periodos[p.ID].Estado)
}

func TestReabrirNewestFirst(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &ledgerStub{})
	marzo := repo.seed(2025, 3, EstadoCerrado)
	repo.seed(2025, 4, EstadoCerrado)

	_, err := svc.Reabrir(context.Background(), marzo.ID, 4, "ajuste tardío")
	require.Error(t, err)
	require.True(t, shared.IsValidation(err))
	require.Contains(t, err.Error(), "posteriores")
}

func TestReabrirMarksCierresReversados(t *testing.T) {
	repo := newMemoryRepo()
	lg := &ledgerStub{saldos: map[accounts.Tipo]float64{}}
	svc := newTestService(repo, lg)
	p := repo.seed(2025, 3, EstadoAbierto)

	_, _, err := svc.Cerrar(context.Background(), p.ID, 4)
	require.NoError(t, err)

	reabierto, err := svc.Reabrir(context.Background(), p.ID, 4, "corrección")
	require.NoError(t, err)
	require.Equal(t, EstadoAbierto, reabierto.Estado)
	require.Equal(t, CierreReversado, repo.cierres[0].Estado)
}

func TestCerrarAnioRequiresAllClosed(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &ledgerStub{})
	asientos := &asientosStub{}
	svc.WithAsientosCierre(asientos)
	for mes := 1; mes <= 11; mes++ {
		repo.seed(2025, mes, EstadoCerrado)
	}
	repo.seed(2025, 12, EstadoAbierto)

	_, _, err := svc.CerrarAnio(context.Background(), 2025, 4)
	require.Error(t, err)
	require.True(t, shared.IsValidation(err))
	require.Empty(t, asientos.inputs)
}

func TestCerrarAnioZeroesResultsIntoEquity(t *testing.T) {
	repo := newMemoryRepo()
	lg := &ledgerStub{
		saldos: map[accounts.Tipo]float64{
			accounts.TipoIngreso: 800,
			accounts.TipoGasto:   300,
		},
		rows: []ledger.Row{
			{CuentaCodigo: "413595", CuentaNombre: "Servicios médicos", CuentaTipo: accounts.TipoIngreso,
				CuentaNaturaleza: accounts.NaturalezaCredito, SaldoFinal: 800},
			{CuentaCodigo: "510506", CuentaNombre: "Sueldos", CuentaTipo: accounts.TipoGasto,
				CuentaNaturaleza: accounts.NaturalezaDebito, SaldoFinal: 300},
		},
	}
	svc := newTestService(repo, lg)
	asientos := &asientosStub{}
	svc.WithAsientosCierre(asientos)
	for mes := 1; mes <= 12; mes++ {
		repo.seed(2025, mes, EstadoCerrado)
	}

	cierre, ref, err := svc.CerrarAnio(context.Background(), 2025, 4)
	require.NoError(t, err)
	require.Equal(t, CierreAnual, cierre.Tipo)
	require.Equal(t, 500.0, cierre.UtilidadPerdida)
	require.Equal(t, "AC-2025-00099", ref.Numero)

	require.Len(t, asientos.inputs, 1)
	lineas := asientos.inputs[0].Lineas
	require.Len(t, lineas, 3)
	require.Equal(t, "413595", lineas[0].CuentaCodigo)
	require.Equal(t, 800.0, lineas[0].Debito)
	require.Equal(t, "510506", lineas[1].CuentaCodigo)
	require.Equal(t, 300.0, lineas[1].Credito)
	require.Equal(t, "3605", lineas[2].CuentaCodigo)
	require.Equal(t, 500.0, lineas[2].Credito)

	var totalDebito, totalCredito float64
	for _, l := range lineas {
		totalDebito += l.Debito
		totalCredito += l.Credito
	}
	require.InDelta(t, totalDebito, totalCredito, shared.BalanceTolerance)
}

func TestCerrarAnioLossDebitsPerdida(t *testing.T) {
	repo := newMemoryRepo()
	lg := &ledgerStub{
		saldos: map[accounts.Tipo]float64{
			accounts.TipoIngreso: 200,
			accounts.TipoGasto:   500,
		},
		rows: []ledger.Row{
			{CuentaCodigo: "413595", CuentaTipo: accounts.TipoIngreso,
				CuentaNaturaleza: accounts.NaturalezaCredito, SaldoFinal: 200},
			{CuentaCodigo: "510506", CuentaTipo: accounts.TipoGasto,
				CuentaNaturaleza: accounts.NaturalezaDebito, SaldoFinal: 500},
		},
	}
	svc := newTestService(repo, lg)
	asientos := &asientosStub{}
	svc.WithAsientosCierre(asientos)
	for mes := 1; mes <= 12; mes++ {
		repo.seed(2025, mes, EstadoCerrado)
	}

	cierre, _, err := svc.CerrarAnio(context.Background(), 2025, 4)
	require.NoError(t, err)
	require.Equal(t, -300.0, cierre.UtilidadPerdida)

	lineas := asientos.inputs[0].Lineas
	ultima := lineas[len(lineas)-1]
	require.Equal(t, "3610", ultima.CuentaCodigo)
	require.Equal(t, 300.0, ultima.Debito)
}

func TestCrearPeriodosAnioSkipsExisting(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &ledgerStub{})
	repo.seed(2025, 1, EstadoAbierto)

	creados, err := svc.CrearPeriodosAnio(context.Background(), 2025)
	require.NoError(t, err)
	require.Equal(t, 11, creados)
	periodos, err := repo.ListAnio(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, periodos, 12)
}

func TestResolveOpenPeriodoCreatesLazily(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &ledgerStub{})

	fecha := time.Date(2025, time.July, 9, 0, 0, 0, 0, time.UTC)
	p, err := svc.ResolveOpenPeriodo(context.Background(), fecha)
	require.NoError(t, err)
	require.Equal(t, "Julio 2025", p.Nombre)
	require.Equal(t, EstadoAbierto, p.Estado)

	cerrado := repo.periodos[p.ID]
	cerrado.Estado = EstadoCerrado
	repo.periodos[p.ID] = cerrado

	_, err = svc.ResolveOpenPeriodo(context.Background(), fecha)
	require.Error(t, err)
	require.True(t, shared.IsValidation(err))
}
