package reports

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/clinicamia/contable/internal/accounting/accounts"
	"github.com/clinicamia/contable/internal/accounting/ledger"
	"github.com/clinicamia/contable/internal/accounting/shared"
)

// Ledger is the read surface the statements are built from.
type Ledger interface {
	RowsForPeriodo(ctx context.Context, anio, mes int, tipos ...accounts.Tipo) ([]ledger.Row, error)
}

// Service renders financial statements from the libro mayor. Statements
// never mutate anything; they read the ledger rows of one period and
// fold them.
type Service struct {
	ledger Ledger
	cache  *Cache
	logger *slog.Logger
}

func NewService(ledger Ledger, cache *Cache, logger *slog.Logger) *Service {
	return &Service{ledger: ledger, cache: cache, logger: logger}
}

func (s *Service) BalanceGeneral(ctx context.Context, anio, mes int) (BalanceGeneral, error) {
	key := clave("balance-general", anio, mes, "")
	var bg BalanceGeneral
	if s.cache.Get(ctx, key, &bg) {
		return bg, nil
	}
	rows, err := s.ledger.RowsForPeriodo(ctx, anio, mes)
	if err != nil {
		return BalanceGeneral{}, err
	}
	bg = buildBalanceGeneral(anio, mes, rows)
	if !bg.Verificacion.Cuadrado {
		// A broken equation is a ledger fault, not a caller mistake. The
		// statement is still returned with its verification block, but it
		// never enters the cache.
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "balance general descuadrado",
				slog.Any("error", shared.Consistencyf(
					"el balance general de %s no cuadra: diferencia %.2f",
					bg.Periodo, bg.Verificacion.Diferencia)))
		}
		return bg, nil
	}
	s.cache.Set(ctx, key, bg)
	return bg, nil
}

func (s *Service) EstadoResultados(ctx context.Context, anio, mes int) (EstadoResultados, error) {
	key := clave("estado-resultados", anio, mes, "")
	var er EstadoResultados
	if s.cache.Get(ctx, key, &er) {
		return er, nil
	}
	rows, err := s.ledger.RowsForPeriodo(ctx, anio, mes,
		accounts.TipoIngreso, accounts.TipoGasto)
	if err != nil {
		return EstadoResultados{}, err
	}
	er = buildEstadoResultados(anio, mes, rows)
	s.cache.Set(ctx, key, er)
	return er, nil
}

func (s *Service) BalancePrueba(ctx context.Context, anio, mes, nivel int) (BalancePrueba, error) {
	key := clave("balance-prueba", anio, mes, fmt.Sprintf("n%d", nivel))
	var tb BalancePrueba
	if s.cache.Get(ctx, key, &tb) {
		return tb, nil
	}
	rows, err := s.ledger.RowsForPeriodo(ctx, anio, mes)
	if err != nil {
		return BalancePrueba{}, err
	}
	tb = buildBalancePrueba(anio, mes, nivel, rows)
	s.cache.Set(ctx, key, tb)
	return tb, nil
}

func (s *Service) FlujoCaja(ctx context.Context, anio, mes int) (FlujoCaja, error) {
	key := clave("flujo-caja", anio, mes, "")
	var fc FlujoCaja
	if s.cache.Get(ctx, key, &fc) {
		return fc, nil
	}
	rows, err := s.ledger.RowsForPeriodo(ctx, anio, mes)
	if err != nil {
		return FlujoCaja{}, err
	}
	fc = buildFlujoCaja(anio, mes, rows)
	s.cache.Set(ctx, key, fc)
	return fc, nil
}

func (s *Service) Indicadores(ctx context.Context, anio, mes int) (Indicadores, error) {
	key := clave("indicadores", anio, mes, "")
	var ind Indicadores
	if s.cache.Get(ctx, key, &ind) {
		return ind, nil
	}
	rows, err := s.ledger.RowsForPeriodo(ctx, anio, mes)
	if err != nil {
		return Indicadores{}, err
	}
	ind = buildIndicadores(anio, mes, rows)
	s.cache.Set(ctx, key, ind)
	return ind, nil
}

// Comparativo renders the balance sheet next to the prior month's; both
// periods are read concurrently.
func (s *Service) Comparativo(ctx context.Context, anio, mes int) (BalanceComparativo, error) {
	anioAnt, mesAnt := anio, mes-1
	if mes == 1 {
		anioAnt, mesAnt = anio-1, 12
	}
	var cmp BalanceComparativo
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cmp.Actual, err = s.BalanceGeneral(ctx, anio, mes)
		return err
	})
	g.Go(func() error {
		var err error
		cmp.Anterior, err = s.BalanceGeneral(ctx, anioAnt, mesAnt)
		return err
	})
	if err := g.Wait(); err != nil {
		return BalanceComparativo{}, err
	}
	return cmp, nil
}

// InvalidatePeriodo drops the cached statements of a period after its
// ledger changed.
func (s *Service) InvalidatePeriodo(ctx context.Context, anio, mes int) {
	s.cache.InvalidatePeriodo(ctx, anio, mes)
}
