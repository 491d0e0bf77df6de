package ledger

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/clinicamia/contable/internal/accounting/accounts"
	"github.com/clinicamia/contable/internal/accounting/shared"
)

// Service maintains the libro mayor: per-period, per-account running
// balances derived from approved journal lines. The incremental path
// (ApplyEntry/ReverseEntry) is a cache of the authoritative
// RecalcularPeriodo rebuild.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ApplyEntry increments the ledger rows touched by an approved entry's
// lines. One transaction: all rows move or none do.
func (s *Service) ApplyEntry(ctx context.Context, fecha time.Time, movs []Movimiento) error {
	anio, mes := fecha.Year(), int(fecha.Month())
	inicio, _ := PeriodoRange(anio, mes)
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, mov := range movs {
			cuenta, err := tx.GetCuenta(ctx, mov.CuentaCodigo)
			if err != nil {
				return err
			}
			debitos, creditos, err := tx.SumMovimientosAntes(ctx, mov.CuentaCodigo, mov.CentroCostoID, inicio)
			if err != nil {
				return err
			}
			saldoInicial := SaldoDelta(cuenta.Naturaleza, debitos, creditos)
			if err := tx.UpsertIncremento(ctx, anio, mes, cuenta, mov, saldoInicial); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReverseEntry subtracts a previously applied entry's effect; used when
// voiding an approved entry.
func (s *Service) ReverseEntry(ctx context.Context, fecha time.Time, movs []Movimiento) error {
	anio, mes := fecha.Year(), int(fecha.Month())
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, mov := range movs {
			cuenta, err := tx.GetCuenta(ctx, mov.CuentaCodigo)
			if err != nil {
				return err
			}
			if err := tx.Decremento(ctx, anio, mes, cuenta, mov); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecalcularPeriodo deletes and rebuilds every row of (anio, mes) by
// replaying the approved entries dated within it. This is the repair tool
// and the source of truth the incremental path must agree with.
func (s *Service) RecalcularPeriodo(ctx context.Context, anio, mes int) (int, error) {
	inicio, fin := PeriodoRange(anio, mes)
	var rebuilt int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteRows(ctx, anio, mes); err != nil {
			return err
		}
		aggs, err := tx.AggregateMovimientos(ctx, inicio, fin)
		if err != nil {
			return err
		}
		for _, agg := range aggs {
			cuenta, err := tx.GetCuenta(ctx, agg.CuentaCodigo)
			if err != nil {
				return err
			}
			debitos, creditos, err := tx.SumMovimientosAntes(ctx, agg.CuentaCodigo, agg.CentroCostoID, inicio)
			if err != nil {
				return err
			}
			saldoInicial := SaldoDelta(cuenta.Naturaleza, debitos, creditos)
			row := Row{
				Anio:             anio,
				Mes:              mes,
				CuentaCodigo:     cuenta.Codigo,
				CuentaNombre:     cuenta.Nombre,
				CuentaTipo:       cuenta.Tipo,
				CuentaNaturaleza: cuenta.Naturaleza,
				CentroCostoID:    agg.CentroCostoID,
				SaldoInicial:     saldoInicial,
				Debitos:          agg.Debitos,
				Creditos:         agg.Creditos,
				SaldoFinal:       saldoInicial + SaldoDelta(cuenta.Naturaleza, agg.Debitos, agg.Creditos),
				NumMovimientos:   agg.Movimientos,
			}
			if err := tx.InsertRow(ctx, row); err != nil {
				return err
			}
		}
		rebuilt = len(aggs)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if s.logger != nil {
		s.logger.Info("libro mayor recalculado",
			slog.Int("anio", anio), slog.Int("mes", mes), slog.Int("cuentas", rebuilt))
	}
	return rebuilt, nil
}

// VerificarPeriodo compares the stored rows against a fresh aggregate of
// the journal lines and fails with a ConsistencyError on drift beyond
// tolerance. Run nightly and before trusting a close.
func (s *Service) VerificarPeriodo(ctx context.Context, anio, mes int) error {
	inicio, fin := PeriodoRange(anio, mes)
	var drift error
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stored, err := tx.RowsForPeriodo(ctx, anio, mes)
		if err != nil {
			return err
		}
		aggs, err := tx.AggregateMovimientos(ctx, inicio, fin)
		if err != nil {
			return err
		}
		byKey := make(map[[2]string]AggRow, len(aggs))
		for _, agg := range aggs {
			byKey[[2]string{agg.CuentaCodigo, agg.CentroCostoID}] = agg
		}
		seen := make(map[[2]string]bool, len(stored))
		for _, row := range stored {
			key := [2]string{row.CuentaCodigo, row.CentroCostoID}
			seen[key] = true
			agg := byKey[key]
			if math.Abs(row.Debitos-agg.Debitos) > shared.BalanceTolerance ||
				math.Abs(row.Creditos-agg.Creditos) > shared.BalanceTolerance {
				drift = shared.Consistencyf(
					"libro mayor %d-%02d cuenta %s difiere del diario: almacenado D %.2f/C %.2f, recalculado D %.2f/C %.2f",
					anio, mes, row.CuentaCodigo, row.Debitos, row.Creditos, agg.Debitos, agg.Creditos)
				return nil
			}
			esperado := row.SaldoInicial + SaldoDelta(row.CuentaNaturaleza, row.Debitos, row.Creditos)
			if math.Abs(row.SaldoFinal-esperado) > shared.BalanceTolerance {
				drift = shared.Consistencyf(
					"libro mayor %d-%02d cuenta %s: saldo final %.2f no cuadra con saldo inicial %.2f más movimientos",
					anio, mes, row.CuentaCodigo, row.SaldoFinal, row.SaldoInicial)
				return nil
			}
		}
		for key := range byKey {
			if !seen[key] {
				drift = shared.Consistencyf(
					"libro mayor %d-%02d sin fila para cuenta %s con movimientos aprobados", anio, mes, key[0])
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if drift != nil && s.logger != nil {
		s.logger.Error("inconsistencia en libro mayor", slog.String("detalle", drift.Error()))
	}
	return drift
}

// RowsForPeriodo returns the stored rows, optionally filtered by tipo.
func (s *Service) RowsForPeriodo(ctx context.Context, anio, mes int, tipos ...accounts.Tipo) ([]Row, error) {
	return s.repo.RowsForPeriodo(ctx, anio, mes, tipos...)
}

// SaldosPorTipo aggregates absolute closing balances per account type;
// feeds the close snapshots and the annual result.
func (s *Service) SaldosPorTipo(ctx context.Context, anio, mes int) (map[accounts.Tipo]float64, error) {
	rows, err := s.repo.RowsForPeriodo(ctx, anio, mes)
	if err != nil {
		return nil, err
	}
	sums := make(map[accounts.Tipo]float64)
	for _, row := range rows {
		sums[row.CuentaTipo] += row.SaldoFinal
	}
	out := make(map[accounts.Tipo]float64, len(sums))
	for tipo, sum := range sums {
		out[tipo] = math.Abs(sum)
	}
	return out, nil
}

// ExtractoCuenta builds the account drill-down: opening balance plus each
// contributing line with a running balance.
func (s *Service) ExtractoCuenta(ctx context.Context, codigo string, anio, mes int) (ExtractoCuenta, error) {
	cuenta, err := s.repo.GetCuenta(ctx, codigo)
	if err != nil {
		return ExtractoCuenta{}, err
	}
	inicio, fin := PeriodoRange(anio, mes)
	debitos, creditos, err := s.repo.SumCuentaAntes(ctx, codigo, inicio)
	if err != nil {
		return ExtractoCuenta{}, err
	}
	saldoInicial := SaldoDelta(cuenta.Naturaleza, debitos, creditos)
	movs, err := s.repo.MovimientosCuenta(ctx, codigo, inicio, fin)
	if err != nil {
		return ExtractoCuenta{}, err
	}
	saldo := saldoInicial
	for i := range movs {
		saldo += SaldoDelta(cuenta.Naturaleza, movs[i].Debito, movs[i].Credito)
		movs[i].Saldo = saldo
	}
	return ExtractoCuenta{
		CuentaCodigo: cuenta.Codigo,
		CuentaNombre: cuenta.Nombre,
		Naturaleza:   cuenta.Naturaleza,
		Anio:         anio,
		Mes:          mes,
		SaldoInicial: saldoInicial,
		Movimientos:  movs,
		SaldoFinal:   saldo,
	}, nil
}
