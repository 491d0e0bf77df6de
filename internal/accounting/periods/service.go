package periods

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/clinicamia/contable/internal/accounting/accounts"
	"github.com/clinicamia/contable/internal/accounting/ledger"
	"github.com/clinicamia/contable/internal/accounting/shared"
)

// Ledger is the slice of the libro mayor the period lifecycle needs.
type Ledger interface {
	RecalcularPeriodo(ctx context.Context, anio, mes int) (int, error)
	SaldosPorTipo(ctx context.Context, anio, mes int) (map[accounts.Tipo]float64, error)
	RowsForPeriodo(ctx context.Context, anio, mes int, tipos ...accounts.Tipo) ([]ledger.Row, error)
}

// LineaCierre is one row of the annual closing entry.
type LineaCierre struct {
	CuentaCodigo string
	CuentaNombre string
	Debito       float64
	Credito      float64
	Descripcion  string
}

// AsientoCierreInput asks the journal manager for an auto-approved
// closing entry.
type AsientoCierreInput struct {
	Fecha       time.Time
	Descripcion string
	Lineas      []LineaCierre
	UsuarioID   int64
}

// AsientoCierreRef identifies the generated closing entry.
type AsientoCierreRef struct {
	ID     int64
	Numero string
}

// AsientosCierre is implemented by the journal manager; it must create
// and approve the entry in one go (the target period is already closed
// for ordinary postings).
type AsientosCierre interface {
	PostAsientoCierre(ctx context.Context, in AsientoCierreInput) (AsientoCierreRef, error)
}

// Account codes receiving the annual net result.
const (
	cuentaUtilidadEjercicio = "3605"
	cuentaPerdidaEjercicio  = "3610"
)

// Service owns the period calendar and its open/close/reopen/annual-close
// state machine.
type Service struct {
	repo     Repository
	ledger   Ledger
	asientos AsientosCierre
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, ledger Ledger, logger *slog.Logger) *Service {
	return &Service{repo: repo, ledger: ledger, logger: logger, now: time.Now}
}

// WithAsientosCierre wires the journal manager after construction; both
// services depend on each other, so one side is attached late.
func (s *Service) WithAsientosCierre(a AsientosCierre) {
	s.asientos = a
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) GetByID(ctx context.Context, id int64) (Periodo, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, anio int) ([]Periodo, error) {
	return s.repo.List(ctx, anio)
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}

// ResolveOpenPeriodo finds or lazily creates the period covering fecha.
// Callers posting new entries must get an open one, so a closed period is
// a validation failure.
func (s *Service) ResolveOpenPeriodo(ctx context.Context, fecha time.Time) (Periodo, error) {
	var periodo Periodo
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		periodo, err = findOrCreate(ctx, tx, fecha.Year(), int(fecha.Month()))
		return err
	})
	if err != nil {
		return Periodo{}, err
	}
	if periodo.Estado != EstadoAbierto {
		return Periodo{}, shared.Validationf("el período %s está %s", periodo.Nombre, periodo.Estado)
	}
	return periodo, nil
}

// CurrentPeriodo returns (creating when absent) the period for today.
func (s *Service) CurrentPeriodo(ctx context.Context) (Periodo, error) {
	hoy := s.now()
	var periodo Periodo
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		periodo, err = findOrCreate(ctx, tx, hoy.Year(), int(hoy.Month()))
		return err
	})
	return periodo, err
}

// CrearPeriodosAnio pre-creates the 12 periods of a year. Existing months
// are left untouched.
func (s *Service) CrearPeriodosAnio(ctx context.Context, anio int) (int, error) {
	creados := 0
	for mes := 1; mes <= 12; mes++ {
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if _, err := tx.GetByAnioMesForUpdate(ctx, anio, mes); err == nil {
				return nil
			} else if !shared.IsNotFound(err) {
				return err
			}
			if _, err := tx.Insert(ctx, NewPeriodo(anio, mes)); err != nil {
				return err
			}
			creados++
			return nil
		})
		if err != nil {
			return creados, err
		}
	}
	return creados, nil
}

// Cerrar closes a monthly period: recalculates its ledger, verifies no
// draft entries remain, snapshots the totals, and flips the state.
func (s *Service) Cerrar(ctx context.Context, periodoID, usuarioID int64) (Periodo, Cierre, error) {
	periodo, err := s.repo.GetByID(ctx, periodoID)
	if err != nil {
		return Periodo{}, Cierre{}, err
	}
	if periodo.Estado != EstadoAbierto {
		return Periodo{}, Cierre{}, shared.Validationf("el período %s no está abierto", periodo.Nombre)
	}
	if _, err := s.ledger.RecalcularPeriodo(ctx, periodo.Anio, periodo.Mes); err != nil {
		return Periodo{}, Cierre{}, err
	}
	saldos, err := s.saldosCierre(ctx, periodo.Anio, periodo.Mes)
	if err != nil {
		return Periodo{}, Cierre{}, err
	}

	ahora := s.now()
	var cierre Cierre
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.GetForUpdate(ctx, periodoID)
		if err != nil {
			return err
		}
		if locked.Estado != EstadoAbierto {
			return shared.Validationf("el período %s no está abierto", locked.Nombre)
		}
		borradores, err := tx.CountAsientosBorrador(ctx, periodoID)
		if err != nil {
			return err
		}
		if borradores > 0 {
			return shared.Validationf(
				"hay %d asientos en borrador en %s; deben aprobarse o anularse antes de cerrar",
				borradores, locked.Nombre)
		}
		if err := tx.SetCerrado(ctx, periodoID, ahora, usuarioID); err != nil {
			return err
		}
		cierre, err = tx.InsertCierre(ctx, Cierre{
			PeriodoID:       periodoID,
			Tipo:            CierreMensual,
			FechaCierre:     ahora,
			TotalActivos:    saldos.Activos,
			TotalPasivos:    saldos.Pasivos,
			TotalPatrimonio: saldos.Patrimonio,
			TotalIngresos:   saldos.Ingresos,
			TotalGastos:     saldos.Gastos,
			UtilidadPerdida: saldos.UtilidadPerdida(),
			EjecutadoPor:    usuarioID,
			Estado:          CierreVigente,
		})
		return err
	})
	if err != nil {
		return Periodo{}, Cierre{}, err
	}
	if s.logger != nil {
		s.logger.Info("período cerrado",
			slog.String("periodo", periodo.Nombre), slog.Int64("usuario", usuarioID))
	}
	periodo.Estado = EstadoCerrado
	periodo.FechaCierre = &ahora
	periodo.CerradoPor = &usuarioID
	return periodo, cierre, nil
}

// Reabrir reopens a closed period. Closes must be undone newest-first, so
// a later closed period blocks the reopen.
func (s *Service) Reabrir(ctx context.Context, periodoID, usuarioID int64, motivo string) (Periodo, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		periodo, err := tx.GetForUpdate(ctx, periodoID)
		if err != nil {
			return err
		}
		if periodo.Estado != EstadoCerrado {
			return shared.Validationf("el período %s no está cerrado", periodo.Nombre)
		}
		posteriores, err := tx.CountPosterioresCerrados(ctx, periodo.Anio, periodo.Mes)
		if err != nil {
			return err
		}
		if posteriores > 0 {
			return shared.Validationf(
				"no se puede reabrir %s: hay %d períodos posteriores cerrados", periodo.Nombre, posteriores)
		}
		if err := tx.SetAbierto(ctx, periodoID); err != nil {
			return err
		}
		return tx.MarkCierresReversados(ctx, periodoID, usuarioID, motivo)
	})
	if err != nil {
		return Periodo{}, err
	}
	if s.logger != nil {
		s.logger.Info("período reabierto",
			slog.Int64("periodo_id", periodoID), slog.Int64("usuario", usuarioID), slog.String("motivo", motivo))
	}
	return s.repo.GetByID(ctx, periodoID)
}

// CerrarAnio performs the annual close: all 12 periods must already be
// closed; income and expense balances are zeroed into the net-result
// equity account through an auto-approved closing entry.
func (s *Service) CerrarAnio(ctx context.Context, anio int, usuarioID int64) (Cierre, AsientoCierreRef, error) {
	if s.asientos == nil {
		return Cierre{}, AsientoCierreRef{}, fmt.Errorf("periods: asientos de cierre no configurados")
	}
	periodos, err := s.repo.ListAnio(ctx, anio)
	if err != nil {
		return Cierre{}, AsientoCierreRef{}, err
	}
	abiertos := 12 - len(periodos)
	var diciembre *Periodo
	for i := range periodos {
		if periodos[i].Estado != EstadoCerrado {
			abiertos++
		}
		if periodos[i].Mes == 12 {
			diciembre = &periodos[i]
		}
	}
	if abiertos > 0 {
		return Cierre{}, AsientoCierreRef{}, shared.Validationf(
			"hay %d períodos abiertos en %d; deben cerrarse antes del cierre anual", abiertos, anio)
	}
	if diciembre == nil {
		return Cierre{}, AsientoCierreRef{}, shared.Validationf("no existe el período %s", Nombre(anio, 12))
	}

	saldos, err := s.saldosCierre(ctx, anio, 12)
	if err != nil {
		return Cierre{}, AsientoCierreRef{}, err
	}
	lineas, err := s.lineasCierreAnual(ctx, anio, saldos.UtilidadPerdida())
	if err != nil {
		return Cierre{}, AsientoCierreRef{}, err
	}
	ref, err := s.asientos.PostAsientoCierre(ctx, AsientoCierreInput{
		Fecha:       time.Date(anio, time.December, 31, 0, 0, 0, 0, time.UTC),
		Descripcion: fmt.Sprintf("Cierre de cuentas de resultados año %d", anio),
		Lineas:      lineas,
		UsuarioID:   usuarioID,
	})
	if err != nil {
		return Cierre{}, AsientoCierreRef{}, err
	}

	ahora := s.now()
	var cierre Cierre
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cierre, err = tx.InsertCierre(ctx, Cierre{
			PeriodoID:       diciembre.ID,
			Tipo:            CierreAnual,
			FechaCierre:     ahora,
			TotalActivos:    saldos.Activos,
			TotalPasivos:    saldos.Pasivos,
			TotalPatrimonio: saldos.Patrimonio,
			TotalIngresos:   saldos.Ingresos,
			TotalGastos:     saldos.Gastos,
			UtilidadPerdida: saldos.UtilidadPerdida(),
			AsientoCierreID: &ref.ID,
			EjecutadoPor:    usuarioID,
			Estado:          CierreVigente,
			Observaciones:   fmt.Sprintf("Cierre anual %d", anio),
		})
		return err
	})
	if err != nil {
		return Cierre{}, AsientoCierreRef{}, err
	}
	if s.logger != nil {
		s.logger.Info("cierre anual ejecutado",
			slog.Int("anio", anio), slog.String("asiento", ref.Numero),
			slog.Float64("utilidad_perdida", saldos.UtilidadPerdida()))
	}
	return cierre, ref, nil
}

// lineasCierreAnual builds the closing entry: every income account with a
// balance is debited to zero, every expense account credited to zero, and
// the net lands on 3605 (profit) or 3610 (loss).
func (s *Service) lineasCierreAnual(ctx context.Context, anio int, utilidadPerdida float64) ([]LineaCierre, error) {
	rows, err := s.ledger.RowsForPeriodo(ctx, anio, 12, accounts.TipoIngreso, accounts.TipoGasto)
	if err != nil {
		return nil, err
	}
	// Rows may be split by cost center; the closing entry works per account.
	type acum struct {
		nombre string
		tipo   accounts.Tipo
		saldo  float64
	}
	porCuenta := make(map[string]*acum)
	orden := make([]string, 0, len(rows))
	for _, row := range rows {
		a, ok := porCuenta[row.CuentaCodigo]
		if !ok {
			a = &acum{nombre: row.CuentaNombre, tipo: row.CuentaTipo}
			porCuenta[row.CuentaCodigo] = a
			orden = append(orden, row.CuentaCodigo)
		}
		a.saldo += row.SaldoFinal
	}

	var lineas []LineaCierre
	for _, codigo := range orden {
		a := porCuenta[codigo]
		saldo := math.Abs(a.saldo)
		if saldo <= shared.BalanceTolerance {
			continue
		}
		linea := LineaCierre{
			CuentaCodigo: codigo,
			CuentaNombre: a.nombre,
			Descripcion:  fmt.Sprintf("Cierre cuenta %s", codigo),
		}
		if a.tipo == accounts.TipoIngreso {
			linea.Debito = saldo
		} else {
			linea.Credito = saldo
		}
		lineas = append(lineas, linea)
	}

	if utilidadPerdida >= 0 {
		lineas = append(lineas, LineaCierre{
			CuentaCodigo: cuentaUtilidadEjercicio,
			CuentaNombre: "Utilidad del ejercicio",
			Credito:      math.Abs(utilidadPerdida),
			Descripcion:  fmt.Sprintf("Utilidad ejercicio %d", anio),
		})
	} else {
		lineas = append(lineas, LineaCierre{
			CuentaCodigo: cuentaPerdidaEjercicio,
			CuentaNombre: "Pérdida del ejercicio",
			Debito:       math.Abs(utilidadPerdida),
			Descripcion:  fmt.Sprintf("Pérdida ejercicio %d", anio),
		})
	}
	return lineas, nil
}

func (s *Service) saldosCierre(ctx context.Context, anio, mes int) (Saldos, error) {
	porTipo, err := s.ledger.SaldosPorTipo(ctx, anio, mes)
	if err != nil {
		return Saldos{}, err
	}
	return Saldos{
		Activos:    porTipo[accounts.TipoActivo],
		Pasivos:    porTipo[accounts.TipoPasivo],
		Patrimonio: porTipo[accounts.TipoPatrimonio],
		Ingresos:   porTipo[accounts.TipoIngreso],
		Gastos:     porTipo[accounts.TipoGasto],
	}, nil
}

// findOrCreate implements lazy period creation inside a transaction.
func findOrCreate(ctx context.Context, tx TxRepository, anio, mes int) (Periodo, error) {
	periodo, err := tx.GetByAnioMesForUpdate(ctx, anio, mes)
	if err == nil {
		return periodo, nil
	}
	if !shared.IsNotFound(err) {
		return Periodo{}, err
	}
	return tx.Insert(ctx, NewPeriodo(anio, mes))
}
