package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clinicamia/contable/internal/accounting/accounts"
	"github.com/clinicamia/contable/internal/accounting/ledger"
	"github.com/clinicamia/contable/internal/accounting/periods"
	"github.com/clinicamia/contable/internal/accounting/shared"
)

// CuentasCatalog is the slice of the account catalog the journal manager
// needs: resolve a code and reject missing or inactive accounts.
type CuentasCatalog interface {
	ValidateActiva(ctx context.Context, codigo string) (accounts.Cuenta, error)
}

// The advisory lock makes numero collisions unlikely; the retry covers
// concurrent inserts racing on the unique index anyway.
const maxNumeroRetries = 3

// Service owns the asiento lifecycle: create, edit, approve, void,
// reverse. Approval and the ledger update commit in one transaction.
type Service struct {
	repo    Repository
	cuentas CuentasCatalog
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(repo Repository, cuentas CuentasCatalog, logger *slog.Logger) *Service {
	return &Service{repo: repo, cuentas: cuentas, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) GetByID(ctx context.Context, id int64) (Asiento, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) (Page, error) {
	filter = filter.normalize()
	asientos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return Page{}, err
	}
	totalPages := total / filter.Limit
	if total%filter.Limit != 0 {
		totalPages++
	}
	return Page{
		Data:       asientos,
		Pagina:     filter.Page,
		Limite:     filter.Limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

func (s *Service) Stats(ctx context.Context, periodoID int64) (Stats, error) {
	return s.repo.Stats(ctx, periodoID)
}

// GetNextNumero previews the next consecutive for a year without
// consuming it.
func (s *Service) GetNextNumero(ctx context.Context, anio int) (string, error) {
	var numero string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		numero, err = tx.NextNumero(ctx, anio)
		return err
	})
	return numero, err
}

// Create registers a new asiento in BORRADOR. The entry must balance and
// every account must exist and be active; the target period must be open.
func (s *Service) Create(ctx context.Context, in CreateInput, usuarioID int64) (Asiento, error) {
	if err := in.Validate(); err != nil {
		return Asiento{}, err
	}
	if in.Tipo == "" {
		in.Tipo = TipoDiario
	}
	lineas, err := s.resolverLineas(ctx, in.Lineas)
	if err != nil {
		return Asiento{}, err
	}

	var creado Asiento
	err = s.inTxWithNumeroRetry(ctx, func(ctx context.Context, tx TxRepository) error {
		periodo, err := tx.ResolvePeriodoForUpdate(ctx, in.Fecha)
		if err != nil {
			return err
		}
		if periodo.Estado != periods.EstadoAbierto {
			return shared.Validationf("el período %s está %s", periodo.Nombre, periodo.Estado)
		}
		numero, err := tx.NextNumero(ctx, in.Fecha.Year())
		if err != nil {
			return err
		}
		creado, err = tx.InsertAsiento(ctx, Asiento{
			Numero:        numero,
			PeriodoID:     periodo.ID,
			PeriodoNombre: periodo.Nombre,
			Fecha:         in.Fecha,
			Tipo:          in.Tipo,
			Descripcion:   in.Descripcion,
			TotalDebito:   TotalDebito(in.Lineas),
			TotalCredito:  TotalCredito(in.Lineas),
			Estado:        EstadoBorrador,
			CreadoPor:     usuarioID,
			TipoDocOrigen: in.TipoDocOrigen,
			DocOrigenID:   in.DocOrigenID,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertLineas(ctx, creado.ID, lineas); err != nil {
			return err
		}
		creado.Lineas = lineas
		return nil
	})
	if err != nil {
		return Asiento{}, err
	}
	s.log(ctx, "asiento creado", creado, usuarioID)
	return creado, nil
}

// Update edits a draft. Approved or voided entries are immutable; when
// lines are supplied they replace the existing ones and the entry must
// balance again.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, usuarioID int64) (Asiento, error) {
	var lineas []Linea
	if in.Lineas != nil {
		if err := ValidarCuadre(in.Lineas); err != nil {
			return Asiento{}, err
		}
		var err error
		lineas, err = s.resolverLineas(ctx, in.Lineas)
		if err != nil {
			return Asiento{}, err
		}
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.GetAsientoForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if a.Estado != EstadoBorrador && a.Estado != EstadoPendiente {
			return shared.Validationf("el asiento %s está %s y no se puede modificar", a.Numero, a.Estado)
		}
		if in.Fecha != nil {
			periodo, err := tx.ResolvePeriodoForUpdate(ctx, *in.Fecha)
			if err != nil {
				return err
			}
			if periodo.Estado != periods.EstadoAbierto {
				return shared.Validationf("el período %s está %s", periodo.Nombre, periodo.Estado)
			}
			a.Fecha = *in.Fecha
			a.PeriodoID = periodo.ID
		}
		if in.Tipo != nil {
			a.Tipo = *in.Tipo
		}
		if in.Descripcion != nil {
			a.Descripcion = *in.Descripcion
		}
		if in.Lineas != nil {
			a.TotalDebito = TotalDebito(in.Lineas)
			a.TotalCredito = TotalCredito(in.Lineas)
		}
		if err := tx.UpdateAsiento(ctx, a); err != nil {
			return err
		}
		if in.Lineas != nil {
			if err := tx.DeleteLineas(ctx, id); err != nil {
				return err
			}
			return tx.InsertLineas(ctx, id, lineas)
		}
		return nil
	})
	if err != nil {
		return Asiento{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// Aprobar moves a draft to APROBADO and posts its lines to the libro
// mayor in the same transaction. Only entries in open periods can be
// approved.
func (s *Service) Aprobar(ctx context.Context, id, usuarioID int64) (Asiento, error) {
	var aprobado Asiento
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.GetAsientoForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if a.Estado != EstadoBorrador && a.Estado != EstadoPendiente {
			return shared.Validationf("el asiento %s está %s y no se puede aprobar", a.Numero, a.Estado)
		}
		if err := ValidarCuadreLineas(a.Numero, a.Lineas); err != nil {
			return err
		}
		periodo, err := tx.GetPeriodoForUpdate(ctx, a.PeriodoID)
		if err != nil {
			return err
		}
		if periodo.Estado != periods.EstadoAbierto {
			return shared.Validationf("el período %s está %s", periodo.Nombre, periodo.Estado)
		}
		ahora := s.now()
		if err := tx.SetAprobado(ctx, id, usuarioID, ahora); err != nil {
			return err
		}
		if err := tx.ApplyLedger(ctx, a.Fecha, movimientos(a.Lineas)); err != nil {
			return err
		}
		a.Estado = EstadoAprobado
		a.AprobadoPor = &usuarioID
		a.FechaAprobacion = &ahora
		aprobado = a
		return nil
	})
	if err != nil {
		return Asiento{}, err
	}
	s.log(ctx, "asiento aprobado", aprobado, usuarioID)
	return aprobado, nil
}

// Anular voids an entry. An approved entry has its amounts subtracted
// from the libro mayor directly; drafts just change state. Voiding is
// terminal.
func (s *Service) Anular(ctx context.Context, id, usuarioID int64, motivo string) (Asiento, error) {
	if motivo == "" {
		return Asiento{}, shared.Validationf("el motivo de anulación es obligatorio")
	}
	var anulado Asiento
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.GetAsientoForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if a.Estado == EstadoAnulado {
			return shared.Validationf("el asiento %s ya está anulado", a.Numero)
		}
		if a.Estado == EstadoAprobado {
			if err := tx.ReverseLedger(ctx, a.Fecha, movimientos(a.Lineas)); err != nil {
				return err
			}
		}
		ahora := s.now()
		if err := tx.SetAnulado(ctx, id, usuarioID, ahora, motivo); err != nil {
			return err
		}
		a.Estado = EstadoAnulado
		a.AnuladoPor = &usuarioID
		a.FechaAnulacion = &ahora
		a.MotivoAnulacion = motivo
		anulado = a
		return nil
	})
	if err != nil {
		return Asiento{}, err
	}
	s.log(ctx, "asiento anulado", anulado, usuarioID)
	return anulado, nil
}

// Revertir leaves the original approved entry intact and posts a new
// auto-approved AJUSTE with the debit and credit sides swapped, dated
// today. The net ledger effect is zero.
func (s *Service) Revertir(ctx context.Context, id, usuarioID int64, motivo string) (Asiento, error) {
	if motivo == "" {
		return Asiento{}, shared.Validationf("el motivo de reversión es obligatorio")
	}
	fecha := s.now()
	var reversion Asiento
	err := s.inTxWithNumeroRetry(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetAsientoForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if original.Estado != EstadoAprobado {
			return shared.Validationf("solo se pueden reversar asientos aprobados; %s está %s",
				original.Numero, original.Estado)
		}
		periodo, err := tx.ResolvePeriodoForUpdate(ctx, fecha)
		if err != nil {
			return err
		}
		if periodo.Estado != periods.EstadoAbierto {
			return shared.Validationf("el período %s está %s", periodo.Nombre, periodo.Estado)
		}
		numero, err := tx.NextNumero(ctx, fecha.Year())
		if err != nil {
			return err
		}
		lineas := make([]Linea, len(original.Lineas))
		for i, l := range original.Lineas {
			lineas[i] = Linea{
				CuentaCodigo:  l.CuentaCodigo,
				CuentaNombre:  l.CuentaNombre,
				Debito:        l.Credito,
				Credito:       l.Debito,
				Descripcion:   fmt.Sprintf("Reversión: %s", l.Descripcion),
				TerceroTipo:   l.TerceroTipo,
				TerceroID:     l.TerceroID,
				TerceroNombre: l.TerceroNombre,
				CentroCostoID: l.CentroCostoID,
				Orden:         l.Orden,
			}
		}
		reversion, err = tx.InsertAsiento(ctx, Asiento{
			Numero:            numero,
			PeriodoID:         periodo.ID,
			PeriodoNombre:     periodo.Nombre,
			Fecha:             fecha,
			Tipo:              TipoAjuste,
			Descripcion:       fmt.Sprintf("Reversión de %s: %s", original.Numero, motivo),
			TotalDebito:       original.TotalCredito,
			TotalCredito:      original.TotalDebito,
			Estado:            EstadoAprobado,
			CreadoPor:         usuarioID,
			AprobadoPor:       &usuarioID,
			FechaAprobacion:   &fecha,
			EsReversion:       true,
			AsientoOriginalID: &original.ID,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertLineas(ctx, reversion.ID, lineas); err != nil {
			return err
		}
		if err := tx.ApplyLedger(ctx, fecha, movimientos(lineas)); err != nil {
			return err
		}
		reversion.Lineas = lineas
		return nil
	})
	if err != nil {
		return Asiento{}, err
	}
	s.log(ctx, "asiento reversado", reversion, usuarioID)
	return reversion, nil
}

// PostAsientoCierre creates and approves the annual closing entry in one
// transaction. The target period is already CERRADO, so the open-period
// gate is deliberately skipped here.
func (s *Service) PostAsientoCierre(ctx context.Context, in periods.AsientoCierreInput) (periods.AsientoCierreRef, error) {
	lineas := make([]Linea, len(in.Lineas))
	var totalDebito, totalCredito float64
	for i, l := range in.Lineas {
		lineas[i] = Linea{
			CuentaCodigo: l.CuentaCodigo,
			CuentaNombre: l.CuentaNombre,
			Debito:       l.Debito,
			Credito:      l.Credito,
			Descripcion:  l.Descripcion,
			Orden:        i + 1,
		}
		totalDebito += l.Debito
		totalCredito += l.Credito
	}

	var ref periods.AsientoCierreRef
	err := s.inTxWithNumeroRetry(ctx, func(ctx context.Context, tx TxRepository) error {
		periodo, err := tx.ResolvePeriodoForUpdate(ctx, in.Fecha)
		if err != nil {
			return err
		}
		numero, err := tx.NextNumero(ctx, in.Fecha.Year())
		if err != nil {
			return err
		}
		ahora := s.now()
		asiento, err := tx.InsertAsiento(ctx, Asiento{
			Numero:          numero,
			PeriodoID:       periodo.ID,
			Fecha:           in.Fecha,
			Tipo:            TipoCierre,
			Descripcion:     in.Descripcion,
			TotalDebito:     totalDebito,
			TotalCredito:    totalCredito,
			Estado:          EstadoAprobado,
			CreadoPor:       in.UsuarioID,
			AprobadoPor:     &in.UsuarioID,
			FechaAprobacion: &ahora,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertLineas(ctx, asiento.ID, lineas); err != nil {
			return err
		}
		if err := tx.ApplyLedger(ctx, in.Fecha, movimientos(lineas)); err != nil {
			return err
		}
		ref = periods.AsientoCierreRef{ID: asiento.ID, Numero: asiento.Numero}
		return nil
	})
	if err != nil {
		return periods.AsientoCierreRef{}, err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "asiento de cierre registrado",
			slog.String("numero", ref.Numero), slog.Int64("usuario", in.UsuarioID))
	}
	return ref, nil
}

// SetSiigoID records the external system identifier after a successful sync.
func (s *Service) SetSiigoID(ctx context.Context, id int64, siigoID string) error {
	return s.repo.SetSiigoID(ctx, id, siigoID)
}

// resolverLineas validates every account against the catalog and fills
// in missing names.
func (s *Service) resolverLineas(ctx context.Context, in []LineaInput) ([]Linea, error) {
	lineas := make([]Linea, len(in))
	for i, l := range in {
		cuenta, err := s.cuentas.ValidateActiva(ctx, l.CuentaCodigo)
		if err != nil {
			return nil, err
		}
		nombre := l.CuentaNombre
		if nombre == "" {
			nombre = cuenta.Nombre
		}
		lineas[i] = Linea{
			CuentaCodigo:  l.CuentaCodigo,
			CuentaNombre:  nombre,
			Debito:        l.Debito,
			Credito:       l.Credito,
			Descripcion:   l.Descripcion,
			TerceroTipo:   l.TerceroTipo,
			TerceroID:     l.TerceroID,
			TerceroNombre: l.TerceroNombre,
			CentroCostoID: l.CentroCostoID,
			Orden:         i + 1,
		}
	}
	return lineas, nil
}

func (s *Service) inTxWithNumeroRetry(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	var err error
	for intento := 0; intento < maxNumeroRetries; intento++ {
		err = s.repo.WithTx(ctx, fn)
		if !errors.Is(err, shared.ErrNumeroConflict) {
			return err
		}
	}
	return err
}

func (s *Service) log(ctx context.Context, msg string, a Asiento, usuarioID int64) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, msg,
		slog.String("numero", a.Numero),
		slog.String("estado", string(a.Estado)),
		slog.Float64("total", a.TotalDebito),
		slog.Int64("usuario", usuarioID))
}

func movimientos(lineas []Linea) []ledger.Movimiento {
	movs := make([]ledger.Movimiento, len(lineas))
	for i, l := range lineas {
		movs[i] = ledger.Movimiento{
			CuentaCodigo:  l.CuentaCodigo,
			CentroCostoID: l.CentroCostoID,
			Debito:        l.Debito,
			Credito:       l.Credito,
		}
	}
	return movs
}
