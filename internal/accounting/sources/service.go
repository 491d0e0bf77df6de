package sources

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/clinicamia/contable/internal/accounting/journals"
	"github.com/clinicamia/contable/internal/accounting/shared"
)

// PUC codes used by the automatic postings.
const (
	cuentaCaja             = "110505"
	cuentaBancos           = "111005"
	cuentaClientes         = "130505"
	cuentaIngresosServicio = "410505"
	cuentaIVAPorPagar      = "240804"
)

// Asientos is the slice of the journal manager the automatic postings use.
type Asientos interface {
	Create(ctx context.Context, in journals.CreateInput, usuarioID int64) (journals.Asiento, error)
}

// Service turns billing documents into draft asientos ready for review.
type Service struct {
	repo     Repository
	asientos Asientos
	logger   *slog.Logger
}

func NewService(repo Repository, asientos Asientos, logger *slog.Logger) *Service {
	return &Service{repo: repo, asientos: asientos, logger: logger}
}

// CreateFromFactura posts the revenue recognition for an issued invoice:
// receivable against service revenue plus the output VAT.
func (s *Service) CreateFromFactura(ctx context.Context, facturaID uuid.UUID, usuarioID int64) (journals.Asiento, error) {
	f, err := s.repo.GetFactura(ctx, facturaID)
	if err != nil {
		return journals.Asiento{}, err
	}
	if f.Total <= 0 {
		return journals.Asiento{}, shared.Validationf("la factura %s no tiene valor", f.Numero)
	}

	lineas := []journals.LineaInput{
		{
			CuentaCodigo:  cuentaClientes,
			Debito:        f.Total,
			Descripcion:   fmt.Sprintf("Factura %s", f.Numero),
			TerceroTipo:   "PACIENTE",
			TerceroID:     &f.PacienteID,
			TerceroNombre: f.PacienteNombre,
		},
		{
			CuentaCodigo: cuentaIngresosServicio,
			Credito:      f.Subtotal,
			Descripcion:  fmt.Sprintf("Ingresos factura %s", f.Numero),
		},
	}
	if f.Impuestos > 0 {
		lineas = append(lineas, journals.LineaInput{
			CuentaCodigo: cuentaIVAPorPagar,
			Credito:      f.Impuestos,
			Descripcion:  fmt.Sprintf("IVA factura %s", f.Numero),
		})
	}

	return s.post(ctx, journals.CreateInput{
		Fecha:         f.FechaEmision,
		Tipo:          journals.TipoAutomatico,
		Descripcion:   fmt.Sprintf("Causación factura %s - %s", f.Numero, f.PacienteNombre),
		Lineas:        lineas,
		TipoDocOrigen: DocFactura,
		DocOrigenID:   &f.ID,
	}, usuarioID)
}

// CreateFromPago posts the cash receipt of a payment: cash or bank
// against the patient receivable.
func (s *Service) CreateFromPago(ctx context.Context, pagoID uuid.UUID, usuarioID int64) (journals.Asiento, error) {
	p, err := s.repo.GetPago(ctx, pagoID)
	if err != nil {
		return journals.Asiento{}, err
	}
	if p.Monto <= 0 {
		return journals.Asiento{}, shared.Validationf("el pago %s no tiene valor", p.ID)
	}

	return s.post(ctx, journals.CreateInput{
		Fecha:       p.Fecha,
		Tipo:        journals.TipoAutomatico,
		Descripcion: fmt.Sprintf("Recaudo factura %s - %s", p.FacturaNumero, p.PacienteNombre),
		Lineas: []journals.LineaInput{
			{
				CuentaCodigo: cuentaRecaudo(p.MetodoPago),
				Debito:       p.Monto,
				Descripcion:  fmt.Sprintf("Pago factura %s (%s)", p.FacturaNumero, p.MetodoPago),
			},
			{
				CuentaCodigo:  cuentaClientes,
				Credito:       p.Monto,
				Descripcion:   fmt.Sprintf("Abono factura %s", p.FacturaNumero),
				TerceroTipo:   "PACIENTE",
				TerceroID:     &p.PacienteID,
				TerceroNombre: p.PacienteNombre,
			},
		},
		TipoDocOrigen: DocPago,
		DocOrigenID:   &p.ID,
	}, usuarioID)
}

// post registers the asiento in BORRADOR. The draft follows the normal
// review and approval path before it touches the libro mayor.
func (s *Service) post(ctx context.Context, in journals.CreateInput, usuarioID int64) (journals.Asiento, error) {
	creado, err := s.asientos.Create(ctx, in, usuarioID)
	if err != nil {
		return journals.Asiento{}, err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "asiento automático registrado",
			slog.String("numero", creado.Numero),
			slog.String("origen", creado.TipoDocOrigen))
	}
	return creado, nil
}

// Cash payments hit caja; everything else (cards, transfers) lands in
// the bank account.
func cuentaRecaudo(metodoPago string) string {
	if metodoPago == "EFECTIVO" {
		return cuentaCaja
	}
	return cuentaBancos
}
