package sources

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicamia/contable/internal/accounting/shared"
)

// Repository reads billing documents owned by the clinical modules. This
// package never writes to those tables.
type Repository interface {
	GetFactura(ctx context.Context, id uuid.UUID) (Factura, error)
	GetPago(ctx context.Context, id uuid.UUID) (Pago, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) GetFactura(ctx context.Context, id uuid.UUID) (Factura, error) {
	var f Factura
	err := r.db.QueryRow(ctx, `
SELECT f.id, f.numero, f.fecha_emision, f.subtotal, f.impuestos, f.total, f.estado,
  f.paciente_id, p.nombre || ' ' || p.apellido
FROM facturas f
JOIN pacientes p ON p.id = f.paciente_id
WHERE f.id=$1`, id).
		Scan(&f.ID, &f.Numero, &f.FechaEmision, &f.Subtotal, &f.Impuestos, &f.Total,
			&f.Estado, &f.PacienteID, &f.PacienteNombre)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Factura{}, shared.NotFoundf("factura %s no encontrada", id)
		}
		return Factura{}, err
	}
	return f, nil
}

func (r *repository) GetPago(ctx context.Context, id uuid.UUID) (Pago, error) {
	var p Pago
	err := r.db.QueryRow(ctx, `
SELECT pg.id, pg.factura_id, f.numero, pg.fecha, pg.monto, pg.metodo_pago,
  f.paciente_id, pa.nombre || ' ' || pa.apellido
FROM pagos pg
JOIN facturas f ON f.id = pg.factura_id
JOIN pacientes pa ON pa.id = f.paciente_id
WHERE pg.id=$1`, id).
		Scan(&p.ID, &p.FacturaID, &p.FacturaNumero, &p.Fecha, &p.Monto, &p.MetodoPago,
			&p.PacienteID, &p.PacienteNombre)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pago{}, shared.NotFoundf("pago %s no encontrado", id)
		}
		return Pago{}, err
	}
	return p, nil
}
