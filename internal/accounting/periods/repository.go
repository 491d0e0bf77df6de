package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicamia/contable/internal/accounting/shared"
	"github.com/clinicamia/contable/internal/platform/db"
)

// Repository encapsulates DB operations for the period calendar.
type Repository interface {
	GetByID(ctx context.Context, id int64) (Periodo, error)
	GetByAnioMes(ctx context.Context, anio, mes int) (Periodo, error)
	List(ctx context.Context, anio int) ([]Periodo, error)
	ListAnio(ctx context.Context, anio int) ([]Periodo, error)
	Stats(ctx context.Context) (Stats, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the mutations available inside a transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Periodo, error)
	GetByAnioMesForUpdate(ctx context.Context, anio, mes int) (Periodo, error)
	Insert(ctx context.Context, p Periodo) (Periodo, error)
	CountAsientosBorrador(ctx context.Context, periodoID int64) (int, error)
	CountPosterioresCerrados(ctx context.Context, anio, mes int) (int, error)
	SetCerrado(ctx context.Context, id int64, fechaCierre time.Time, usuarioID int64) error
	SetAbierto(ctx context.Context, id int64) error
	InsertCierre(ctx context.Context, c Cierre) (Cierre, error)
	MarkCierresReversados(ctx context.Context, periodoID, usuarioID int64, motivo string) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed period repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const periodoColumns = `id, anio, mes, nombre, fecha_inicio, fecha_fin, estado, fecha_cierre, cerrado_por, created_at, updated_at`

func scanPeriodo(row pgx.Row) (Periodo, error) {
	var p Periodo
	err := row.Scan(&p.ID, &p.Anio, &p.Mes, &p.Nombre, &p.FechaInicio, &p.FechaFin,
		&p.Estado, &p.FechaCierre, &p.CerradoPor, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) GetByID(ctx context.Context, id int64) (Periodo, error) {
	p, err := scanPeriodo(r.db.QueryRow(ctx,
		`SELECT `+periodoColumns+` FROM periodos_contables WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Periodo{}, shared.NotFoundf("período contable %d no encontrado", id)
		}
		return Periodo{}, err
	}
	return p, nil
}

func (r *repository) GetByAnioMes(ctx context.Context, anio, mes int) (Periodo, error) {
	p, err := scanPeriodo(r.db.QueryRow(ctx,
		`SELECT `+periodoColumns+` FROM periodos_contables WHERE anio=$1 AND mes=$2`, anio, mes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Periodo{}, shared.NotFoundf("período %s no encontrado", Nombre(anio, mes))
		}
		return Periodo{}, err
	}
	return p, nil
}

func (r *repository) List(ctx context.Context, anio int) ([]Periodo, error) {
	query := `SELECT ` + periodoColumns + ` FROM periodos_contables ORDER BY anio DESC, mes DESC`
	args := []any{}
	if anio > 0 {
		query = `SELECT ` + periodoColumns + ` FROM periodos_contables WHERE anio=$1 ORDER BY mes DESC`
		args = append(args, anio)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPeriodos(rows)
}

func (r *repository) ListAnio(ctx context.Context, anio int) ([]Periodo, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+periodoColumns+` FROM periodos_contables WHERE anio=$1 ORDER BY mes ASC`, anio)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPeriodos(rows)
}

func (r *repository) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := r.db.QueryRow(ctx, `
SELECT COUNT(*),
  COUNT(*) FILTER (WHERE estado='ABIERTO'),
  COUNT(*) FILTER (WHERE estado='CERRADO')
FROM periodos_contables`).Scan(&st.Total, &st.Abiertos, &st.Cerrados)
	if err != nil {
		return Stats{}, err
	}
	var nombre string
	err = r.db.QueryRow(ctx, `
SELECT nombre FROM periodos_contables WHERE estado='CERRADO'
ORDER BY anio DESC, mes DESC LIMIT 1`).Scan(&nombre)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return Stats{}, err
	}
	st.UltimoCierre = nombre
	return st, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Periodo, error) {
	p, err := scanPeriodo(r.tx.QueryRow(ctx,
		`SELECT `+periodoColumns+` FROM periodos_contables WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Periodo{}, shared.NotFoundf("período contable %d no encontrado", id)
		}
		return Periodo{}, err
	}
	return p, nil
}

func (r *txRepository) GetByAnioMesForUpdate(ctx context.Context, anio, mes int) (Periodo, error) {
	p, err := scanPeriodo(r.tx.QueryRow(ctx,
		`SELECT `+periodoColumns+` FROM periodos_contables WHERE anio=$1 AND mes=$2 FOR UPDATE`, anio, mes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Periodo{}, shared.NotFoundf("período %s no encontrado", Nombre(anio, mes))
		}
		return Periodo{}, err
	}
	return p, nil
}

func (r *txRepository) Insert(ctx context.Context, p Periodo) (Periodo, error) {
	row := r.tx.QueryRow(ctx, `
INSERT INTO periodos_contables (anio, mes, nombre, fecha_inicio, fecha_fin, estado)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (anio, mes) DO NOTHING
RETURNING `+periodoColumns, p.Anio, p.Mes, p.Nombre, p.FechaInicio, p.FechaFin, p.Estado)
	inserted, err := scanPeriodo(row)
	if err != nil {
		// Lost the insert race; the existing row wins.
		if errors.Is(err, pgx.ErrNoRows) {
			return r.GetByAnioMesForUpdate(ctx, p.Anio, p.Mes)
		}
		return Periodo{}, err
	}
	return inserted, nil
}

func (r *txRepository) CountAsientosBorrador(ctx context.Context, periodoID int64) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM asientos_contables WHERE periodo_id=$1 AND estado='BORRADOR'`, periodoID).Scan(&n)
	return n, err
}

func (r *txRepository) CountPosterioresCerrados(ctx context.Context, anio, mes int) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `
SELECT COUNT(*) FROM periodos_contables
WHERE estado='CERRADO' AND (anio > $1 OR (anio = $1 AND mes > $2))`, anio, mes).Scan(&n)
	return n, err
}

func (r *txRepository) SetCerrado(ctx context.Context, id int64, fechaCierre time.Time, usuarioID int64) error {
	cmd, err := r.tx.Exec(ctx, `
UPDATE periodos_contables SET estado='CERRADO', fecha_cierre=$2, cerrado_por=$3, updated_at=NOW()
WHERE id=$1`, id, fechaCierre, usuarioID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("período contable %d no encontrado", id)
	}
	return nil
}

func (r *txRepository) SetAbierto(ctx context.Context, id int64) error {
	cmd, err := r.tx.Exec(ctx, `
UPDATE periodos_contables SET estado='ABIERTO', fecha_cierre=NULL, cerrado_por=NULL, updated_at=NOW()
WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("período contable %d no encontrado", id)
	}
	return nil
}

func (r *txRepository) InsertCierre(ctx context.Context, c Cierre) (Cierre, error) {
	err := r.tx.QueryRow(ctx, `
INSERT INTO cierres_contables (periodo_id, tipo, fecha_cierre, total_activos, total_pasivos,
  total_patrimonio, total_ingresos, total_gastos, utilidad_perdida, asiento_cierre_id,
  ejecutado_por, estado, observaciones)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
RETURNING id`,
		c.PeriodoID, c.Tipo, c.FechaCierre, c.TotalActivos, c.TotalPasivos,
		c.TotalPatrimonio, c.TotalIngresos, c.TotalGastos, c.UtilidadPerdida,
		c.AsientoCierreID, c.EjecutadoPor, c.Estado, c.Observaciones).Scan(&c.ID)
	if err != nil {
		return Cierre{}, err
	}
	return c, nil
}

func (r *txRepository) MarkCierresReversados(ctx context.Context, periodoID, usuarioID int64, motivo string) error {
	_, err := r.tx.Exec(ctx, `
UPDATE cierres_contables SET estado='REVERSADO', reversado_por=$2, fecha_reversion=NOW(), observaciones=$3
WHERE periodo_id=$1 AND estado='VIGENTE'`, periodoID, usuarioID, motivo)
	return err
}

func collectPeriodos(rows pgx.Rows) ([]Periodo, error) {
	var out []Periodo
	for rows.Next() {
		p, err := scanPeriodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
