package journals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicamia/contable/internal/accounting/ledger"
	"github.com/clinicamia/contable/internal/accounting/periods"
	"github.com/clinicamia/contable/internal/accounting/shared"
	"github.com/clinicamia/contable/internal/platform/db"
)

// Repository encapsulates DB operations for asientos.
type Repository interface {
	GetByID(ctx context.Context, id int64) (Asiento, error)
	List(ctx context.Context, filter ListFilter) ([]Asiento, int, error)
	Stats(ctx context.Context, periodoID int64) (Stats, error)
	SetSiigoID(ctx context.Context, id int64, siigoID string) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available inside a transaction.
// Period and ledger statements are duplicated here from their own repos
// so every step of a state transition commits atomically.
type TxRepository interface {
	NextNumero(ctx context.Context, anio int) (string, error)
	InsertAsiento(ctx context.Context, a Asiento) (Asiento, error)
	InsertLineas(ctx context.Context, asientoID int64, lineas []Linea) error
	DeleteLineas(ctx context.Context, asientoID int64) error
	GetAsientoForUpdate(ctx context.Context, id int64) (Asiento, error)
	UpdateAsiento(ctx context.Context, a Asiento) error
	SetAprobado(ctx context.Context, id, usuarioID int64, ts time.Time) error
	SetAnulado(ctx context.Context, id, usuarioID int64, ts time.Time, motivo string) error

	ResolvePeriodoForUpdate(ctx context.Context, fecha time.Time) (periods.Periodo, error)
	GetPeriodoForUpdate(ctx context.Context, periodoID int64) (periods.Periodo, error)

	ApplyLedger(ctx context.Context, fecha time.Time, movs []ledger.Movimiento) error
	ReverseLedger(ctx context.Context, fecha time.Time, movs []ledger.Movimiento) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed asientos repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const asientoColumns = `a.id, a.numero, a.periodo_id, p.nombre, a.fecha, a.tipo, a.descripcion,
a.total_debito, a.total_credito, a.estado, a.creado_por, a.aprobado_por, a.fecha_aprobacion,
a.anulado_por, a.fecha_anulacion, COALESCE(a.motivo_anulacion,''), COALESCE(a.tipo_doc_origen,''),
a.doc_origen_id, a.es_reversion, a.asiento_original_id, COALESCE(a.siigo_id,''), a.created_at, a.updated_at`

func scanAsiento(row pgx.Row) (Asiento, error) {
	var a Asiento
	err := row.Scan(&a.ID, &a.Numero, &a.PeriodoID, &a.PeriodoNombre, &a.Fecha, &a.Tipo, &a.Descripcion,
		&a.TotalDebito, &a.TotalCredito, &a.Estado, &a.CreadoPor, &a.AprobadoPor, &a.FechaAprobacion,
		&a.AnuladoPor, &a.FechaAnulacion, &a.MotivoAnulacion, &a.TipoDocOrigen,
		&a.DocOrigenID, &a.EsReversion, &a.AsientoOriginalID, &a.SiigoID, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) GetByID(ctx context.Context, id int64) (Asiento, error) {
	a, err := scanAsiento(r.db.QueryRow(ctx, `
SELECT `+asientoColumns+`
FROM asientos_contables a
JOIN periodos_contables p ON p.id = a.periodo_id
WHERE a.id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asiento{}, shared.NotFoundf("asiento contable %d no encontrado", id)
		}
		return Asiento{}, err
	}
	lineas, err := r.lineas(ctx, id)
	if err != nil {
		return Asiento{}, err
	}
	a.Lineas = lineas
	return a, nil
}

func (r *repository) lineas(ctx context.Context, asientoID int64) ([]Linea, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, asiento_id, cuenta_codigo, cuenta_nombre, debito, credito, COALESCE(descripcion,''),
  COALESCE(tercero_tipo,''), tercero_id, COALESCE(tercero_nombre,''), COALESCE(centro_costo_id,''), orden
FROM asiento_lineas WHERE asiento_id=$1 ORDER BY orden ASC`, asientoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Linea
	for rows.Next() {
		var l Linea
		if err := rows.Scan(&l.ID, &l.AsientoID, &l.CuentaCodigo, &l.CuentaNombre, &l.Debito, &l.Credito,
			&l.Descripcion, &l.TerceroTipo, &l.TerceroID, &l.TerceroNombre, &l.CentroCostoID, &l.Orden); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Asiento, int, error) {
	filter = filter.normalize()
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.PeriodoID != 0 {
		where = append(where, "a.periodo_id = "+arg(filter.PeriodoID))
	}
	if filter.Estado != "" {
		where = append(where, "a.estado = "+arg(filter.Estado))
	}
	if filter.Tipo != "" {
		where = append(where, "a.tipo = "+arg(filter.Tipo))
	}
	if filter.FechaInicio != nil && filter.FechaFin != nil {
		where = append(where, "a.fecha BETWEEN "+arg(*filter.FechaInicio)+" AND "+arg(*filter.FechaFin))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where = append(where, "(a.numero ILIKE "+arg(pattern)+" OR a.descripcion ILIKE "+arg(pattern)+")")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM asientos_contables a`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
SELECT ` + asientoColumns + `
FROM asientos_contables a
JOIN periodos_contables p ON p.id = a.periodo_id` + clause + `
ORDER BY a.fecha DESC, a.numero DESC
LIMIT ` + arg(filter.Limit) + ` OFFSET ` + arg((filter.Page-1)*filter.Limit)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Asiento
	for rows.Next() {
		a, err := scanAsiento(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range out {
		lineas, err := r.lineas(ctx, out[i].ID)
		if err != nil {
			return nil, 0, err
		}
		out[i].Lineas = lineas
	}
	return out, total, nil
}

func (r *repository) Stats(ctx context.Context, periodoID int64) (Stats, error) {
	clause := ""
	var args []any
	if periodoID != 0 {
		clause = " WHERE periodo_id=$1"
		args = append(args, periodoID)
	}
	rows, err := r.db.Query(ctx,
		`SELECT estado, tipo, COUNT(*) FROM asientos_contables`+clause+` GROUP BY estado, tipo`, args...)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	st := Stats{PorEstado: map[Estado]int{}, PorTipo: map[Tipo]int{}}
	for rows.Next() {
		var estado Estado
		var tipo Tipo
		var n int
		if err := rows.Scan(&estado, &tipo, &n); err != nil {
			return Stats{}, err
		}
		st.Total += n
		st.PorEstado[estado] += n
		st.PorTipo[tipo] += n
	}
	return st, rows.Err()
}

func (r *repository) SetSiigoID(ctx context.Context, id int64, siigoID string) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE asientos_contables SET siigo_id=$2, updated_at=NOW() WHERE id=$1`, id, siigoID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("asiento contable %d no encontrado", id)
	}
	return nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

// NextNumero assigns the next AC-<anio>-<seq> identifier. The advisory
// lock serializes the max-scan per year; the unique index on numero
// backstops anything that slips through.
func (r *txRepository) NextNumero(ctx context.Context, anio int) (string, error) {
	if _, err := r.tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext('asiento_numero'), $1)`, anio); err != nil {
		return "", err
	}
	prefix := fmt.Sprintf("AC-%d-", anio)
	var max int
	err := r.tx.QueryRow(ctx, `
SELECT COALESCE(MAX(CAST(SPLIT_PART(numero, '-', 3) AS INT)), 0)
FROM asientos_contables WHERE numero LIKE $1 || '%'`, prefix).Scan(&max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%05d", prefix, max+1), nil
}

func (r *txRepository) InsertAsiento(ctx context.Context, a Asiento) (Asiento, error) {
	err := r.tx.QueryRow(ctx, `
INSERT INTO asientos_contables (numero, periodo_id, fecha, tipo, descripcion, total_debito,
  total_credito, estado, creado_por, aprobado_por, fecha_aprobacion, tipo_doc_origen,
  doc_origen_id, es_reversion, asiento_original_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NULLIF($12,''),$13,$14,$15)
RETURNING id, created_at, updated_at`,
		a.Numero, a.PeriodoID, a.Fecha, a.Tipo, a.Descripcion, a.TotalDebito,
		a.TotalCredito, a.Estado, a.CreadoPor, a.AprobadoPor, a.FechaAprobacion,
		a.TipoDocOrigen, a.DocOrigenID, a.EsReversion, a.AsientoOriginalID).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_asientos_numero" {
			return Asiento{}, shared.ErrNumeroConflict
		}
		return Asiento{}, err
	}
	return a, nil
}

func (r *txRepository) InsertLineas(ctx context.Context, asientoID int64, lineas []Linea) error {
	for _, l := range lineas {
		if _, err := r.tx.Exec(ctx, `
INSERT INTO asiento_lineas (asiento_id, cuenta_codigo, cuenta_nombre, debito, credito,
  descripcion, tercero_tipo, tercero_id, tercero_nombre, centro_costo_id, orden)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,''),$8,NULLIF($9,''),NULLIF($10,''),$11)`,
			asientoID, l.CuentaCodigo, l.CuentaNombre, l.Debito, l.Credito,
			l.Descripcion, l.TerceroTipo, l.TerceroID, l.TerceroNombre, l.CentroCostoID, l.Orden); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) DeleteLineas(ctx context.Context, asientoID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM asiento_lineas WHERE asiento_id=$1`, asientoID)
	return err
}

func (r *txRepository) GetAsientoForUpdate(ctx context.Context, id int64) (Asiento, error) {
	a, err := scanAsiento(r.tx.QueryRow(ctx, `
SELECT `+asientoColumns+`
FROM asientos_contables a
JOIN periodos_contables p ON p.id = a.periodo_id
WHERE a.id=$1 FOR UPDATE OF a`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asiento{}, shared.NotFoundf("asiento contable %d no encontrado", id)
		}
		return Asiento{}, err
	}
	rows, err := r.tx.Query(ctx, `
SELECT id, asiento_id, cuenta_codigo, cuenta_nombre, debito, credito, COALESCE(descripcion,''),
  COALESCE(tercero_tipo,''), tercero_id, COALESCE(tercero_nombre,''), COALESCE(centro_costo_id,''), orden
FROM asiento_lineas WHERE asiento_id=$1 ORDER BY orden ASC`, id)
	if err != nil {
		return Asiento{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l Linea
		if err := rows.Scan(&l.ID, &l.AsientoID, &l.CuentaCodigo, &l.CuentaNombre, &l.Debito, &l.Credito,
			&l.Descripcion, &l.TerceroTipo, &l.TerceroID, &l.TerceroNombre, &l.CentroCostoID, &l.Orden); err != nil {
			return Asiento{}, err
		}
		a.Lineas = append(a.Lineas, l)
	}
	return a, rows.Err()
}

func (r *txRepository) UpdateAsiento(ctx context.Context, a Asiento) error {
	cmd, err := r.tx.Exec(ctx, `
UPDATE asientos_contables
SET fecha=$2, tipo=$3, descripcion=$4, total_debito=$5, total_credito=$6, periodo_id=$7, updated_at=NOW()
WHERE id=$1`, a.ID, a.Fecha, a.Tipo, a.Descripcion, a.TotalDebito, a.TotalCredito, a.PeriodoID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("asiento contable %d no encontrado", a.ID)
	}
	return nil
}

func (r *txRepository) SetAprobado(ctx context.Context, id, usuarioID int64, ts time.Time) error {
	_, err := r.tx.Exec(ctx, `
UPDATE asientos_contables
SET estado='APROBADO', aprobado_por=$2, fecha_aprobacion=$3, updated_at=NOW()
WHERE id=$1`, id, usuarioID, ts)
	return err
}

func (r *txRepository) SetAnulado(ctx context.Context, id, usuarioID int64, ts time.Time, motivo string) error {
	_, err := r.tx.Exec(ctx, `
UPDATE asientos_contables
SET estado='ANULADO', anulado_por=$2, fecha_anulacion=$3, motivo_anulacion=$4, updated_at=NOW()
WHERE id=$1`, id, usuarioID, ts, motivo)
	return err
}

// ResolvePeriodoForUpdate duplicates the lazy find-or-create from the
// periods repo so the period row stays locked for the rest of this
// transaction.
func (r *txRepository) ResolvePeriodoForUpdate(ctx context.Context, fecha time.Time) (periods.Periodo, error) {
	anio, mes := fecha.Year(), int(fecha.Month())
	p, err := r.periodoByAnioMes(ctx, anio, mes)
	if err == nil {
		return p, nil
	}
	if !shared.IsNotFound(err) {
		return periods.Periodo{}, err
	}
	nuevo := periods.NewPeriodo(anio, mes)
	_, err = r.tx.Exec(ctx, `
INSERT INTO periodos_contables (anio, mes, nombre, fecha_inicio, fecha_fin, estado)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (anio, mes) DO NOTHING`,
		nuevo.Anio, nuevo.Mes, nuevo.Nombre, nuevo.FechaInicio, nuevo.FechaFin, nuevo.Estado)
	if err != nil {
		return periods.Periodo{}, err
	}
	return r.periodoByAnioMes(ctx, anio, mes)
}

func (r *txRepository) periodoByAnioMes(ctx context.Context, anio, mes int) (periods.Periodo, error) {
	var p periods.Periodo
	err := r.tx.QueryRow(ctx, `
SELECT id, anio, mes, nombre, fecha_inicio, fecha_fin, estado, fecha_cierre, cerrado_por, created_at, updated_at
FROM periodos_contables WHERE anio=$1 AND mes=$2 FOR UPDATE`, anio, mes).
		Scan(&p.ID, &p.Anio, &p.Mes, &p.Nombre, &p.FechaInicio, &p.FechaFin,
			&p.Estado, &p.FechaCierre, &p.CerradoPor, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return periods.Periodo{}, shared.NotFoundf("período %s no encontrado", periods.Nombre(anio, mes))
		}
		return periods.Periodo{}, err
	}
	return p, nil
}

func (r *txRepository) GetPeriodoForUpdate(ctx context.Context, periodoID int64) (periods.Periodo, error) {
	var p periods.Periodo
	err := r.tx.QueryRow(ctx, `
SELECT id, anio, mes, nombre, fecha_inicio, fecha_fin, estado, fecha_cierre, cerrado_por, created_at, updated_at
FROM periodos_contables WHERE id=$1 FOR UPDATE`, periodoID).
		Scan(&p.ID, &p.Anio, &p.Mes, &p.Nombre, &p.FechaInicio, &p.FechaFin,
			&p.Estado, &p.FechaCierre, &p.CerradoPor, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return periods.Periodo{}, shared.NotFoundf("período contable %d no encontrado", periodoID)
		}
		return periods.Periodo{}, err
	}
	return p, nil
}

func (r *txRepository) ApplyLedger(ctx context.Context, fecha time.Time, movs []ledger.Movimiento) error {
	for _, mov := range movs {
		if err := ledger.ApplyLineTx(ctx, r.tx, fecha, mov); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) ReverseLedger(ctx context.Context, fecha time.Time, movs []ledger.Movimiento) error {
	for _, mov := range movs {
		if err := ledger.ReverseLineTx(ctx, r.tx, fecha, mov); err != nil {
			return err
		}
	}
	return nil
}
