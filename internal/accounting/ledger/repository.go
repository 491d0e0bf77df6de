package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicamia/contable/internal/accounting/accounts"
	"github.com/clinicamia/contable/internal/accounting/shared"
	"github.com/clinicamia/contable/internal/platform/db"
)

// AggRow is a per-(cuenta, centro) debit/credit aggregate over a date range.
type AggRow struct {
	CuentaCodigo  string
	CentroCostoID string
	Debitos       float64
	Creditos      float64
	Movimientos   int
}

// Repository encapsulates DB operations for the libro mayor.
type Repository interface {
	RowsForPeriodo(ctx context.Context, anio, mes int, tipos ...accounts.Tipo) ([]Row, error)
	MovimientosCuenta(ctx context.Context, codigo string, desde, hasta time.Time) ([]MovimientoCuenta, error)
	SumCuentaAntes(ctx context.Context, codigo string, antes time.Time) (debitos, creditos float64, err error)
	GetCuenta(ctx context.Context, codigo string) (accounts.Cuenta, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the mutations available inside a transaction.
type TxRepository interface {
	GetCuenta(ctx context.Context, codigo string) (accounts.Cuenta, error)
	UpsertIncremento(ctx context.Context, anio, mes int, cuenta accounts.Cuenta, mov Movimiento, saldoInicial float64) error
	Decremento(ctx context.Context, anio, mes int, cuenta accounts.Cuenta, mov Movimiento) error
	DeleteRows(ctx context.Context, anio, mes int) error
	InsertRow(ctx context.Context, row Row) error
	AggregateMovimientos(ctx context.Context, desde, hasta time.Time) ([]AggRow, error)
	SumMovimientosAntes(ctx context.Context, codigo, centro string, antes time.Time) (debitos, creditos float64, err error)
	RowsForPeriodo(ctx context.Context, anio, mes int) ([]Row, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed libro mayor repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const rowColumns = `id, anio, mes, cuenta_codigo, cuenta_nombre, cuenta_tipo, cuenta_naturaleza,
centro_costo_id, saldo_inicial, debitos, creditos, saldo_final, num_movimientos, updated_at`

func scanRow(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(&r.ID, &r.Anio, &r.Mes, &r.CuentaCodigo, &r.CuentaNombre, &r.CuentaTipo,
		&r.CuentaNaturaleza, &r.CentroCostoID, &r.SaldoInicial, &r.Debitos, &r.Creditos,
		&r.SaldoFinal, &r.NumMovimientos, &r.UpdatedAt)
	return r, err
}

func (r *repository) RowsForPeriodo(ctx context.Context, anio, mes int, tipos ...accounts.Tipo) ([]Row, error) {
	query := `SELECT ` + rowColumns + ` FROM libro_mayor WHERE anio=$1 AND mes=$2 ORDER BY cuenta_codigo ASC`
	args := []any{anio, mes}
	if len(tipos) > 0 {
		query = `SELECT ` + rowColumns + ` FROM libro_mayor WHERE anio=$1 AND mes=$2 AND cuenta_tipo = ANY($3) ORDER BY cuenta_codigo ASC`
		codes := make([]string, 0, len(tipos))
		for _, t := range tipos {
			codes = append(codes, string(t))
		}
		args = append(args, codes)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRows(rows)
}

func (r *repository) MovimientosCuenta(ctx context.Context, codigo string, desde, hasta time.Time) ([]MovimientoCuenta, error) {
	rows, err := r.db.Query(ctx, `
SELECT a.fecha, a.numero, COALESCE(l.descripcion, a.descripcion), l.debito, l.credito
FROM asiento_lineas l
JOIN asientos_contables a ON a.id = l.asiento_id
WHERE l.cuenta_codigo=$1 AND a.estado='APROBADO' AND a.fecha BETWEEN $2 AND $3
ORDER BY a.fecha ASC, a.numero ASC, l.orden ASC`, codigo, desde, hasta)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MovimientoCuenta
	for rows.Next() {
		var m MovimientoCuenta
		if err := rows.Scan(&m.Fecha, &m.AsientoNumero, &m.Descripcion, &m.Debito, &m.Credito); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) SumCuentaAntes(ctx context.Context, codigo string, antes time.Time) (float64, float64, error) {
	var debitos, creditos float64
	err := r.db.QueryRow(ctx, `
SELECT COALESCE(SUM(l.debito),0), COALESCE(SUM(l.credito),0)
FROM asiento_lineas l
JOIN asientos_contables a ON a.id = l.asiento_id
WHERE l.cuenta_codigo=$1 AND a.estado='APROBADO' AND a.fecha < $2`, codigo, antes).
		Scan(&debitos, &creditos)
	return debitos, creditos, err
}

func (r *repository) GetCuenta(ctx context.Context, codigo string) (accounts.Cuenta, error) {
	return getCuenta(ctx, r.db, codigo)
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func sumMovimientosAntes(ctx context.Context, q queryer, codigo, centro string, antes time.Time) (float64, float64, error) {
	var debitos, creditos float64
	err := q.QueryRow(ctx, `
SELECT COALESCE(SUM(l.debito),0), COALESCE(SUM(l.credito),0)
FROM asiento_lineas l
JOIN asientos_contables a ON a.id = l.asiento_id
WHERE l.cuenta_codigo=$1 AND COALESCE(l.centro_costo_id,'')=$2
  AND a.estado='APROBADO' AND a.fecha < $3`, codigo, centro, antes).
		Scan(&debitos, &creditos)
	return debitos, creditos, err
}

type txRepository struct {
	tx pgx.Tx
}

// getCuenta duplicates the accounts repo lookup so ledger writes can stay
// inside the caller's transaction.
func getCuenta(ctx context.Context, q queryer, codigo string) (accounts.Cuenta, error) {
	var c accounts.Cuenta
	err := q.QueryRow(ctx, `SELECT id, codigo, nombre, tipo, naturaleza, activa, created_at, updated_at
FROM cuentas_contables WHERE codigo=$1`, codigo).
		Scan(&c.ID, &c.Codigo, &c.Nombre, &c.Tipo, &c.Naturaleza, &c.Activa, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounts.Cuenta{}, shared.NotFoundf("cuenta %s no existe en el PUC", codigo)
		}
		return accounts.Cuenta{}, err
	}
	return c, nil
}

func (r *txRepository) GetCuenta(ctx context.Context, codigo string) (accounts.Cuenta, error) {
	return getCuenta(ctx, r.tx, codigo)
}

// UpsertIncremento applies one line to its row atomically. The ON CONFLICT
// arithmetic keeps concurrent increments on the same row correct.
func (r *txRepository) UpsertIncremento(ctx context.Context, anio, mes int, cuenta accounts.Cuenta, mov Movimiento, saldoInicial float64) error {
	delta := SaldoDelta(cuenta.Naturaleza, mov.Debito, mov.Credito)
	_, err := r.tx.Exec(ctx, `
INSERT INTO libro_mayor (anio, mes, cuenta_codigo, cuenta_nombre, cuenta_tipo, cuenta_naturaleza,
  centro_costo_id, saldo_inicial, debitos, creditos, saldo_final, num_movimientos)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$8+$11,1)
ON CONFLICT (anio, mes, cuenta_codigo, centro_costo_id) DO UPDATE SET
  debitos = libro_mayor.debitos + EXCLUDED.debitos,
  creditos = libro_mayor.creditos + EXCLUDED.creditos,
  saldo_final = libro_mayor.saldo_final + $11,
  num_movimientos = libro_mayor.num_movimientos + 1,
  updated_at = NOW()`,
		anio, mes, cuenta.Codigo, cuenta.Nombre, cuenta.Tipo, cuenta.Naturaleza,
		mov.CentroCostoID, saldoInicial, mov.Debito, mov.Credito, delta)
	return err
}

// Decremento undoes one line's effect; used when voiding an approved entry.
func (r *txRepository) Decremento(ctx context.Context, anio, mes int, cuenta accounts.Cuenta, mov Movimiento) error {
	delta := SaldoDelta(cuenta.Naturaleza, mov.Debito, mov.Credito)
	cmd, err := r.tx.Exec(ctx, `
UPDATE libro_mayor SET
  debitos = debitos - $5,
  creditos = creditos - $6,
  saldo_final = saldo_final - $7,
  num_movimientos = num_movimientos - 1,
  updated_at = NOW()
WHERE anio=$1 AND mes=$2 AND cuenta_codigo=$3 AND centro_costo_id=$4`,
		anio, mes, cuenta.Codigo, mov.CentroCostoID, mov.Debito, mov.Credito, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.Consistencyf("libro mayor sin fila para cuenta %s en %d-%02d al revertir", cuenta.Codigo, anio, mes)
	}
	return nil
}

func (r *txRepository) DeleteRows(ctx context.Context, anio, mes int) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM libro_mayor WHERE anio=$1 AND mes=$2`, anio, mes)
	return err
}

func (r *txRepository) InsertRow(ctx context.Context, row Row) error {
	_, err := r.tx.Exec(ctx, `
INSERT INTO libro_mayor (anio, mes, cuenta_codigo, cuenta_nombre, cuenta_tipo, cuenta_naturaleza,
  centro_costo_id, saldo_inicial, debitos, creditos, saldo_final, num_movimientos)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		row.Anio, row.Mes, row.CuentaCodigo, row.CuentaNombre, row.CuentaTipo, row.CuentaNaturaleza,
		row.CentroCostoID, row.SaldoInicial, row.Debitos, row.Creditos, row.SaldoFinal, row.NumMovimientos)
	return err
}

func (r *txRepository) AggregateMovimientos(ctx context.Context, desde, hasta time.Time) ([]AggRow, error) {
	rows, err := r.tx.Query(ctx, `
SELECT l.cuenta_codigo, COALESCE(l.centro_costo_id,''), COALESCE(SUM(l.debito),0), COALESCE(SUM(l.credito),0), COUNT(*)
FROM asiento_lineas l
JOIN asientos_contables a ON a.id = l.asiento_id
WHERE a.estado='APROBADO' AND a.fecha BETWEEN $1 AND $2
GROUP BY l.cuenta_codigo, COALESCE(l.centro_costo_id,'')
ORDER BY l.cuenta_codigo ASC`, desde, hasta)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AggRow
	for rows.Next() {
		var a AggRow
		if err := rows.Scan(&a.CuentaCodigo, &a.CentroCostoID, &a.Debitos, &a.Creditos, &a.Movimientos); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *txRepository) SumMovimientosAntes(ctx context.Context, codigo, centro string, antes time.Time) (float64, float64, error) {
	return sumMovimientosAntes(ctx, r.tx, codigo, centro, antes)
}

func (r *txRepository) RowsForPeriodo(ctx context.Context, anio, mes int) ([]Row, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+rowColumns+` FROM libro_mayor WHERE anio=$1 AND mes=$2 ORDER BY cuenta_codigo ASC`, anio, mes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRows(rows)
}

// ApplyLineTx applies one approved line to the libro mayor inside an
// existing transaction, so a journal status flip and its ledger effect
// commit together.
func ApplyLineTx(ctx context.Context, tx pgx.Tx, fecha time.Time, mov Movimiento) error {
	r := &txRepository{tx: tx}
	cuenta, err := r.GetCuenta(ctx, mov.CuentaCodigo)
	if err != nil {
		return err
	}
	inicio, _ := PeriodoRange(fecha.Year(), int(fecha.Month()))
	debitos, creditos, err := r.SumMovimientosAntes(ctx, mov.CuentaCodigo, mov.CentroCostoID, inicio)
	if err != nil {
		return err
	}
	saldoInicial := SaldoDelta(cuenta.Naturaleza, debitos, creditos)
	return r.UpsertIncremento(ctx, fecha.Year(), int(fecha.Month()), cuenta, mov, saldoInicial)
}

// ReverseLineTx subtracts one line's effect inside an existing transaction.
func ReverseLineTx(ctx context.Context, tx pgx.Tx, fecha time.Time, mov Movimiento) error {
	r := &txRepository{tx: tx}
	cuenta, err := r.GetCuenta(ctx, mov.CuentaCodigo)
	if err != nil {
		return err
	}
	return r.Decremento(ctx, fecha.Year(), int(fecha.Month()), cuenta, mov)
}

func collectRows(rows pgx.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
