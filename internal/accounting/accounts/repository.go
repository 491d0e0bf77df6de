package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicamia/contable/internal/accounting/shared"
)

// Repository encapsulates read access to the chart of accounts.
type Repository interface {
	GetByCodigo(ctx context.Context, codigo string) (Cuenta, error)
	List(ctx context.Context, soloActivas bool) ([]Cuenta, error)
	ListByTipo(ctx context.Context, tipo Tipo) ([]Cuenta, error)
	SearchByPrefijo(ctx context.Context, prefijo string) ([]Cuenta, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed catalog repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const cuentaColumns = `id, codigo, nombre, tipo, naturaleza, activa, created_at, updated_at`

func scanCuenta(row pgx.Row) (Cuenta, error) {
	var c Cuenta
	err := row.Scan(&c.ID, &c.Codigo, &c.Nombre, &c.Tipo, &c.Naturaleza, &c.Activa, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *repository) GetByCodigo(ctx context.Context, codigo string) (Cuenta, error) {
	c, err := scanCuenta(r.db.QueryRow(ctx,
		`SELECT `+cuentaColumns+` FROM cuentas_contables WHERE codigo=$1`, codigo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cuenta{}, shared.NotFoundf("cuenta %s no existe en el PUC", codigo)
		}
		return Cuenta{}, err
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, soloActivas bool) ([]Cuenta, error) {
	query := `SELECT ` + cuentaColumns + ` FROM cuentas_contables ORDER BY codigo ASC`
	if soloActivas {
		query = `SELECT ` + cuentaColumns + ` FROM cuentas_contables WHERE activa ORDER BY codigo ASC`
	}
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCuentas(rows)
}

func (r *repository) ListByTipo(ctx context.Context, tipo Tipo) ([]Cuenta, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+cuentaColumns+` FROM cuentas_contables WHERE tipo=$1 AND activa ORDER BY codigo ASC`, tipo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCuentas(rows)
}

func (r *repository) SearchByPrefijo(ctx context.Context, prefijo string) ([]Cuenta, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+cuentaColumns+` FROM cuentas_contables WHERE codigo LIKE $1 || '%' ORDER BY codigo ASC`, prefijo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCuentas(rows)
}

func collectCuentas(rows pgx.Rows) ([]Cuenta, error) {
	var out []Cuenta
	for rows.Next() {
		c, err := scanCuenta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
