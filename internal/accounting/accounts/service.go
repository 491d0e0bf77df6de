package accounts

import (
	"context"

	"github.com/clinicamia/contable/internal/accounting/shared"
)

// Service exposes read-only catalog lookups used by the rest of the core.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByCodigo(ctx context.Context, codigo string) (Cuenta, error) {
	return s.repo.GetByCodigo(ctx, codigo)
}

func (s *Service) List(ctx context.Context, soloActivas bool) ([]Cuenta, error) {
	return s.repo.List(ctx, soloActivas)
}

func (s *Service) ListByTipo(ctx context.Context, tipo Tipo) ([]Cuenta, error) {
	return s.repo.ListByTipo(ctx, tipo)
}

func (s *Service) Search(ctx context.Context, prefijo string) ([]Cuenta, error) {
	return s.repo.SearchByPrefijo(ctx, prefijo)
}

// ValidateActiva resolves a code and rejects missing or inactive accounts.
func (s *Service) ValidateActiva(ctx context.Context, codigo string) (Cuenta, error) {
	cuenta, err := s.repo.GetByCodigo(ctx, codigo)
	if err != nil {
		if shared.IsNotFound(err) {
			return Cuenta{}, shared.Validationf("cuenta %s no existe en el PUC", codigo)
		}
		return Cuenta{}, err
	}
	if !cuenta.Activa {
		return Cuenta{}, shared.Validationf("cuenta %s está inactiva", codigo)
	}
	return cuenta, nil
}
