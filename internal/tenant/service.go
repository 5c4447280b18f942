package tenant

import (
	"context"
	"strings"
)

type Service interface {
	GetByID(ctx context.Context, id string) (*Tenant, error)
	Rename(ctx context.Context, id, name string) (*Tenant, error)
	MarkVerified(ctx context.Context, id string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id string) (*Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Rename(ctx context.Context, id, name string) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	return s.repo.UpdateName(ctx, id, name)
}

// MarkVerified is idempotent.
func (s *service) MarkVerified(ctx context.Context, id string) error {
	return s.repo.MarkVerified(ctx, id)
}
