package rentalcompany

import (
	"context"
	"strings"
)

type CreateRequest struct {
	TenantID string
	Name     string
	Code     string
	Phone    string
	Website  string
}

// UpdateRequest changes only the non-nil fields.
type UpdateRequest struct {
	Name    *string
	Code    *string
	Phone   *string
	Website *string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*RentalCompany, error)
	GetByID(ctx context.Context, tenantID, id string) (*RentalCompany, error)
	List(ctx context.Context, filter Filter) ([]*RentalCompany, int, error)
	Update(ctx context.Context, tenantID, id string, req UpdateRequest) (*RentalCompany, error)
	Delete(ctx context.Context, tenantID, id string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*RentalCompany, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	rc := &RentalCompany{
		TenantID: req.TenantID,
		Name:     name,
		Code:     strings.ToUpper(strings.TrimSpace(req.Code)),
		Phone:    strings.TrimSpace(req.Phone),
		Website:  strings.TrimSpace(req.Website),
	}

	if err := s.repo.Create(ctx, rc); err != nil {
		return nil, err
	}
	return rc, nil
}

func (s *service) GetByID(ctx context.Context, tenantID, id string) (*RentalCompany, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*RentalCompany, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, tenantID, id string, req UpdateRequest) (*RentalCompany, error) {
	rc, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		rc.Name = name
	}
	if req.Code != nil {
		rc.Code = strings.ToUpper(strings.TrimSpace(*req.Code))
	}
	if req.Phone != nil {
		rc.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Website != nil {
		rc.Website = strings.TrimSpace(*req.Website)
	}

	if err := s.repo.Update(ctx, rc); err != nil {
		return nil, err
	}
	return rc, nil
}

func (s *service) Delete(ctx context.Context, tenantID, id string) error {
	return s.repo.Delete(ctx, tenantID, id)
}
