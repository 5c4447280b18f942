package http

import (
	"time"

	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/request"
	"github.com/nekogravitycat/rental-crm-backend/internal/rentalcompany"
)

// ListRentalCompaniesRequest defines query parameters for listing rental companies.
type ListRentalCompaniesRequest struct {
	request.ListParams
	Q      string `form:"q"`
	SortBy string `form:"sort_by" binding:"omitempty,oneof=name code created_at"`
}

type RentalCompanyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Phone     string    `json:"phone"`
	Website   string    `json:"website"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewRentalCompanyResponse(rc *rentalcompany.RentalCompany) RentalCompanyResponse {
	return RentalCompanyResponse{
		ID:        rc.ID,
		Name:      rc.Name,
		Code:      rc.Code,
		Phone:     rc.Phone,
		Website:   rc.Website,
		CreatedAt: rc.CreatedAt,
		UpdatedAt: rc.UpdatedAt,
	}
}

type CreateRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=100"`
	Code    string `json:"code" binding:"omitempty,max=10"`
	Phone   string `json:"phone" binding:"omitempty,max=30"`
	Website string `json:"website" binding:"omitempty,url"`
}

type UpdateRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=1,max=100"`
	Code    *string `json:"code" binding:"omitempty,max=10"`
	Phone   *string `json:"phone" binding:"omitempty,max=30"`
	Website *string `json:"website" binding:"omitempty,url"`
}
