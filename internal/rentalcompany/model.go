package rentalcompany

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/apperror"
)

var (
	ErrNotFound      = apperror.New(http.StatusNotFound, "rental company not found")
	ErrNameRequired  = apperror.New(http.StatusBadRequest, "name is required")
	ErrNameDuplicate = apperror.New(http.StatusConflict, "a rental company with this name already exists")
)

// RentalCompany is a supplier a tenant books cars with (e.g. Hertz).
type RentalCompany struct {
	ID        string
	TenantID  string
	Name      string
	Code      string
	Phone     string
	Website   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter defines parameters for listing rental companies.
type Filter struct {
	TenantID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
