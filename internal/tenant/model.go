package tenant

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/apperror"
)

var (
	ErrNotFound     = apperror.New(http.StatusNotFound, "tenant not found")
	ErrNameRequired = apperror.New(http.StatusBadRequest, "company name is required")
)

// Tenant is a rental agency account. Every other record belongs to exactly one tenant.
type Tenant struct {
	ID         string
	Name       string
	IsVerified bool
	CreatedAt  time.Time
}
