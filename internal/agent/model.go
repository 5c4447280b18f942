package agent

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/apperror"
)

var (
	ErrNotFound             = apperror.New(http.StatusNotFound, "agent not found")
	ErrEmailAlreadyUsed     = apperror.New(http.StatusConflict, "email already used")
	ErrInvalidCredentials   = apperror.New(http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAgent        = apperror.New(http.StatusUnauthorized, "agent is inactive")
	ErrEmailNotVerified     = apperror.New(http.StatusForbidden, "email address is not verified")
	ErrAlreadyVerified      = apperror.New(http.StatusBadRequest, "email address is already verified")
	ErrEmailRequired        = apperror.New(http.StatusBadRequest, "email is required")
	ErrNameRequired         = apperror.New(http.StatusBadRequest, "name is required")
	ErrCompanyRequired      = apperror.New(http.StatusBadRequest, "company name is required")
	ErrPasswordTooShort     = apperror.New(http.StatusBadRequest, "password must be at least 8 characters")
	ErrCannotDeactivateSelf = apperror.New(http.StatusBadRequest, "you cannot deactivate your own account")
)

type Role string

const (
	RoleOwner Role = "owner"
	RoleAgent Role = "agent"
)

// Agent is a staff user of a tenant. The owner registers the tenant and
// manages the other agents.
type Agent struct {
	ID            string
	TenantID      string
	Email         string
	PasswordHash  string
	Name          string
	Role          Role
	IsActive      bool
	EmailVerified bool
	CreatedAt     time.Time
	LastLoginAt   *time.Time
}

func (a *Agent) IsOwner() bool {
	return a.Role == RoleOwner
}

type Filter struct {
	TenantID  string
	Search    string
	Role      string
	IsActive  *bool
	Page      int
	PageSize  int
	SortOrder string
}
