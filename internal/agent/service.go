package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/rental-crm-backend/internal/auth"
	"github.com/nekogravitycat/rental-crm-backend/internal/mail"
	"github.com/nekogravitycat/rental-crm-backend/internal/otp"
	"github.com/nekogravitycat/rental-crm-backend/internal/tenant"
)

const minPasswordLength = 8

// RegisterRequest holds the sign-up form of a new agency.
type RegisterRequest struct {
	CompanyName string
	Name        string
	Email       string
	Password    string
}

type CreateAgentRequest struct {
	Name     string
	Email    string
	Password string
}

// Service defines agent registration, authentication and management.
type Service interface {
	RegisterTenant(ctx context.Context, req RegisterRequest) (*Agent, error)
	VerifyEmail(ctx context.Context, email, code string) (*Agent, error)
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*Agent, error)

	CreateAgent(ctx context.Context, tenantID string, req CreateAgentRequest) (*Agent, error)
	List(ctx context.Context, filter Filter) ([]*Agent, int, error)
	GetByID(ctx context.Context, tenantID, id string) (*Agent, error)
	SetActive(ctx context.Context, tenantID, actorID, id string, active bool) (*Agent, error)
}

type Deps struct {
	Repo     Repository
	Hasher   auth.PasswordHasher
	OTP      otp.Service
	OTPTTL   time.Duration
	Tenants  tenant.Service
	Mailer   mail.Mailer
	Composer *mail.Composer
	Log      *zap.Logger
}

type service struct {
	Deps
	now func() time.Time
}

func NewService(d Deps) Service {
	return &service{Deps: d, now: time.Now}
}

func (s *service) RegisterTenant(ctx context.Context, req RegisterRequest) (*Agent, error) {
	company := strings.TrimSpace(req.CompanyName)
	if company == "" {
		return nil, ErrCompanyRequired
	}
	a, err := s.newAgent(req.Name, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	a.Role = RoleOwner

	if err := s.Repo.CreateWithTenant(ctx, company, a); err != nil {
		return nil, err
	}

	// The account exists at this point; a lost code can be re-requested.
	if err := s.sendOTP(ctx, a); err != nil {
		s.Log.Error("failed to deliver verification code", zap.String("agent_id", a.ID), zap.Error(err))
	}
	return a, nil
}

func (s *service) VerifyEmail(ctx context.Context, email, code string) (*Agent, error) {
	a, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, otp.ErrInvalidCode
		}
		return nil, err
	}
	if a.EmailVerified {
		return nil, ErrAlreadyVerified
	}

	if err := s.OTP.Verify(ctx, otp.PurposeVerifyEmail, a.Email, code); err != nil {
		return nil, err
	}

	if err := s.Repo.MarkEmailVerified(ctx, a.ID); err != nil {
		return nil, err
	}
	a.EmailVerified = true

	if a.IsOwner() {
		if err := s.Tenants.MarkVerified(ctx, a.TenantID); err != nil {
			return nil, fmt.Errorf("failed to verify tenant: %w", err)
		}
	}
	return a, nil
}

// ResendOTP answers unknown and already verified addresses with the same
// silent success as a real send.
func (s *service) ResendOTP(ctx context.Context, email string) error {
	a, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if a.EmailVerified {
		return nil
	}
	return s.sendOTP(ctx, a)
}

func (s *service) sendOTP(ctx context.Context, a *Agent) error {
	code, err := s.OTP.Issue(ctx, otp.PurposeVerifyEmail, a.Email)
	if err != nil {
		return err
	}
	msg, err := s.Composer.OTP(a.Email, a.Name, code, s.OTPTTL)
	if err != nil {
		return err
	}
	return s.Mailer.Send(ctx, msg)
}

func (s *service) Login(ctx context.Context, email, password string) (*Agent, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}

	a, err := s.Repo.GetByEmail(ctx, cleanEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch agent by email: %w", err)
	}

	if err := s.Hasher.Compare(a.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !a.IsActive {
		return nil, ErrInactiveAgent
	}
	if !a.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	now := s.now().UTC()
	if err := s.Repo.UpdateLastLogin(ctx, a.ID, now); err != nil {
		s.Log.Warn("failed to update last login", zap.String("agent_id", a.ID), zap.Error(err))
	} else {
		a.LastLoginAt = &now
	}

	return a, nil
}

// CreateAgent adds a staff account to the tenant. Owners vouch for the
// address, so it starts verified.
func (s *service) CreateAgent(ctx context.Context, tenantID string, req CreateAgentRequest) (*Agent, error) {
	a, err := s.newAgent(req.Name, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	a.TenantID = tenantID
	a.Role = RoleAgent
	a.EmailVerified = true

	if err := s.Repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Agent, int, error) {
	return s.Repo.List(ctx, filter)
}

func (s *service) GetByID(ctx context.Context, tenantID, id string) (*Agent, error) {
	a, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *service) SetActive(ctx context.Context, tenantID, actorID, id string, active bool) (*Agent, error) {
	if id == actorID && !active {
		return nil, ErrCannotDeactivateSelf
	}
	return s.Repo.SetActive(ctx, tenantID, id, active)
}

// newAgent validates the shared sign-up fields and hashes the password.
func (s *service) newAgent(name, email, password string) (*Agent, error) {
	cleanName := strings.TrimSpace(name)
	if cleanName == "" {
		return nil, ErrNameRequired
	}
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" {
		return nil, ErrEmailRequired
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &Agent{
		Email:        cleanEmail,
		PasswordHash: hash,
		Name:         cleanName,
		IsActive:     true,
	}, nil
}

// normalizeEmail trims spaces and lowercases the email.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
