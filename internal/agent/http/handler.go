package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/rental-crm-backend/internal/agent"
	"github.com/nekogravitycat/rental-crm-backend/internal/auth"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/request"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/response"
	"github.com/nekogravitycat/rental-crm-backend/internal/tenant"
)

type Handler struct {
	service       agent.Service
	tenantService tenant.Service
	jwtManager    *auth.JWTManager
}

func NewHandler(service agent.Service, tenantService tenant.Service, jwtManager *auth.JWTManager) *Handler {
	return &Handler{
		service:       service,
		tenantService: tenantService,
		jwtManager:    jwtManager,
	}
}

// Register creates a tenant with its owner agent and emails a verification code.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	a, err := h.service.RegisterTenant(c.Request.Context(), agent.RegisterRequest{
		CompanyName: req.CompanyName,
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		Agent:   NewAgentResponse(a),
		Message: "verification code sent to " + a.Email,
	})
}

func (h *Handler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	a, err := h.service.VerifyEmail(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewAgentResponse(a))
}

func (h *Handler) ResendOTP(c *gin.Context) {
	var req ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	if err := h.service.ResendOTP(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "if the account exists, a new code has been sent"})
}

// Login authenticates an agent and returns a JWT access token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	a, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwtManager.GenerateAccessToken(auth.Identity{
		AgentID:  a.ID,
		TenantID: a.TenantID,
		Name:     a.Name,
		Role:     string(a.Role),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		Agent:       NewAgentResponse(a),
	})
}

// Me returns the authenticated agent and their tenant.
func (h *Handler) Me(c *gin.Context) {
	ctx := c.Request.Context()
	id := auth.GetIdentity(c)

	a, err := h.service.GetByID(ctx, id.TenantID, id.AgentID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "agent not found"})
		return
	}

	t, err := h.tenantService.GetByID(ctx, id.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, newMeResponse(a, t))
}

func (h *Handler) List(c *gin.Context) {
	var req ListAgentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	agents, total, err := h.service.List(c.Request.Context(), agent.Filter{
		TenantID:  auth.GetTenantID(c),
		Search:    req.Search,
		Role:      req.Role,
		IsActive:  req.IsActive,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortOrder: req.NormalizedSortOrder(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]AgentResponse, len(agents))
	for i, a := range agents {
		items[i] = NewAgentResponse(a)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	a, err := h.service.CreateAgent(c.Request.Context(), auth.GetTenantID(c), agent.CreateAgentRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewAgentResponse(a))
}

// Update toggles whether an agent may sign in.
func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid agent id", err)
		return
	}

	var req UpdateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	id := auth.GetIdentity(c)
	a, err := h.service.SetActive(c.Request.Context(), id.TenantID, id.AgentID, uri.ID, *req.IsActive)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewAgentResponse(a))
}
