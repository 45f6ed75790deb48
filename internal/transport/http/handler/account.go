package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/socraticschool/accounts/internal/domain"
	"github.com/socraticschool/accounts/internal/usecase"
)

// accountUsecaser is the subset of AccountUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type accountUsecaser interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*domain.User, bool, error)
	SignIn(ctx context.Context, identifier, password string) (string, *domain.User, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
}

type AccountHandler struct {
	accounts accountUsecaser
	logger   *slog.Logger
}

func NewAccountHandler(accounts accountUsecaser, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		logger:   logger.With("component", "account_handler"),
	}
}

type signUpRequest struct {
	Email           string `json:"email"           binding:"required,email"`
	Password        string `json:"password"        binding:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
	FirstName       string `json:"firstName"       binding:"required"`
	LastName        string `json:"lastName"        binding:"required"`
	Username        string `json:"username"        binding:"required"`
	Nationality     string `json:"nationality"     binding:"required"`
	Age             int    `json:"age"             binding:"required,min=1"`
}

type signUpResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Warning string `json:"warning,omitempty"`
}

// POST /api/students/sign-up
func (h *AccountHandler) SignUpStudent(c *gin.Context) {
	h.signUp(c, domain.RoleStudent)
}

// POST /api/instructor/sign-up
func (h *AccountHandler) SignUpInstructor(c *gin.Context) {
	h.signUp(c, domain.RoleInstructor)
}

func (h *AccountHandler) signUp(c *gin.Context, role domain.Role) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Password != req.PasswordConfirm {
		c.JSON(http.StatusBadRequest, gin.H{"error": errPasswordMismatch})
		return
	}

	_, emailSent, err := h.accounts.Register(c.Request.Context(), usecase.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Username:    req.Username,
		Nationality: req.Nationality,
		Age:         req.Age,
		Role:        role,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": errEmailTaken})
		case errors.Is(err, domain.ErrUsernameTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": errUsernameTaken})
		default:
			h.logger.Error("sign up", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	resp := signUpResponse{
		Success: true,
		Message: "Account created! Please check your email to verify your account.",
	}
	if !emailSent {
		resp.Message = "Account created, but we couldn't send the verification email. Please contact support."
		resp.Warning = "email_not_sent"
	}
	c.JSON(http.StatusOK, resp)
}

type signInRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password"   binding:"required"`
}

type userResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Role          string     `json:"role"`
	EmailVerified *time.Time `json:"emailVerified"`
}

// POST /api/auth/sign-in
// The identifier may be an email address or a username.
func (h *AccountHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jwtToken, user, err := h.accounts.SignIn(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidCredentials})
			return
		}
		h.logger.Error("sign in", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": jwtToken,
		"user":  toUserResponse(user),
	})
}

// GET /api/me
func (h *AccountHandler) Me(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := h.accounts.Profile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errUserNotFound})
			return
		}
		h.logger.Error("load profile", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
	}
}
