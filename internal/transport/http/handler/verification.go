package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/socraticschool/accounts/internal/domain"
)

type verificationUsecaser interface {
	RedeemVerification(ctx context.Context, rawToken string) (domain.RedemptionResult, error)
	RedeemReset(ctx context.Context, rawToken, newPassword string) (domain.ResetResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
}

type VerificationHandler struct {
	verification verificationUsecaser
	logger       *slog.Logger
	baseURL      string
}

func NewVerificationHandler(verification verificationUsecaser, logger *slog.Logger, baseURL string) *VerificationHandler {
	return &VerificationHandler{
		verification: verification,
		logger:       logger.With("component", "verification_handler"),
		baseURL:      baseURL,
	}
}

// GET /api/auth/verify-email?token=<raw>
// Browser-facing: the user lands here from the emailed link, so every
// outcome is a redirect back to a sign-in page. Expired and unknown
// tokens share one message; distinguishing them would let anyone probe
// which tokens ever existed.
func (h *VerificationHandler) VerifyEmail(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		h.redirectError(c, "No token provided")
		return
	}

	result, err := h.verification.RedeemVerification(c.Request.Context(), rawToken)
	if err != nil {
		h.logger.Error("verify email", "error", err)
		h.redirectError(c, "Verification failed")
		return
	}

	switch result.Outcome {
	case domain.RedemptionVerified, domain.RedemptionAlreadyVerified:
		c.Redirect(http.StatusFound, h.baseURL+signInPath(result.User.Role)+"?verified=true")
	default:
		h.redirectError(c, errLinkInvalid)
	}
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// POST /api/auth/forgot-password
// Always returns ok to avoid revealing whether the email exists.
func (h *VerificationHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.verification.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.logger.Error("forgot password", "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type resetPasswordRequest struct {
	Token    string `json:"token"    binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// POST /api/auth/reset-password
func (h *VerificationHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.verification.RedeemReset(c.Request.Context(), req.Token, req.Password)
	if err != nil {
		h.logger.Error("reset password", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	if result.Outcome != domain.ResetApplied {
		c.JSON(http.StatusBadRequest, gin.H{"error": errLinkInvalid})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *VerificationHandler) redirectError(c *gin.Context, msg string) {
	c.Redirect(http.StatusFound, h.baseURL+"/sign-in?error="+url.QueryEscape(msg))
}

func signInPath(role domain.Role) string {
	switch role {
	case domain.RoleInstructor:
		return "/instructor/sign-in"
	case domain.RoleStudent:
		return "/students/sign-in"
	default:
		return "/sign-in"
	}
}
