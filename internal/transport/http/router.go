package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/socraticschool/accounts/internal/domain"
	"github.com/socraticschool/accounts/internal/transport/http/handler"
	"github.com/socraticschool/accounts/internal/transport/http/middleware"
)

func NewRouter(logger *slog.Logger, accountHandler *handler.AccountHandler, verificationHandler *handler.VerificationHandler, jwtKey []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	authMW := middleware.Auth(jwtKey)

	api := r.Group("/api")

	// Public account lifecycle
	api.POST("/students/sign-up", accountHandler.SignUpStudent)
	api.POST("/instructor/sign-up", accountHandler.SignUpInstructor)

	auth := api.Group("/auth")
	auth.POST("/sign-in", accountHandler.SignIn)
	auth.GET("/verify-email", verificationHandler.VerifyEmail)
	auth.POST("/forgot-password", verificationHandler.ForgotPassword)
	auth.POST("/reset-password", verificationHandler.ResetPassword)

	// Authenticated
	api.GET("/me", authMW, accountHandler.Me)

	// Role-gated areas
	students := api.Group("/students", authMW, middleware.RequireRole(domain.RoleStudent))
	students.GET("/dashboard", dashboard)

	instructor := api.Group("/instructor", authMW, middleware.RequireRole(domain.RoleInstructor))
	instructor.GET("/dashboard", dashboard)

	return r
}

func dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"userId": c.GetString("userID"),
		"role":   c.GetString("role"),
	})
}
