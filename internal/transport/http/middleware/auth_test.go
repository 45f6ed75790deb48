package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/socraticschool/accounts/internal/domain"
	"github.com/socraticschool/accounts/internal/transport/http/middleware"
)

const testKey = "middleware-test-secret-32-chars!!"

func init() {
	gin.SetMode(gin.TestMode)
}

// newEngine builds a minimal gin engine with the Auth middleware protecting
// GET /protected and a student-only GET /students-only behind it.
func newEngine() *gin.Engine {
	r := gin.New()
	authMW := middleware.Auth([]byte(testKey))
	r.GET("/protected", authMW, func(c *gin.Context) {
		c.String(http.StatusOK, "%s:%s", c.GetString("userID"), c.GetString("role"))
	})
	r.GET("/students-only", authMW, middleware.RequireRole(domain.RoleStudent), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func makeJWT(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return s
}

func validClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  "u-1",
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
}

func TestAuth_MissingHeader_Returns401(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	newEngine().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_NonBearerScheme_Returns401(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	newEngine().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_WrongKey_Returns401(t *testing.T) {
	token := makeJWT(t, []byte("some-other-secret-32-characters!!"), validClaims("student"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	newEngine().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_ExpiredToken_Returns401(t *testing.T) {
	claims := validClaims("student")
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	token := makeJWT(t, []byte(testKey), claims)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	newEngine().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_ValidToken_SetsUserIDAndRole(t *testing.T) {
	token := makeJWT(t, []byte(testKey), validClaims("instructor"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	newEngine().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got, want := w.Body.String(), "u-1:instructor"; got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestRequireRole_WrongRole_Returns403(t *testing.T) {
	token := makeJWT(t, []byte(testKey), validClaims("instructor"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/students-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	newEngine().ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestRequireRole_MatchingRole_Passes(t *testing.T) {
	token := makeJWT(t, []byte(testKey), validClaims("student"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/students-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	newEngine().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
