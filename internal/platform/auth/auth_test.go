package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const testSecret = "test-secret"

func signedRequest(t *testing.T, role string) *http.Request {
	t.Helper()
	token, err := GenerateToken(testSecret, uuid.New(), role, "Test User", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestGenerateAndParseToken(t *testing.T) {
	id := uuid.New()
	token, err := GenerateToken(testSecret, id, RoleDoctor, "Dr. Smith", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != id.String() {
		t.Errorf("expected subject %s, got %s", id, claims.Subject)
	}
	if claims.Role != RoleDoctor {
		t.Errorf("expected role doctor, got %s", claims.Role)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _ := GenerateToken(testSecret, uuid.New(), RoleAssistant, "", time.Hour)
	if _, err := ParseToken("other-secret", token); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestParseToken_Expired(t *testing.T) {
	token, _ := GenerateToken(testSecret, uuid.New(), RoleAssistant, "", -time.Minute)
	if _, err := ParseToken(testSecret, token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(signedRequest(t, RoleAssistant), rec)

	handler := JWTMiddleware(testSecret)(func(c echo.Context) error {
		if RoleFromContext(c.Request().Context()) != RoleAssistant {
			t.Error("expected assistant role in context")
		}
		if UserIDFromContext(c.Request().Context()) == uuid.Nil {
			t.Error("expected user id in context")
		}
		return c.String(http.StatusOK, "ok")
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	handler := JWTMiddleware(testSecret)(func(c echo.Context) error { return nil })
	err := handler(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_GarbageToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	c := e.NewContext(req, httptest.NewRecorder())

	handler := JWTMiddleware(testSecret)(func(c echo.Context) error { return nil })
	err := handler(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestRequireRole_Matching(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(signedRequest(t, RoleDoctor), rec)

	chain := JWTMiddleware(testSecret)(RequireRole(RoleDoctor)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}))
	if err := chain(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(signedRequest(t, RoleAssistant), rec)

	chain := JWTMiddleware(testSecret)(RequireRole(RoleDoctor)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}))
	err := chain(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}
}

func TestRequireRole_AdminBypass(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(signedRequest(t, RoleAdmin), rec)

	chain := JWTMiddleware(testSecret)(RequireRole(RoleDoctor)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}))
	if err := chain(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
