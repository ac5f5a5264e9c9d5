package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

const testSecret = "test-secret"

func protectedHandler(t *testing.T, wantUserID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetUserIDFromContext(r.Context()); got != wantUserID {
			t.Errorf("expected user id %q in context, got %q", wantUserID, got)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_RoundTrip(t *testing.T) {
	token, err := IssueToken(testSecret, "user-1")
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}

	handler := AuthMiddleware(testSecret)(protectedHandler(t, "user-1"))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	handler := AuthMiddleware(testSecret)(protectedHandler(t, ""))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	token, err := IssueToken("other-secret", "user-1")
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}

	handler := AuthMiddleware(testSecret)(protectedHandler(t, ""))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	handler := AuthMiddleware(testSecret)(protectedHandler(t, ""))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
