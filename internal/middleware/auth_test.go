package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/playerapi/internal/model"
)

// --- モック定義 ---

type mockVerifier struct {
	verifyFn func(raw string) (*model.Principal, error)
}

func (m *mockVerifier) Verify(raw string) (*model.Principal, error) {
	if m.verifyFn != nil {
		return m.verifyFn(raw)
	}
	return nil, errors.New("invalid token")
}

func validVerifier(principal *model.Principal) *mockVerifier {
	return &mockVerifier{
		verifyFn: func(raw string) (*model.Principal, error) {
			if raw == "valid-token" {
				return principal, nil
			}
			return nil, errors.New("invalid token")
		},
	}
}

// --- テスト ---

func TestAuthMiddleware_ValidToken_InjectsPrincipal(t *testing.T) {
	mw := NewAuthMiddleware(validVerifier(model.NewPrincipal("user-123", "a@example.com", nil, nil)))

	var capturedUserID string
	var capturedEmail string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		capturedUserID = userID
		if p, ok := PrincipalFromContext(r.Context()); ok {
			capturedEmail = p.Email
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/player/1", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if capturedUserID != "user-123" {
		t.Errorf("userID = %q, want %q", capturedUserID, "user-123")
	}
	if capturedEmail != "a@example.com" {
		t.Errorf("email = %q, want %q", capturedEmail, "a@example.com")
	}
}

func TestAuthMiddleware_SchemeIsCaseInsensitive(t *testing.T) {
	mw := NewAuthMiddleware(validVerifier(model.NewPrincipal("user-123", "a@example.com", nil, nil)))
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/player/1", nil)
	req.Header.Set("Authorization", "bearer valid-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
		{"empty token", "Bearer "},
		{"invalid token", "Bearer forged"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewAuthMiddleware(validVerifier(model.NewPrincipal("user-123", "", nil, nil)))
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/player/1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if got := w.Header().Get("WWW-Authenticate"); got != "Bearer" {
				t.Errorf("WWW-Authenticate = %q, want %q", got, "Bearer")
			}

			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Code != model.ErrCodeUnauthorized {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthorized)
			}
		})
	}
}

func TestRequireClaim_WithClaim_PassesThrough(t *testing.T) {
	principal := model.NewPrincipal("user-1", "a@example.com",
		[]model.Claim{{Type: "permission", Value: "player:delete"}}, nil)

	called := false
	handler := RequireClaim("permission", "player:delete")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodDelete, "/player/1", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), principal))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !called {
		t.Error("handler should have been called")
	}
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestRequireClaim_WithoutClaim_Returns403(t *testing.T) {
	principal := model.NewPrincipal("user-1", "a@example.com",
		[]model.Claim{{Type: "permission", Value: "player:create"}}, []string{"member"})

	handler := RequireClaim("permission", "player:delete")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodDelete, "/player/1", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), principal))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestRequireClaim_NoPrincipal_Returns401(t *testing.T) {
	handler := RequireClaim("permission", "player:delete")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodDelete, "/player/1", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestUserIDFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := UserIDFromContext(req.Context()); err == nil {
		t.Error("expected error for missing user ID")
	}
}
