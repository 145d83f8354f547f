package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/playerapi/internal/model"
)

var testSettings = Settings{
	SigningKey: []byte("test-signing-key-at-least-32-bytes!!"),
	Issuer:     "playerapi",
	Audience:   "playerapi",
	TTL:        time.Hour,
}

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func testPrincipal() *model.Principal {
	return model.NewPrincipal("user-1", "alice@example.com",
		[]model.Claim{{Type: "permission", Value: "player:delete"}},
		[]string{"admin"},
	)
}

func buildToken(t *testing.T) model.TokenResponse {
	t.Helper()
	resp, err := Build(Input{
		Settings:  testSettings,
		Principal: testPrincipal(),
		TokenID:   "token-1",
		Now:       testNow,
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return resp
}

func TestBuild_ResponseFields(t *testing.T) {
	resp := buildToken(t)

	if resp.AccessToken == "" {
		t.Fatal("AccessToken is empty")
	}
	if strings.Count(resp.AccessToken, ".") != 2 {
		t.Errorf("AccessToken %q is not a compact JWS", resp.AccessToken)
	}
	if resp.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want %q", resp.TokenType, "Bearer")
	}
	if resp.ExpiresIn != 3600 {
		t.Errorf("ExpiresIn = %d, want 3600", resp.ExpiresIn)
	}
	if resp.UserID != "user-1" || resp.Email != "alice@example.com" {
		t.Errorf("UserID/Email = %q/%q", resp.UserID, resp.Email)
	}
	if got := resp.Claims["permission"]; len(got) != 1 || got[0] != "player:delete" {
		t.Errorf("Claims[permission] = %v", got)
	}
	if len(resp.Roles) != 1 || resp.Roles[0] != "admin" {
		t.Errorf("Roles = %v", resp.Roles)
	}
}

// 同じ入力からは同じトークンが得られる。
func TestBuild_IsDeterministic(t *testing.T) {
	a := buildToken(t)
	b := buildToken(t)
	if a.AccessToken != b.AccessToken {
		t.Error("Build should be deterministic for identical inputs")
	}
}

func TestBuild_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"no key", Input{Settings: Settings{TTL: time.Hour}, Principal: testPrincipal(), Now: testNow}},
		{"no principal", Input{Settings: testSettings, Now: testNow}},
		{"zero ttl", Input{Settings: Settings{SigningKey: testSettings.SigningKey}, Principal: testPrincipal(), Now: testNow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.in); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	resp := buildToken(t)

	p, err := Parse(testSettings, resp.AccessToken, testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if p.UserID != "user-1" || p.Email != "alice@example.com" {
		t.Errorf("principal = %+v", p)
	}
	if !p.HasClaim("permission", "player:delete") {
		t.Error("expected permission claim to survive round trip")
	}
	if !p.HasClaim(model.ClaimTypeRole, "admin") {
		t.Error("expected admin role to survive round trip")
	}
}

func TestParse_Expired(t *testing.T) {
	resp := buildToken(t)

	_, err := Parse(testSettings, resp.AccessToken, testNow.Add(2*time.Hour))
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParse_WrongKey(t *testing.T) {
	resp := buildToken(t)

	other := testSettings
	other.SigningKey = []byte("another-signing-key-at-least-32-bytes")
	if _, err := Parse(other, resp.AccessToken, testNow); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParse_WrongIssuerOrAudience(t *testing.T) {
	resp := buildToken(t)

	wrongIss := testSettings
	wrongIss.Issuer = "someone-else"
	if _, err := Parse(wrongIss, resp.AccessToken, testNow); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("issuer mismatch: err = %v, want ErrInvalidToken", err)
	}

	wrongAud := testSettings
	wrongAud.Audience = "another-api"
	if _, err := Parse(wrongAud, resp.AccessToken, testNow); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("audience mismatch: err = %v, want ErrInvalidToken", err)
	}
}

// none以外でもHS256以外のアルゴリズムは拒否する。
func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    testSettings.Issuer,
		Audience:  jwt.ClaimStrings{testSettings.Audience},
		ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSettings.SigningKey)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	if _, err := Parse(testSettings, raw, testNow); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParse_Garbage(t *testing.T) {
	if _, err := Parse(testSettings, "not.a.token", testNow); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifier_UsesClock(t *testing.T) {
	resp := buildToken(t)

	v := NewVerifier(testSettings)
	v.now = func() time.Time { return testNow.Add(30 * time.Minute) }
	if _, err := v.Verify(resp.AccessToken); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	v.now = func() time.Time { return testNow.Add(61 * time.Minute) }
	if _, err := v.Verify(resp.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}
