// Package token はベアラートークン（HS256 JWT）の発行と検証を提供する。
//
// Buildは入力値だけから応答を組み立てる純粋関数で、時刻とトークンIDも入力として受け取る。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/playerapi/internal/model"
)

// TokenType はレスポンスに含めるトークン種別。
const TokenType = "Bearer"

// ErrInvalidToken はトークンの署名・形式・有効期限・発行者・対象者のいずれかが不正な場合に返る。
var ErrInvalidToken = errors.New("invalid token")

// Settings はトークンの署名パラメータ。
type Settings struct {
	SigningKey []byte
	Issuer     string
	Audience   string
	TTL        time.Duration
}

// Input はトークン発行に必要な入力値。
type Input struct {
	Settings  Settings
	Principal *model.Principal
	TokenID   string
	Now       time.Time
}

// accessClaims はJWTペイロード。
type accessClaims struct {
	Email  string              `json:"email"`
	Roles  []string            `json:"roles,omitempty"`
	Claims map[string][]string `json:"claims,omitempty"`
	jwt.RegisteredClaims
}

// Build は署名済みアクセストークンとその付帯情報を返す。
func Build(in Input) (model.TokenResponse, error) {
	if len(in.Settings.SigningKey) == 0 {
		return model.TokenResponse{}, fmt.Errorf("signing key is required")
	}
	if in.Principal == nil || in.Principal.UserID == "" {
		return model.TokenResponse{}, fmt.Errorf("principal is required")
	}
	if in.Settings.TTL <= 0 {
		return model.TokenResponse{}, fmt.Errorf("token TTL must be positive")
	}

	p := in.Principal
	now := in.Now.UTC()

	claims := accessClaims{
		Email:  p.Email,
		Roles:  p.Roles,
		Claims: p.Claims,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    in.Settings.Issuer,
			Audience:  jwt.ClaimStrings{in.Settings.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(in.Settings.TTL)),
			ID:        in.TokenID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(in.Settings.SigningKey)
	if err != nil {
		return model.TokenResponse{}, fmt.Errorf("failed to sign token: %w", err)
	}

	respClaims := p.Claims
	if respClaims == nil {
		respClaims = map[string][]string{}
	}
	roles := p.Roles
	if roles == nil {
		roles = []string{}
	}

	return model.TokenResponse{
		AccessToken: signed,
		TokenType:   TokenType,
		ExpiresIn:   int64(in.Settings.TTL / time.Second),
		UserID:      p.UserID,
		Email:       p.Email,
		Claims:      respClaims,
		Roles:       roles,
	}, nil
}

// Parse はトークンを検証し、埋め込まれたPrincipalを返す。
// 検証に失敗した場合はErrInvalidTokenをラップしたエラーを返す。
func Parse(settings Settings, raw string, now time.Time) (*model.Principal, error) {
	claims := &accessClaims{}

	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			return settings.SigningKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(settings.Issuer),
		jwt.WithAudience(settings.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}
	grouped := claims.Claims
	if grouped == nil {
		grouped = map[string][]string{}
	}

	return &model.Principal{
		UserID: claims.Subject,
		Email:  claims.Email,
		Claims: grouped,
		Roles:  roles,
	}, nil
}

// Verifier は固定の署名パラメータでトークンを検証する。
type Verifier struct {
	settings Settings
	now      func() time.Time
}

// NewVerifier はVerifierを生成する。
func NewVerifier(settings Settings) *Verifier {
	return &Verifier{settings: settings, now: time.Now}
}

// Verify は現在時刻でトークンを検証する。
func (v *Verifier) Verify(raw string) (*model.Principal, error) {
	return Parse(v.settings, raw, v.now())
}
