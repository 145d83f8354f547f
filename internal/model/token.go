package model

// TokenResponse は登録・ログイン成功時に返すトークンペイロード。
type TokenResponse struct {
	AccessToken string              `json:"accessToken"`
	TokenType   string              `json:"tokenType"`
	ExpiresIn   int64               `json:"expiresIn"`
	UserID      string              `json:"userId"`
	Email       string              `json:"email"`
	Claims      map[string][]string `json:"claims"`
	Roles       []string            `json:"roles"`
}
