package model

// ClaimTypeRole はロールをクレームとして扱う際のクレーム種別。
const ClaimTypeRole = "role"

// Principal は認証済みユーザーとその権限（クレーム・ロール）を表す。
// トークン発行時の入力と、トークン検証後のリクエストコンテキストの両方で使用する。
type Principal struct {
	UserID string
	Email  string
	Claims map[string][]string
	Roles  []string
}

// NewPrincipal はクレーム一覧を種別ごとにまとめたPrincipalを生成する。
func NewPrincipal(userID, email string, claims []Claim, roles []string) *Principal {
	grouped := make(map[string][]string, len(claims))
	for _, c := range claims {
		grouped[c.Type] = append(grouped[c.Type], c.Value)
	}
	if roles == nil {
		roles = []string{}
	}
	return &Principal{
		UserID: userID,
		Email:  email,
		Claims: grouped,
		Roles:  roles,
	}
}

// HasClaim は指定種別・値のクレームを持つかどうかを返す。
// 種別が"role"の場合はロールも対象にする。
func (p *Principal) HasClaim(claimType, value string) bool {
	if p == nil {
		return false
	}
	for _, v := range p.Claims[claimType] {
		if v == value {
			return true
		}
	}
	if claimType == ClaimTypeRole {
		for _, r := range p.Roles {
			if r == value {
				return true
			}
		}
	}
	return false
}
