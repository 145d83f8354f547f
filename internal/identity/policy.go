package identity

import (
	"fmt"
	"unicode"
)

// MaxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
const MaxPasswordBytes = 72

// PasswordPolicy はユーザー作成時に適用するパスワード要件。
type PasswordPolicy struct {
	MinLength              int
	RequireDigit           bool
	RequireLowercase       bool
	RequireUppercase       bool
	RequireNonAlphanumeric bool
}

// DefaultPasswordPolicy は最小長以外の要件をすべて有効にしたポリシーを返す。
func DefaultPasswordPolicy(minLength int) PasswordPolicy {
	return PasswordPolicy{
		MinLength:              minLength,
		RequireDigit:           true,
		RequireLowercase:       true,
		RequireUppercase:       true,
		RequireNonAlphanumeric: true,
	}
}

// Check はポリシー違反の一覧を返す。違反がなければnilを返す。
func (p PasswordPolicy) Check(password string) []string {
	var hasDigit, hasLower, hasUpper, hasOther bool
	length := 0
	for _, r := range password {
		length++
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case !unicode.IsLetter(r):
			hasOther = true
		}
	}

	var errs []string
	if length < p.MinLength {
		errs = append(errs, fmt.Sprintf("Passwords must be at least %d characters.", p.MinLength))
	}
	if len(password) > MaxPasswordBytes {
		errs = append(errs, fmt.Sprintf("Passwords must be at most %d bytes.", MaxPasswordBytes))
	}
	if p.RequireNonAlphanumeric && !hasOther {
		errs = append(errs, "Passwords must have at least one non alphanumeric character.")
	}
	if p.RequireDigit && !hasDigit {
		errs = append(errs, "Passwords must have at least one digit ('0'-'9').")
	}
	if p.RequireLowercase && !hasLower {
		errs = append(errs, "Passwords must have at least one lowercase ('a'-'z').")
	}
	if p.RequireUppercase && !hasUpper {
		errs = append(errs, "Passwords must have at least one uppercase ('A'-'Z').")
	}
	return errs
}
