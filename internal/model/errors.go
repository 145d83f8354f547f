package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string   // エラーコード
	Message  string   // エラーメッセージ
	Category string   // カテゴリ: auth, validation, player, system
	Action   string   // クライアント向け対処方法
	Reasons  []string // 個別の拒否理由（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUserNotDefined     = "USER_NOT_DEFINED"
	ErrCodePlayerNotDefined   = "PLAYER_NOT_DEFINED"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeIdentityFailed     = "IDENTITY_CREATION_FAILED"
	ErrCodeLockedOut          = "USER_LOCKED_OUT"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeSaveFailed         = "SAVE_FAILED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewUserNotDefinedError はリクエストボディが空（null）の場合のエラーを生成する。
func NewUserNotDefinedError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotDefined,
		Message:  "User not defined",
		Category: "validation",
		Action:   "Send a JSON body with email and password.",
	}
}

// NewPlayerNotDefinedError はプレイヤーのリクエストボディが空（null）の場合のエラーを生成する。
func NewPlayerNotDefinedError() *APIError {
	return &APIError{
		Code:     ErrCodePlayerNotDefined,
		Message:  "Player not defined",
		Category: "validation",
		Action:   "Send a JSON body with the player name.",
	}
}

// NewInvalidRequestError はJSONの解析に失敗した場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "The request body could not be parsed.",
		Category: "validation",
		Action:   "Send a well-formed JSON body.",
	}
}

// NewIdentityCreationError はidentityストアがユーザー作成を拒否した場合のエラーを生成する。
func NewIdentityCreationError(reasons []string) *APIError {
	return &APIError{
		Code:     ErrCodeIdentityFailed,
		Message:  strings.Join(reasons, " "),
		Category: "auth",
		Action:   "Fix the listed problems and register again.",
		Reasons:  reasons,
	}
}

// NewLockedOutError はアカウントがロックアウト中の場合のエラーを生成する。
func NewLockedOutError() *APIError {
	return &APIError{
		Code:     ErrCodeLockedOut,
		Message:  "User account locked out.",
		Category: "auth",
		Action:   "Wait for the lockout to expire and try again.",
	}
}

// NewInvalidCredentialsError はメールアドレスまたはパスワードが一致しない場合のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid login attempt.",
		Category: "auth",
		Action:   "Check the email and password.",
	}
}

// NewSaveFailedError は永続化が0件で終わった場合のエラーを生成する。
func NewSaveFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeSaveFailed,
		Message:  "The change could not be saved.",
		Category: "player",
		Action:   "Reload the resource and try again.",
	}
}

// NewUnauthorizedError はベアラートークンがない、または無効な場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication is required.",
		Category: "auth",
		Action:   "Log in and send the access token as a Bearer token.",
	}
}

// NewForbiddenError は必要なクレームを持たない場合のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "You do not have permission to perform this action.",
		Category: "auth",
		Action:   "Ask an administrator to grant the required permission.",
	}
}

// NewInternalError は内部エラーの統一レスポンス用エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "An internal error occurred.",
		Category: "system",
		Action:   "Please try again later.",
	}
}
