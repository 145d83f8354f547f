package model

import "net/http"

// ValidationProblemType はバリデーションエラー応答のtype URI。
const ValidationProblemType = "https://tools.ietf.org/html/rfc9110#section-15.5.1"

// ValidationProblem はフィールド単位のバリデーションエラーを列挙する応答ボディ。
type ValidationProblem struct {
	Type   string              `json:"type"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Errors map[string][]string `json:"errors"`
}

// NewValidationProblem はフィールド名→メッセージ一覧からValidationProblemを生成する。
func NewValidationProblem(errs map[string][]string) *ValidationProblem {
	return &ValidationProblem{
		Type:   ValidationProblemType,
		Title:  "One or more validation errors occurred.",
		Status: http.StatusBadRequest,
		Errors: errs,
	}
}
