package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/playerapi/internal/model"
	"github.com/hitoshi/playerapi/internal/validation"
)

// maxBodyBytes はリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Category string   `json:"category"`
	Action   string   `json:"action"`
	Errors   []string `json:"errors,omitempty"`
}

// errEmptyBody はボディが空、またはJSONのnullだった場合に返る。
var errEmptyBody = errors.New("request body is empty")

// decodeBody はJSONボディをTにデコードする。
// ボディが空またはnullの場合はerrEmptyBodyを返す。
func decodeBody[T any](w http.ResponseWriter, r *http.Request) (*T, error) {
	var v *T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errEmptyBody
		}
		return nil, err
	}
	if v == nil {
		return nil, errEmptyBody
	}
	return v, nil
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
		Errors:   apiErr.Reasons,
	})
}

// writeValidationProblem はフィールド単位のバリデーションエラーを400で書き込む。
func writeValidationProblem(w http.ResponseWriter, problems validation.Problems) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(model.NewValidationProblem(problems)); err != nil {
		slog.Error("failed to encode validation problem", slog.String("error", err.Error()))
	}
}

// writeNotFound はボディなしの404を書き込む。
func writeNotFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
}

// writeDecodeError はボディのデコード失敗をnotDefinedまたはINVALID_REQUESTとして書き込む。
func writeDecodeError(w http.ResponseWriter, err error, notDefined *model.APIError) {
	if errors.Is(err, errEmptyBody) {
		writeAPIErrorResponse(w, http.StatusBadRequest, notDefined)
		return
	}
	writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
// 認証失敗（ロックアウト・資格情報不一致）も400として扱う。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUserNotDefined,
		model.ErrCodePlayerNotDefined,
		model.ErrCodeInvalidRequest,
		model.ErrCodeIdentityFailed,
		model.ErrCodeLockedOut,
		model.ErrCodeInvalidCredentials,
		model.ErrCodeSaveFailed:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
