package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/playerapi/internal/identity"
	"github.com/hitoshi/playerapi/internal/metrics"
	"github.com/hitoshi/playerapi/internal/model"
	"github.com/hitoshi/playerapi/internal/token"
	"github.com/hitoshi/playerapi/internal/validation"
)

// IdentityServiceInterface はアカウントハンドラーが必要とするidentityサービスのインターフェース。
type IdentityServiceInterface interface {
	// CreateUser はユーザーを作成する。拒否理由は第2戻り値で返る。
	CreateUser(ctx context.Context, email, password string) (*model.User, []string, error)
	// PasswordSignIn はパスワードでサインインを試みる。
	PasswordSignIn(ctx context.Context, email, password string, lockoutOnFailure bool) (identity.SignInResult, error)
	// Principal はトークン発行用のユーザー情報（クレーム・ロール）を返す。
	Principal(ctx context.Context, email string) (*model.Principal, error)
}

// AccountHandlerConfig はアカウントハンドラーの設定。
type AccountHandlerConfig struct {
	Token token.Settings
}

// AccountHandler はユーザー登録・ログインのHTTPハンドラー。
type AccountHandler struct {
	service   IdentityServiceInterface
	validator *validation.Validator
	metrics   metrics.MetricsCollector
	config    AccountHandlerConfig

	now        func() time.Time
	newTokenID func() string
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service IdentityServiceInterface, v *validation.Validator, mc metrics.MetricsCollector, config AccountHandlerConfig) *AccountHandler {
	if mc == nil {
		mc = metrics.Noop{}
	}
	return &AccountHandler{
		service:    service,
		validator:  v,
		metrics:    mc,
		config:     config,
		now:        time.Now,
		newTokenID: uuid.NewString,
	}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Email           string `json:"email" validate:"required,email,max=256"`
	Password        string `json:"password" validate:"required,max=100"`
	ConfirmPassword string `json:"confirmPassword" validate:"omitempty,eqfield=Password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register はユーザーを登録し、アクセストークンを返す。
// POST /registration
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[registerRequest](w, r)
	if err != nil {
		writeDecodeError(w, err, model.NewUserNotDefinedError())
		return
	}

	if problems := h.validator.Validate(req); !problems.Valid() {
		writeValidationProblem(w, problems)
		return
	}

	_, reasons, err := h.service.CreateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if len(reasons) > 0 {
		h.metrics.RecordRegistration(metrics.OutcomeRejected)
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewIdentityCreationError(reasons))
		return
	}

	h.metrics.RecordRegistration(metrics.OutcomeSucceeded)
	h.issueToken(w, r, req.Email)
}

// Login は資格情報を検証し、アクセストークンを返す。
// POST /login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[loginRequest](w, r)
	if err != nil {
		writeDecodeError(w, err, model.NewUserNotDefinedError())
		return
	}

	if problems := h.validator.Validate(req); !problems.Valid() {
		writeValidationProblem(w, problems)
		return
	}

	result, err := h.service.PasswordSignIn(r.Context(), req.Email, req.Password, true)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	switch {
	case result.IsLockedOut:
		h.metrics.RecordLogin(metrics.OutcomeLockedOut)
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewLockedOutError())
		return
	case !result.Succeeded:
		h.metrics.RecordLogin(metrics.OutcomeInvalidCredentials)
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidCredentialsError())
		return
	}

	h.metrics.RecordLogin(metrics.OutcomeSucceeded)
	h.issueToken(w, r, req.Email)
}

// issueToken はユーザーのクレーム・ロールを解決してトークンを発行する。
func (h *AccountHandler) issueToken(w http.ResponseWriter, r *http.Request, email string) {
	principal, err := h.service.Principal(r.Context(), email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp, err := token.Build(token.Input{
		Settings:  h.config.Token,
		Principal: principal,
		TokenID:   h.newTokenID(),
		Now:       h.now(),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "access token issued",
		slog.String("user_id", principal.UserID),
	)
	writeJSON(w, http.StatusOK, resp)
}
