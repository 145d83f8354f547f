// Package identity はユーザー登録・パスワードサインイン・クレーム解決を提供する。
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/playerapi/internal/model"
	"github.com/hitoshi/playerapi/internal/repository"
)

// ErrUserNotFound は指定メールアドレスのユーザーが存在しない場合に返る。
var ErrUserNotFound = errors.New("user not found")

// Settings はidentityサービスの動作設定。
type Settings struct {
	LockoutEnabled    bool
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	Password          PasswordPolicy
}

// SignInResult はパスワードサインインの結果。
type SignInResult struct {
	Succeeded   bool
	IsLockedOut bool
}

// Service はidentityストアに対する操作を提供する。
type Service struct {
	users    repository.UserRepository
	hasher   PasswordHasher
	settings Settings
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, hasher PasswordHasher, settings Settings) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		settings: settings,
		now:      time.Now,
	}
}

// CreateUser はメールアドレスをユーザー名としてユーザーを作成する。
// パスワード要件違反や重複などidentityとしての拒否理由は第2戻り値で返し、
// ストア障害などの内部エラーのみを第3戻り値で返す。
func (s *Service) CreateUser(ctx context.Context, email, password string) (*model.User, []string, error) {
	if reasons := s.settings.Password.Check(password); len(reasons) > 0 {
		return nil, reasons, nil
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		return nil, []string{duplicateMessage(email)}, nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	user := &model.User{
		ID:              uuid.New().String(),
		Email:           strings.TrimSpace(email),
		NormalizedEmail: repository.NormalizeEmail(email),
		PasswordHash:    hash,
		EmailConfirmed:  true,
		LockoutEnabled:  s.settings.LockoutEnabled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		// 事前チェックと作成の間に同じメールアドレスが登録された場合
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, []string{duplicateMessage(email)}, nil
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))
	return user, nil, nil
}

// PasswordSignIn はメールアドレスとパスワードでサインインを試みる。
// ロックアウト中のアカウントはパスワードを照合せずIsLockedOutを返す。
// lockoutOnFailureが真の場合、失敗回数が上限に達した時点でアカウントをロックアウトする。
func (s *Service) PasswordSignIn(ctx context.Context, email, password string, lockoutOnFailure bool) (SignInResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return SignInResult{}, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return SignInResult{}, nil
	}

	now := s.now()
	if s.settings.LockoutEnabled && user.IsLockedOut(now) {
		return SignInResult{IsLockedOut: true}, nil
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return SignInResult{}, err
	}

	if ok {
		if user.AccessFailedCount > 0 || user.LockoutEnd != nil {
			if err := s.users.UpdateAccessFailed(ctx, user.ID, 0, nil); err != nil {
				return SignInResult{}, fmt.Errorf("failed to reset access failed count: %w", err)
			}
		}
		return SignInResult{Succeeded: true}, nil
	}

	if !lockoutOnFailure || !s.settings.LockoutEnabled || !user.LockoutEnabled {
		return SignInResult{}, nil
	}

	count := user.AccessFailedCount + 1
	var lockoutEnd *time.Time
	if count >= s.settings.MaxFailedAttempts {
		end := now.Add(s.settings.LockoutDuration)
		lockoutEnd = &end
		count = 0
	}

	if err := s.users.UpdateAccessFailed(ctx, user.ID, count, lockoutEnd); err != nil {
		return SignInResult{}, fmt.Errorf("failed to record access failure: %w", err)
	}

	if lockoutEnd != nil {
		slog.WarnContext(ctx, "user locked out",
			slog.String("user_id", user.ID),
			slog.Time("lockout_end", *lockoutEnd),
		)
		return SignInResult{IsLockedOut: true}, nil
	}
	return SignInResult{}, nil
}

// Principal はトークン発行用にユーザーID・クレーム・ロールを解決する。
func (s *Service) Principal(ctx context.Context, email string) (*model.Principal, error) {
	user, err := s.findUser(ctx, email)
	if err != nil {
		return nil, err
	}

	claims, err := s.users.ListClaims(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	roles, err := s.users.ListRoles(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	return model.NewPrincipal(user.ID, user.Email, claims, roles), nil
}

// GrantClaim はユーザーにクレームを付与する。
func (s *Service) GrantClaim(ctx context.Context, email string, claim model.Claim) error {
	user, err := s.findUser(ctx, email)
	if err != nil {
		return err
	}
	if err := s.users.AddClaim(ctx, user.ID, claim); err != nil {
		return fmt.Errorf("failed to add claim: %w", err)
	}
	slog.InfoContext(ctx, "claim granted",
		slog.String("user_id", user.ID),
		slog.String("claim_type", claim.Type),
		slog.String("claim_value", claim.Value),
	)
	return nil
}

// GrantRole はユーザーをロールに追加する。
func (s *Service) GrantRole(ctx context.Context, email, role string) error {
	user, err := s.findUser(ctx, email)
	if err != nil {
		return err
	}
	if err := s.users.AddToRole(ctx, user.ID, role); err != nil {
		return fmt.Errorf("failed to add role: %w", err)
	}
	slog.InfoContext(ctx, "role granted",
		slog.String("user_id", user.ID),
		slog.String("role", role),
	)
	return nil
}

func (s *Service) findUser(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func duplicateMessage(email string) string {
	return fmt.Sprintf("Username '%s' is already taken.", strings.TrimSpace(email))
}
