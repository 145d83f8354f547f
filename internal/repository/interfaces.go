// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/playerapi/internal/model"
)

// ErrDuplicateEmail は同じメールアドレスのユーザーが既に存在する場合に返る。
var ErrDuplicateEmail = errors.New("email already registered")

// PlayerRepository はプレイヤーデータの永続化インターフェース。
// 書き込み系は影響行数（saved-count）を返し、0は何も変更されなかったことを示す。
type PlayerRepository interface {
	// List は全プレイヤーを名前順で返す。
	List(ctx context.Context) ([]*model.Player, error)

	// FindByID は指定IDのプレイヤーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Player, error)

	// Create はプレイヤーを作成する。
	Create(ctx context.Context, player *model.Player) (int64, error)

	// Update はプレイヤーの可変フィールドを丸ごと置き換える。
	Update(ctx context.Context, player *model.Player) (int64, error)

	// Delete はプレイヤーを削除する。
	Delete(ctx context.Context, player *model.Player) (int64, error)
}

// UserRepository はidentityストア（ユーザー、クレーム、ロール）の永続化インターフェース。
type UserRepository interface {
	// FindByEmail はメールアドレス（大文字小文字を区別しない）でユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレス重複時はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateAccessFailed はログイン失敗回数とロックアウト期限を更新する。
	UpdateAccessFailed(ctx context.Context, id string, count int, lockoutEnd *time.Time) error

	// ListClaims はユーザーのクレーム一覧を返す。
	ListClaims(ctx context.Context, userID string) ([]model.Claim, error)

	// AddClaim はユーザーにクレームを追加する。既に存在する場合は何もしない。
	AddClaim(ctx context.Context, userID string, claim model.Claim) error

	// ListRoles はユーザーが所属するロール名の一覧を返す。
	ListRoles(ctx context.Context, userID string) ([]string, error)

	// AddToRole はユーザーをロールに追加する。ロールが存在しない場合は作成する。
	AddToRole(ctx context.Context, userID, role string) error
}
