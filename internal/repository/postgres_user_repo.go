package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/playerapi/internal/model"
)

// pqUniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const pqUniqueViolation = "23505"

// PostgresUserRepo はPostgreSQLを使用したidentityストア。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// NormalizeEmail は比較用に正規化したメールアドレスを返す。
func NormalizeEmail(email string) string {
	return strings.ToUpper(strings.TrimSpace(email))
}

const selectUserColumns = `SELECT id, email, normalized_email, password_hash, email_confirmed,
	access_failed_count, lockout_end, lockout_enabled, created_at, updated_at
	FROM users`

// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, selectUserColumns+` WHERE normalized_email = $1`, NormalizeEmail(email))
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, selectUserColumns+` WHERE id = $1`, id)
}

func (r *PostgresUserRepo) findOne(ctx context.Context, query string, arg string) (*model.User, error) {
	user := &model.User{}
	var lockoutEnd sql.NullTime
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.NormalizedEmail, &user.PasswordHash, &user.EmailConfirmed,
		&user.AccessFailedCount, &lockoutEnd, &user.LockoutEnabled, &user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if lockoutEnd.Valid {
		t := lockoutEnd.Time
		user.LockoutEnd = &t
	}

	return user, nil
}

// Create はユーザーを作成する。メールアドレス重複時はErrDuplicateEmailを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.NormalizedEmail == "" {
		user.NormalizedEmail = NormalizeEmail(user.Email)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, normalized_email, password_hash, email_confirmed,
			access_failed_count, lockout_end, lockout_enabled, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.Email, user.NormalizedEmail, user.PasswordHash, user.EmailConfirmed,
		user.AccessFailedCount, user.LockoutEnd, user.LockoutEnabled, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// UpdateAccessFailed はログイン失敗回数とロックアウト期限を更新する。
func (r *PostgresUserRepo) UpdateAccessFailed(ctx context.Context, id string, count int, lockoutEnd *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET access_failed_count = $2, lockout_end = $3, updated_at = now() WHERE id = $1`,
		id, count, lockoutEnd,
	)
	if err != nil {
		return fmt.Errorf("failed to update access failed count: %w", err)
	}
	return nil
}

// ListClaims はユーザーのクレーム一覧を返す。
func (r *PostgresUserRepo) ListClaims(ctx context.Context, userID string) ([]model.Claim, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT claim_type, claim_value FROM user_claims WHERE user_id = $1 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		var c model.Claim
		if err := rows.Scan(&c.Type, &c.Value); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate claims: %w", err)
	}

	return claims, nil
}

// AddClaim はユーザーにクレームを追加する。既に存在する場合は何もしない。
func (r *PostgresUserRepo) AddClaim(ctx context.Context, userID string, claim model.Claim) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_claims (user_id, claim_type, claim_value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, claim_type, claim_value) DO NOTHING`,
		userID, claim.Type, claim.Value,
	)
	if err != nil {
		return fmt.Errorf("failed to add claim: %w", err)
	}
	return nil
}

// ListRoles はユーザーが所属するロール名の一覧を返す。
func (r *PostgresUserRepo) ListRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.name FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = $1
		 ORDER BY r.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}

	return roles, nil
}

// AddToRole はユーザーをロールに追加する。ロールとユーザーの紐付けを同一トランザクションで作成する。
func (r *PostgresUserRepo) AddToRole(ctx context.Context, userID, role string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// ロールをUPSERTし、IDを取得する
	var roleID string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO roles (id, name) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		uuid.New().String(), role,
	).Scan(&roleID)
	if err != nil {
		return fmt.Errorf("failed to upsert role: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		userID, roleID,
	)
	if err != nil {
		return fmt.Errorf("failed to add user to role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
