package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/playerapi/internal/model"
)

// PostgresPlayerRepo はPostgreSQLを使用したプレイヤーリポジトリ。
type PostgresPlayerRepo struct {
	db *sql.DB
}

// NewPostgresPlayerRepo はPostgresPlayerRepoを生成する。
func NewPostgresPlayerRepo(db *sql.DB) *PostgresPlayerRepo {
	return &PostgresPlayerRepo{db: db}
}

// List は全プレイヤーを名前順で返す。
func (r *PostgresPlayerRepo) List(ctx context.Context) ([]*model.Player, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM players ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	players := make([]*model.Player, 0)
	for rows.Next() {
		p := &model.Player{}
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate players: %w", err)
	}

	return players, nil
}

// FindByID は指定IDのプレイヤーを取得する。見つからない場合はnilを返す。
func (r *PostgresPlayerRepo) FindByID(ctx context.Context, id string) (*model.Player, error) {
	p := &model.Player{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM players WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find player by ID: %w", err)
	}

	return p, nil
}

// Create はプレイヤーを作成し、影響行数を返す。
func (r *PostgresPlayerRepo) Create(ctx context.Context, player *model.Player) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO players (id, name) VALUES ($1, $2)`,
		player.ID, player.Name,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert player: %w", err)
	}
	return rowsAffected(result)
}

// Update はプレイヤー名を置き換え、影響行数を返す。
// 行が存在しない場合は0を返す（新規作成はしない）。
func (r *PostgresPlayerRepo) Update(ctx context.Context, player *model.Player) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE players SET name = $2 WHERE id = $1`,
		player.ID, player.Name,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update player: %w", err)
	}
	return rowsAffected(result)
}

// Delete はプレイヤーを削除し、影響行数を返す。
func (r *PostgresPlayerRepo) Delete(ctx context.Context, player *model.Player) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM players WHERE id = $1`,
		player.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete player: %w", err)
	}
	return rowsAffected(result)
}

func rowsAffected(result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ PlayerRepository = (*PostgresPlayerRepo)(nil)
