package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Majkoo/PicturesApi/internal/model"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// AccountExists reports whether a live account with the id exists.
func (r *AccountRepo) AccountExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1 AND NOT is_deleted)`,
		id).Scan(&ok)
	return ok, err
}

// CreateAccount inserts a new account.
func (r *AccountRepo) CreateAccount(ctx context.Context, nickname string) (*model.Account, error) {
	a := model.Account{ID: uuid.New(), Nickname: nickname, CreatedAt: time.Now().UTC()}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (id, nickname, created_at) VALUES ($1, $2, $3)`,
		a.ID, a.Nickname, a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
