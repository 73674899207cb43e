package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Majkoo/PicturesApi/internal/model"
)

type AffinityRepo struct {
	pool *pgxpool.Pool
}

func NewAffinityRepo(pool *pgxpool.Pool) *AffinityRepo {
	return &AffinityRepo{pool: pool}
}

// RecentEntries returns the account's newest n affinity entries, newest first,
// with equal timestamps ordered by id.
func (r *AffinityRepo) RecentEntries(ctx context.Context, accountID uuid.UUID, n int) ([]model.AffinityEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.account_id, t.value, a.created_at
		FROM account_liked_tags a
		JOIN tags t ON t.id = a.tag_id
		WHERE a.account_id = $1
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $2`, accountID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.AffinityEntry
	for rows.Next() {
		var e model.AffinityEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Tag, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Compact deletes the account's entries that fall outside the newest keep.
// Those entries already carry zero weight, so weights are unchanged.
func (r *AffinityRepo) Compact(ctx context.Context, accountID uuid.UUID, keep int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM account_liked_tags
		WHERE account_id = $1
		  AND id NOT IN (
		      SELECT id FROM account_liked_tags
		      WHERE account_id = $1
		      ORDER BY created_at DESC, id DESC
		      LIMIT $2)`, accountID, keep)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
