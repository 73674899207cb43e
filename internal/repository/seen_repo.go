package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SeenRepo struct {
	pool *pgxpool.Pool
}

func NewSeenRepo(pool *pgxpool.Pool) *SeenRepo {
	return &SeenRepo{pool: pool}
}

// MarkSeen records the pictures as served to the account. Pictures already
// marked are ignored, so concurrent and repeated calls are safe.
func (r *SeenRepo) MarkSeen(ctx context.Context, accountID uuid.UUID, pictureIDs []uuid.UUID, at time.Time) error {
	if len(pictureIDs) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO pictures_seen (account_id, picture_id, seen_at)
		SELECT $1, id, $3 FROM unnest($2::uuid[]) AS ids(id)
		ON CONFLICT (account_id, picture_id) DO NOTHING`,
		accountID, pictureIDs, at)
	return err
}

// Exclude returns the ids the account has not seen, preserving input order.
func (r *SeenRepo) Exclude(ctx context.Context, accountID uuid.UUID, pictureIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(pictureIDs) == 0 {
		return []uuid.UUID{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT c.id
		FROM unnest($2::uuid[]) WITH ORDINALITY AS c(id, ord)
		WHERE NOT EXISTS (
		    SELECT 1 FROM pictures_seen s
		    WHERE s.account_id = $1 AND s.picture_id = c.id)
		ORDER BY c.ord`, accountID, pictureIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]uuid.UUID, 0, len(pictureIDs))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Reset clears the account's seen set. Administrative only.
func (r *SeenRepo) Reset(ctx context.Context, accountID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM pictures_seen WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
