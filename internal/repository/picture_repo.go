package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Majkoo/PicturesApi/internal/apperr"
	"github.com/Majkoo/PicturesApi/internal/model"
)

type PictureRepo struct {
	pool *pgxpool.Pool
}

func NewPictureRepo(pool *pgxpool.Pool) *PictureRepo {
	return &PictureRepo{pool: pool}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const pictureColumns = `p.id, p.account_id, p.name, p.description, p.url,
	p.like_count, p.dislike_count, p.popularity_score, p.created_at`

// listingOrder maps a listing mode to its ORDER BY clause. Only these fixed
// strings are ever interpolated into SQL.
var listingOrder = map[model.ListingMode]string{
	model.ListingPopularity: "p.popularity_score DESC, p.created_at DESC, p.id",
	model.ListingNewest:     "p.created_at DESC, p.id",
	model.ListingMostLiked:  "p.like_count DESC, p.created_at DESC, p.id",
}

// Candidates returns live pictures the account has not been served, with tags.
// The pool is the top `limit` unseen pictures by popularity, plus up to `limit`
// unseen pictures carrying a tag from the account's newest `window` affinity
// entries. Seen exclusion runs inside the query.
func (r *PictureRepo) Candidates(ctx context.Context, accountID uuid.UUID, window, limit int) ([]model.Picture, error) {
	query := `
		WITH window_tags AS (
			SELECT DISTINCT w.tag_id
			FROM (
				SELECT tag_id FROM account_liked_tags
				WHERE account_id = $1
				ORDER BY created_at DESC, id DESC
				LIMIT $2
			) w
		),
		candidate_ids AS (
			(SELECT p.id FROM pictures p
			 WHERE NOT p.is_deleted
			   AND NOT EXISTS (
			       SELECT 1 FROM pictures_seen s
			       WHERE s.account_id = $1 AND s.picture_id = p.id)
			 ORDER BY p.popularity_score DESC, p.created_at DESC
			 LIMIT $3)
			UNION
			(SELECT p.id FROM pictures p
			 JOIN picture_tags pt ON pt.picture_id = p.id
			 JOIN window_tags wt ON wt.tag_id = pt.tag_id
			 WHERE NOT p.is_deleted
			   AND NOT EXISTS (
			       SELECT 1 FROM pictures_seen s
			       WHERE s.account_id = $1 AND s.picture_id = p.id)
			 ORDER BY p.popularity_score DESC, p.created_at DESC
			 LIMIT $3)
		)
		SELECT ` + pictureColumns + `
		FROM pictures p
		JOIN candidate_ids c ON c.id = p.id`

	pics, err := r.queryPictures(ctx, r.pool, query, accountID, window, limit)
	if err != nil {
		return nil, err
	}
	return pics, r.attachTags(ctx, r.pool, pics)
}

// Listing returns a global page of live pictures in the given mode, optionally
// filtered by a case-insensitive substring of the name.
func (r *PictureRepo) Listing(ctx context.Context, q model.ListingQuery) ([]model.Picture, error) {
	order, ok := listingOrder[q.Mode]
	if !ok {
		return nil, apperr.Invalid("unknown listing mode %q", q.Mode)
	}

	query := `
		SELECT ` + pictureColumns + `
		FROM pictures p
		WHERE NOT p.is_deleted
		  AND ($1::text = '' OR p.name ILIKE '%' || $1::text || '%' ESCAPE '\')
		ORDER BY ` + order + `
		LIMIT $2 OFFSET $3`

	pics, err := r.queryPictures(ctx, r.pool, query, escapeLike(q.Search), q.Take, q.Skip)
	if err != nil {
		return nil, err
	}
	return pics, r.attachTags(ctx, r.pool, pics)
}

// FindByID returns a live picture with its tags.
func (r *PictureRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Picture, error) {
	query := `
		SELECT ` + pictureColumns + `
		FROM pictures p
		WHERE p.id = $1 AND NOT p.is_deleted`

	pics, err := r.queryPictures(ctx, r.pool, query, id)
	if err != nil {
		return nil, err
	}
	if len(pics) == 0 {
		return nil, fmt.Errorf("picture %s: %w", id, apperr.ErrNotFound)
	}
	if err := r.attachTags(ctx, r.pool, pics); err != nil {
		return nil, err
	}
	return &pics[0], nil
}

// Create stores a picture, upserting its tags, with the given initial score.
func (r *PictureRepo) Create(ctx context.Context, np model.NewPicture, score float64) (*model.Picture, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p := model.Picture{
		ID:              uuid.New(),
		AccountID:       np.AccountID,
		Name:            np.Name,
		Description:     np.Description,
		URL:             np.URL,
		Tags:            model.NormalizeTags(np.Tags),
		PopularityScore: score,
		CreatedAt:       np.CreatedAt,
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO pictures (id, account_id, name, description, url, popularity_score, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE EXISTS (SELECT 1 FROM accounts WHERE id = $2 AND NOT is_deleted)`,
		p.ID, p.AccountID, p.Name, p.Description, p.URL, p.PopularityScore, p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("account %s: %w", p.AccountID, apperr.ErrNotFound)
	}

	if len(p.Tags) > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO tags (value) SELECT unnest($1::text[])
			ON CONFLICT (value) DO NOTHING`, p.Tags)
		if err != nil {
			return nil, err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO picture_tags (picture_id, tag_id)
			SELECT $1, id FROM tags WHERE value = ANY($2)
			ON CONFLICT DO NOTHING`, p.ID, p.Tags)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &p, nil
}

// Tombstone marks a picture deleted. Votes, tags and seen records are kept.
func (r *PictureRepo) Tombstone(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE pictures SET is_deleted = TRUE
		WHERE id = $1 AND NOT is_deleted`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("picture %s: %w", id, apperr.ErrNotFound)
	}
	_, err = r.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, VoteChannel, id.String())
	return err
}

// ScoreBatch returns up to limit live pictures with id greater than after,
// in id order, for keyset iteration by the score refresher.
func (r *PictureRepo) ScoreBatch(ctx context.Context, after uuid.UUID, limit int) ([]model.ScoreRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, like_count, dislike_count, created_at
		FROM pictures
		WHERE NOT is_deleted AND id > $1
		ORDER BY id
		LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScoreRow
	for rows.Next() {
		var s model.ScoreRow
		if err := rows.Scan(&s.ID, &s.Likes, &s.Dislikes, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateScores writes refreshed scores. A row is only written while its vote
// counts still equal the counts the score was computed from, so a vote that
// committed in between keeps its own transactional score.
func (r *PictureRepo) UpdateScores(ctx context.Context, rows []model.ScoreRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	ids := make([]uuid.UUID, len(rows))
	likes := make([]int64, len(rows))
	dislikes := make([]int64, len(rows))
	scores := make([]float64, len(rows))
	for i, s := range rows {
		ids[i], likes[i], dislikes[i], scores[i] = s.ID, s.Likes, s.Dislikes, s.Score
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE pictures p
		SET popularity_score = u.score
		FROM unnest($1::uuid[], $2::bigint[], $3::bigint[], $4::float8[]) AS u(id, l, d, score)
		WHERE p.id = u.id
		  AND p.like_count = u.l
		  AND p.dislike_count = u.d
		  AND NOT p.is_deleted`,
		ids, likes, dislikes, scores)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PictureRepo) queryPictures(ctx context.Context, q querier, sql string, args ...any) ([]model.Picture, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pics []model.Picture
	for rows.Next() {
		var p model.Picture
		err := rows.Scan(
			&p.ID, &p.AccountID, &p.Name, &p.Description, &p.URL,
			&p.LikeCount, &p.DislikeCount, &p.PopularityScore, &p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		pics = append(pics, p)
	}
	return pics, rows.Err()
}

// attachTags loads tags for all pictures in one query.
func (r *PictureRepo) attachTags(ctx context.Context, q querier, pics []model.Picture) error {
	if len(pics) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(pics))
	index := make(map[uuid.UUID]int, len(pics))
	for i := range pics {
		ids[i] = pics[i].ID
		index[pics[i].ID] = i
		pics[i].Tags = []string{}
	}

	rows, err := q.Query(ctx, `
		SELECT pt.picture_id, t.value
		FROM picture_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.picture_id = ANY($1)
		ORDER BY t.value`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return err
		}
		if i, ok := index[id]; ok {
			pics[i].Tags = append(pics[i].Tags, tag)
		}
	}
	return rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(strings.TrimSpace(s))
}
