package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Majkoo/PicturesApi/internal/model"
)

type StatsRepo struct {
	pool     *pgxpool.Pool
	pictures *PictureRepo
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool, pictures: NewPictureRepo(pool)}
}

// GetStats returns aggregate counts over live pictures, the most used tags and
// the most liked pictures.
func (r *StatsRepo) GetStats(ctx context.Context, topTags, mostLiked int) (*model.StatsResponse, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM pictures WHERE NOT is_deleted) AS total_pictures,
			(SELECT COUNT(*) FROM votes v JOIN pictures p ON p.id = v.picture_id
			  WHERE NOT p.is_deleted) AS total_votes,
			(SELECT COALESCE(SUM(like_count), 0)::bigint FROM pictures WHERE NOT is_deleted) AS total_likes,
			(SELECT COUNT(*) FROM accounts WHERE NOT is_deleted) AS total_accounts`

	var stats model.StatsResponse
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalPictures, &stats.TotalVotes, &stats.TotalLikes, &stats.TotalAccounts,
	)
	if err != nil {
		return nil, err
	}

	tagQuery := `
		SELECT t.value, COUNT(*) AS uses
		FROM picture_tags pt
		JOIN tags t ON t.id = pt.tag_id
		JOIN pictures p ON p.id = pt.picture_id AND NOT p.is_deleted
		GROUP BY t.value
		ORDER BY uses DESC, t.value
		LIMIT $1`

	rows, err := r.pool.Query(ctx, tagQuery, topTags)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats.TopTags = make(map[string]int)
	for rows.Next() {
		var tag string
		var count int
		if err := rows.Scan(&tag, &count); err != nil {
			return nil, err
		}
		stats.TopTags[tag] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pics, err := r.pictures.Listing(ctx, model.ListingQuery{Mode: model.ListingMostLiked, Take: mostLiked})
	if err != nil {
		return nil, err
	}
	stats.MostLiked = make([]model.PictureSummary, len(pics))
	for i := range pics {
		stats.MostLiked[i] = pics[i].Summary()
	}
	return &stats, nil
}
