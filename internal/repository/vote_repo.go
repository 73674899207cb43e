package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Majkoo/PicturesApi/internal/apperr"
	"github.com/Majkoo/PicturesApi/internal/model"
	"github.com/Majkoo/PicturesApi/internal/ranking"
)

// VoteChannel is the NOTIFY channel carrying the id of a picture whose
// counters or visibility changed.
const VoteChannel = "picture_votes"

type VoteRepo struct {
	pool *pgxpool.Pool
}

func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

// ApplyVote runs one ledger mutation in a single transaction. The picture row
// is locked first, so concurrent votes on the same picture serialise and the
// score is always computed from the committed counts.
func (r *VoteRepo) ApplyVote(ctx context.Context, accountID, pictureID uuid.UUID, polarity model.Polarity, scorer ranking.Scorer, now time.Time) (model.VoteResult, error) {
	var res model.VoteResult

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return res, err
	}
	defer tx.Rollback(ctx)

	var accountOK bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1 AND NOT is_deleted)`,
		accountID).Scan(&accountOK)
	if err != nil {
		return res, err
	}
	if !accountOK {
		return res, fmt.Errorf("account %s: %w", accountID, apperr.ErrNotFound)
	}

	var likes, dislikes int64
	var createdAt time.Time
	err = tx.QueryRow(ctx, `
		SELECT like_count, dislike_count, created_at
		FROM pictures
		WHERE id = $1 AND NOT is_deleted
		FOR UPDATE`, pictureID).Scan(&likes, &dislikes, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return res, fmt.Errorf("picture %s: %w", pictureID, apperr.ErrNotFound)
	}
	if err != nil {
		return res, err
	}

	var current *model.Polarity
	var stored string
	err = tx.QueryRow(ctx, `
		SELECT polarity FROM votes WHERE account_id = $1 AND picture_id = $2`,
		accountID, pictureID).Scan(&stored)
	switch {
	case err == nil:
		p := model.Polarity(stored)
		current = &p
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return res, err
	}

	tr := ranking.NextVote(current, polarity)
	switch tr.Action {
	case ranking.ActionInsert:
		_, err = tx.Exec(ctx, `
			INSERT INTO votes (account_id, picture_id, polarity, created_at)
			VALUES ($1, $2, $3, $4)`,
			accountID, pictureID, string(polarity), now)
	case ranking.ActionDelete:
		_, err = tx.Exec(ctx, `
			DELETE FROM votes WHERE account_id = $1 AND picture_id = $2`,
			accountID, pictureID)
	case ranking.ActionUpdate:
		_, err = tx.Exec(ctx, `
			UPDATE votes SET polarity = $3, created_at = $4
			WHERE account_id = $1 AND picture_id = $2`,
			accountID, pictureID, string(polarity), now)
	}
	if err != nil {
		return res, err
	}

	likes += tr.LikeDelta
	dislikes += tr.DislikeDelta
	score := scorer.ScoreAt(likes, dislikes, createdAt, now)

	_, err = tx.Exec(ctx, `
		UPDATE pictures
		SET like_count = $2, dislike_count = $3, popularity_score = $4
		WHERE id = $1`, pictureID, likes, dislikes, score)
	if err != nil {
		return res, err
	}

	// Un-liking never removes history; only entering "like" appends.
	if tr.IntoLike() {
		_, err = tx.Exec(ctx, `
			INSERT INTO account_liked_tags (account_id, tag_id, created_at)
			SELECT $1, tag_id, $3 FROM picture_tags WHERE picture_id = $2
			ORDER BY tag_id`, accountID, pictureID, now)
		if err != nil {
			return res, err
		}
	}

	_, err = tx.Exec(ctx, `SELECT pg_notify($1, $2)`, VoteChannel, pictureID.String())
	if err != nil {
		return res, err
	}

	if err := tx.Commit(ctx); err != nil {
		return res, err
	}

	return model.VoteResult{
		PictureID: pictureID,
		State:     tr.To,
		Likes:     likes,
		Dislikes:  dislikes,
		Score:     score,
		Previous:  tr.From,
	}, nil
}

// ListVotes returns live votes on a picture, newest first. An empty polarity
// returns both kinds.
func (r *VoteRepo) ListVotes(ctx context.Context, pictureID uuid.UUID, polarity model.Polarity, limit int) ([]model.Vote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT v.id, v.account_id, v.picture_id, v.polarity, v.created_at
		FROM votes v
		JOIN pictures p ON p.id = v.picture_id AND NOT p.is_deleted
		WHERE v.picture_id = $1
		  AND ($2::text = '' OR v.polarity = $2::text)
		ORDER BY v.created_at DESC, v.id DESC
		LIMIT $3`, pictureID, string(polarity), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := []model.Vote{}
	for rows.Next() {
		var v model.Vote
		var pol string
		if err := rows.Scan(&v.ID, &v.AccountID, &v.PictureID, &pol, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Polarity = model.Polarity(pol)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}
