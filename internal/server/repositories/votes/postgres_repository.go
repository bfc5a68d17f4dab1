package votes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/dbx"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID, postID int64) (*models.Vote, error) {
	v := &models.Vote{UserID: userID, PostID: postID}
	var kind string
	err := r.db.QueryRowContext(ctx,
		`SELECT vote_type FROM votes WHERE user_id = $1 AND post_id = $2`,
		userID, postID).Scan(&kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	v.Kind = models.VoteKind(kind)
	return v, nil
}

func (r *PostgresRepository) Put(ctx context.Context, v models.Vote) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO votes (user_id, post_id, vote_type)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, post_id) DO UPDATE SET vote_type = EXCLUDED.vote_type`,
		v.UserID, v.PostID, string(v.Kind))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, postID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM votes WHERE user_id = $1 AND post_id = $2`, userID, postID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
