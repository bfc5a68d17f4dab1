package comments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/dbx"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/models"
)

const selectComments = `SELECT c.id, c.post_id, c.user_id, u.username, c.content, c.created_at
	FROM comments c JOIN users u ON u.id = c.user_id`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListByPost(ctx context.Context, postID int64) ([]models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, selectComments+` WHERE c.post_id = $1 ORDER BY c.created_at, c.id`, postID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Username, &c.Content, &c.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Comment, error) {
	var c models.Comment
	err := r.db.QueryRowContext(ctx, selectComments+` WHERE c.id = $1`, id).
		Scan(&c.ID, &c.PostID, &c.UserID, &c.Username, &c.Content, &c.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

// Create inserts c and fills ID, CreatedAt and Username.
func (r *PostgresRepository) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	query :=
		`WITH inserted AS (
			INSERT INTO comments (post_id, user_id, content)
			VALUES ($1, $2, $3)
			RETURNING id, user_id, created_at
		 )
		 SELECT i.id, i.created_at, u.username
		 FROM inserted i JOIN users u ON u.id = i.user_id`

	err := r.db.QueryRowContext(ctx, query, c.PostID, c.UserID, c.Content).
		Scan(&c.ID, &c.CreatedAt, &c.Username)
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	return fmt.Errorf("db error: %w", err)
}
