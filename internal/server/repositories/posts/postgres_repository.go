package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/dbx"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/models"
)

const selectPosts = `SELECT p.id, p.user_id, p.title, p.content, p.topic_tags,
		p.upvotes, p.downvotes, p.created_at, u.username
	FROM posts p JOIN users u ON u.id = p.user_id`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Post, error) {
	return r.query(ctx, selectPosts+` ORDER BY p.created_at DESC, p.id DESC`)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]models.Post, error) {
	return r.query(ctx, selectPosts+` WHERE p.user_id = $1 ORDER BY p.created_at DESC, p.id DESC`, userID)
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Post, error) {
	row := r.db.QueryRowContext(ctx, selectPosts+` WHERE p.id = $1`, id)
	p, err := scanPost(row)
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	query :=
		`INSERT INTO posts (user_id, title, content, topic_tags)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, upvotes, downvotes, created_at`

	err := r.db.QueryRowContext(ctx, query, p.UserID, p.Title, p.Content, toNull(p.TopicTags)).
		Scan(&p.ID, &p.Upvotes, &p.Downvotes, &p.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Post) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET title = $2, content = $3, topic_tags = $4 WHERE id = $1`,
		p.ID, p.Title, p.Content, toNull(p.TopicTags))
	if err != nil {
		return mapError(err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) AdjustVotes(ctx context.Context, id int64, up, down int) (int, int, error) {
	var upvotes, downvotes int
	err := r.db.QueryRowContext(ctx,
		`UPDATE posts SET upvotes = upvotes + $2, downvotes = downvotes + $3
		 WHERE id = $1
		 RETURNING upvotes, downvotes`,
		id, up, down).Scan(&upvotes, &downvotes)
	if err != nil {
		return 0, 0, mapError(err)
	}
	return upvotes, downvotes, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*models.Post, error) {
	var (
		p    models.Post
		tags sql.NullString
	)
	if err := s.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &tags,
		&p.Upvotes, &p.Downvotes, &p.CreatedAt, &p.Author); err != nil {
		return nil, err
	}
	if tags.Valid {
		p.TopicTags = &tags.String
	}
	return &p, nil
}

func toNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func requireOneRow(res sql.Result) error {
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
