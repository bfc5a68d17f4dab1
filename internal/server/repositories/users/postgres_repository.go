package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/dbx"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const userColumns = `id, username, email, password_hash, is_verified, twofa_enabled, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (username, email, password_hash, is_verified, twofa_enabled)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.IsVerified, user.TwoFAEnabled).
		Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return nil, mapError(err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1`, login)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsVerified, &user.TwoFAEnabled, &user.CreatedAt)

	if err != nil {
		return nil, mapError(err)
	}

	return user, nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users
		 SET username = $2, email = $3, is_verified = $4, twofa_enabled = $5
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.IsVerified, user.TwoFAEnabled)
	if err != nil {
		return mapError(err)
	}
	return requireOneRow(res)
}

// Delete removes the user; posts, comments and votes go with it through
// ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return requireOneRow(res)
}

// List returns one page of users, newest first. Only id, username and
// created_at are loaded.
func (r *PostgresRepository) List(ctx context.Context, f models.UserFilter) (*models.UsersPage, error) {
	pattern := "%" + escapeLike(f.Search) + "%"

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username ILIKE $1`, pattern).Scan(&total)
	if err != nil {
		return nil, mapError(err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, created_at FROM users
		 WHERE username ILIKE $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		pattern, f.PerPage, (f.Page-1)*f.PerPage)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	page := &models.UsersPage{Users: []models.User{}, Total: total, Page: f.Page}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		page.Users = append(page.Users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	if f.PerPage > 0 {
		page.Pages = (total + f.PerPage - 1) / f.PerPage
	}
	return page, nil
}

func (r *PostgresRepository) SetCode(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET twofa_code = $2, twofa_expires_at = $3 WHERE id = $1`,
		id, code, expiresAt)
	if err != nil {
		return mapError(err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) ConsumeCode(ctx context.Context, email, code string, now time.Time) (*models.User, error) {
	query :=
		`UPDATE users SET twofa_code = NULL, twofa_expires_at = NULL
		 WHERE email = $1 AND twofa_code = $2 AND twofa_expires_at > $3
		 RETURNING ` + userColumns

	return r.getOne(ctx, query, email, code, now)
}

func (r *PostgresRepository) SetPassword(ctx context.Context, id int64, hash []byte) error {
	query :=
		`UPDATE users
		 SET password_hash = $2, reset_token_hash = NULL, reset_expires_at = NULL
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, hash)
	if err != nil {
		return mapError(err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token_hash = $2, reset_expires_at = $3 WHERE id = $1`,
		id, tokenHash, expiresAt)
	if err != nil {
		return mapError(err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	query :=
		`UPDATE users SET reset_token_hash = NULL, reset_expires_at = NULL
		 WHERE reset_token_hash = $1 AND reset_expires_at > $2
		 RETURNING ` + userColumns

	return r.getOne(ctx, query, tokenHash, now)
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
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, pgErr.ConstraintName)
	}
	return fmt.Errorf("db error: %w", err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
