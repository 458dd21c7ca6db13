package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tryon-backend/internal/domain"
	"tryon-backend/internal/sqlinline"
)

// UserRepositoryPG stores users in PostgreSQL.
type UserRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(pool *pgxpool.Pool) *UserRepositoryPG {
	return &UserRepositoryPG{pool: pool}
}

// Create inserts a new user. A duplicate email maps to domain.ErrEmailTaken.
func (r *UserRepositoryPG) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, sqlinline.QInsertUser,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Avatar,
		user.IsActive, user.Verified, user.VerificationCode, user.VerificationCodeExpiresAt,
		user.GoogleID, user.GoogleEmail, user.GooglePicture, user.IsAdmin,
	)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

// GetByID fetches a user by UUID.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, sqlinline.QSelectUserByID, id))
}

// GetByEmail fetches a user by email, case-insensitively.
func (r *UserRepositoryPG) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, sqlinline.QSelectUserByEmail, email))
}

// GetByGoogleID fetches a user by linked Google subject identifier.
func (r *UserRepositoryPG) GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, sqlinline.QSelectUserByGoogleID, googleID))
}

// Update persists all mutable fields of the user.
func (r *UserRepositoryPG) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, sqlinline.QUpdateUser,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Avatar,
		user.IsActive, user.Verified, user.VerificationCode, user.VerificationCodeExpiresAt,
		user.GoogleID, user.GoogleEmail, user.GooglePicture, user.IsAdmin,
	)
	return scanUser(row)
}

// Delete removes a user by id.
func (r *UserRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, sqlinline.QDeleteUser, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// normalizePage clamps pagination arguments to values Postgres accepts: a
// non-positive limit falls back to the default page size and a negative
// offset becomes zero.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// List returns users ordered by creation time, newest first.
func (r *UserRepositoryPG) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	limit, offset = normalizePage(limit, offset)
	rows, err := r.pool.Query(ctx, sqlinline.QListUsers, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Avatar,
		&u.IsActive, &u.Verified, &u.VerificationCode, &u.VerificationCodeExpiresAt,
		&u.GoogleID, &u.GoogleEmail, &u.GooglePicture, &u.IsAdmin,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
