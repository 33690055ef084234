package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kitchendiary/kitchen-diary-api/internal/domain/entity"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/repository"
)

const userColumns = `id, email, username, full_name, password_hash, profile_photo,
	is_verified, is_admin, confirmation_code, reset_token, reset_token_expiry,
	created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(u *entity.User) error {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, username, full_name, password_hash, profile_photo, is_verified, is_admin, confirmation_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, u.Email, u.Username, u.FullName, u.Password, u.ProfilePhoto, u.IsVerified, u.IsAdmin, u.ConfirmationCode)

	return row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepository) GetByID(id string) (*entity.User, error) {
	return r.getBy(`WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(email string) (*entity.User, error) {
	return r.getBy(`WHERE email = $1`, email)
}

func (r *UserRepository) GetByConfirmationCode(code string) (*entity.User, error) {
	return r.getBy(`WHERE confirmation_code = $1 AND confirmation_code <> ''`, code)
}

func (r *UserRepository) GetByResetToken(tokenHash string) (*entity.User, error) {
	return r.getBy(`WHERE reset_token = $1 AND reset_token <> ''`, tokenHash)
}

func (r *UserRepository) getBy(where string, arg any) (*entity.User, error) {
	ctx := context.Background()
	u := &entity.User{}

	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users `+where, arg)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FullName, &u.Password,
		&u.ProfilePhoto, &u.IsVerified, &u.IsAdmin, &u.ConfirmationCode,
		&u.ResetToken, &u.ResetTokenExpiry, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return u, nil
}

func (r *UserRepository) Update(u *entity.User) error {
	ctx := context.Background()
	u.UpdatedAt = time.Now()

	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email = $1, username = $2, full_name = $3, password_hash = $4,
			profile_photo = $5, is_verified = $6, is_admin = $7,
			confirmation_code = $8, reset_token = $9, reset_token_expiry = $10,
			updated_at = $11
		WHERE id = $12
	`, u.Email, u.Username, u.FullName, u.Password, u.ProfilePhoto, u.IsVerified,
		u.IsAdmin, u.ConfirmationCode, u.ResetToken, u.ResetTokenExpiry, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}

	if res.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

func (r *UserRepository) Delete(id string) error {
	ctx := context.Background()
	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
