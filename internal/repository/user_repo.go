package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vidtube/internal/domain"
)

// ErrDuplicate indica violación de unicidad en username o email.
var ErrDuplicate = errors.New("duplicate user")

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByIDPublic(ctx context.Context, id string) (domain.PublicUser, error)
	GetByEmailOrUsername(ctx context.Context, email, username string) (domain.User, error)
	UpdateRefreshToken(ctx context.Context, id string, token *string) error
	UpdateAvatar(ctx context.Context, id, url string) error
	UpdateCover(ctx context.Context, id, url string) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const pgUniqueViolation = "23505"

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, username, email, fullname, avatar_url, cover_url, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.Fullname,
		user.AvatarURL,
		user.CoverURL,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `
		SELECT id, username, email, fullname, avatar_url, cover_url, password_hash, refresh_token, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Fullname,
		&u.AvatarURL,
		&u.CoverURL,
		&u.PasswordHash,
		&u.RefreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// GetByIDPublic lee la proyección saneada: nunca selecciona
// password_hash ni refresh_token.
func (r *PgUserRepository) GetByIDPublic(ctx context.Context, id string) (domain.PublicUser, error) {
	const query = `
		SELECT id, username, email, fullname, avatar_url, cover_url, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var u domain.PublicUser
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Fullname,
		&u.AvatarURL,
		&u.CoverURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.PublicUser{}, err
	}
	return u, nil
}

// GetByEmailOrUsername busca por email o username contra la forma
// normalizada almacenada (minúsculas).
func (r *PgUserRepository) GetByEmailOrUsername(ctx context.Context, email, username string) (domain.User, error) {
	const query = `
		SELECT id, username, email, fullname, avatar_url, cover_url, password_hash, refresh_token, created_at, updated_at
		FROM users
		WHERE email = lower($1) OR username = lower($2)
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, email, username).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Fullname,
		&u.AvatarURL,
		&u.CoverURL,
		&u.PasswordHash,
		&u.RefreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// UpdateRefreshToken escribe solo el campo refresh_token en un único
// UPDATE atómico; token nil lo limpia (logout).
func (r *PgUserRepository) UpdateRefreshToken(ctx context.Context, id string, token *string) error {
	const query = `
		UPDATE users
		SET refresh_token = $2, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) UpdateAvatar(ctx context.Context, id, url string) error {
	return r.updateField(ctx, id, "avatar_url", url)
}

func (r *PgUserRepository) UpdateCover(ctx context.Context, id, url string) error {
	return r.updateField(ctx, id, "cover_url", url)
}

func (r *PgUserRepository) updateField(ctx context.Context, id, column, value string) error {
	query := `UPDATE users SET ` + column + ` = $2, updated_at = now() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
