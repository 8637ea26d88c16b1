package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"chat-connect/internal/apperr"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, u *User) (*User, error) {
	query := `INSERT INTO users (name, email, password) VALUES ($1, $2, $3)
	          RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, u.Name, u.Email, u.Password).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperr.Conflict("User with this email already exists")
		}
		return nil, err
	}
	return u, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	u := &User{}
	query := `SELECT id, name, email, password, profile_image_url, created_at
	          FROM users WHERE email = $1`

	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.ProfileImageURL, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}
	return u, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	u := &User{}
	query := `SELECT id, name, email, password, profile_image_url, created_at
	          FROM users WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.ProfileImageURL, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}
	return u, nil
}

func (r *Repository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListOthers returns every user except the given one, for the sidebar.
func (r *Repository) ListOthers(ctx context.Context, excludeID int64) ([]User, error) {
	query := `SELECT id, name, email, profile_image_url, created_at
	          FROM users WHERE id <> $1 ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.ProfileImageURL, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *Repository) UpdateProfileImage(ctx context.Context, id int64, url string) error {
	query := `UPDATE users SET profile_image_url = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, url, id)
	return err
}
