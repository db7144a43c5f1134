package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/errs"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
)

type UserRepository interface {
	// CreateUser возвращает errs.ErrAlreadyExists, если email занят
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type userRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) CreateUser(ctx context.Context, user *models.User) error {
	query := r.db.Rebind(`
		INSERT INTO users (id, name, email, password, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO NOTHING`)

	res, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Password,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create user rows affected: %w", err)
	}

	if aff == 0 {
		return fmt.Errorf("create user %s: %w", user.Email, errs.ErrAlreadyExists)
	}

	return nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User

	query := r.db.Rebind("SELECT id, name, email, password, created_at, updated_at FROM users WHERE id = ?")

	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, notFound(err, "user")
	}

	return &user, nil
}

func (r *userRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User

	query := r.db.Rebind("SELECT id, name, email, password, created_at, updated_at FROM users WHERE email = ?")

	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, notFound(err, "user")
	}

	return &user, nil
}

// notFound переводит sql.ErrNoRows в доменную ошибку
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, errs.ErrNotFound)
	}

	return fmt.Errorf("get %s: %w", what, err)
}
