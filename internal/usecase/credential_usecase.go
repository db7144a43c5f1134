package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/errs"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/database/repository"
)

// Claims - содержимое токена; name и email только для клиента, личность всегда берется из БД
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// CredentialUsecase проверяет bearer-токен и подтверждает, что пользователь существует
type CredentialUsecase interface {
	Verify(ctx context.Context, token string) (models.Identity, error)
}

type credentialUsecase struct {
	jwtSecret []byte
	userRepo  repository.UserRepository
}

func NewCredentialUsecase(jwtSecret []byte, userRepo repository.UserRepository) CredentialUsecase {
	return &credentialUsecase{
		jwtSecret: jwtSecret,
		userRepo:  userRepo,
	}
}

func (uc *credentialUsecase) Verify(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, fmt.Errorf("missing token: %w", errs.ErrUnauthenticated)
	}

	claims := new(Claims)

	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(*jwt.Token) (any, error) {
			return uc.jwtSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return models.Identity{}, fmt.Errorf("parse token: %w", errors.Join(errs.ErrUnauthenticated, err))
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Identity{}, fmt.Errorf("invalid subject: %w", errs.ErrUnauthenticated)
	}

	user, err := uc.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return models.Identity{}, fmt.Errorf("user %s no longer exists: %w", userID, errs.ErrUnauthenticated)
		}

		return models.Identity{}, fmt.Errorf("get user: %w", err)
	}

	return user.Identity(), nil
}
