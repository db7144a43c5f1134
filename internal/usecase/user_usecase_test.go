package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/errs"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/memory"
)

var testSecret = []byte("test-secret")

func TestCreateUser(t *testing.T) {
	uc := NewUserUsecase(testSecret, time.Hour, memory.NewUserStore())
	ctx := context.Background()

	user, err := uc.CreateUser(ctx, " Alice ", "Alice@Example.com", "secret1")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Name != "Alice" || user.Email != "alice@example.com" || user.Password != "" {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err = uc.CreateUser(ctx, "Other", "alice@example.com", "secret1"); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("duplicate email: expected ErrAlreadyExists, got %v", err)
	}

	tests := []struct {
		name, userName, email, password string
	}{
		{"missing name", "", "a@b.c", "secret1"},
		{"bad email", "Bob", "not-an-email", "secret1"},
		{"short password", "Bob", "bob@example.com", "123"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := uc.CreateUser(ctx, tc.userName, tc.email, tc.password); !errors.Is(err, errs.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	uc := NewUserUsecase(testSecret, time.Hour, memory.NewUserStore())
	ctx := context.Background()

	if _, err := uc.CreateUser(ctx, "Alice", "alice@example.com", "secret1"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	user, err := uc.ValidateCredentials(ctx, "ALICE@example.com", "secret1")
	if err != nil {
		t.Fatalf("ValidateCredentials: %v", err)
	}
	if user.Password != "" {
		t.Fatal("password hash must not leave the usecase")
	}

	if _, err = uc.ValidateCredentials(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err = uc.ValidateCredentials(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyToken(t *testing.T) {
	store := memory.NewUserStore()
	users := NewUserUsecase(testSecret, time.Hour, store)
	credentials := NewCredentialUsecase(testSecret, store)
	ctx := context.Background()

	user, err := users.CreateUser(ctx, "Alice", "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	token, err := users.GenerateJWT(user)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	identity, err := credentials.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identity.ID != user.ID || identity.Name != "Alice" {
		t.Fatalf("unexpected identity %+v", identity)
	}

	expired, err := NewUserUsecase(testSecret, -time.Minute, store).GenerateJWT(user)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	foreign, err := NewUserUsecase([]byte("other-secret"), time.Hour, store).GenerateJWT(user)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID.String()},
	}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := map[string]string{
		"empty":       "",
		"garbage":     "not.a.token",
		"expired":     expired,
		"foreign key": foreign,
		"no expiry":   noExpiry,
		"bad subject": badSubject,
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := credentials.Verify(ctx, token); !errors.Is(err, errs.ErrUnauthenticated) {
				t.Fatalf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}

	// удаленный аккаунт отклоняется даже с валидным токеном
	store.Delete(user.ID)

	if _, err = credentials.Verify(ctx, token); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("deleted user: expected ErrUnauthenticated, got %v", err)
	}
}
