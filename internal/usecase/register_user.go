// Package usecase — прикладные сценарии поверх контракта хранения.
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/marketplace-service/internal/domain"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

// RegisterUser — регистрация пользователя: параллельные проверки занятости
// email и имени, хэширование пароля, создание записи.
type RegisterUser struct {
	Store domain.Storage
}

// RegisterInput — входные данные регистрации.
type RegisterInput struct {
	Email         string
	Username      string
	Password      string
	Role          domain.Role
	MoneroAddress string
}

func (uc RegisterUser) Execute(ctx context.Context, in RegisterInput) (domain.User, error) {
	if in.Email == "" || in.Username == "" || in.Password == "" {
		return domain.User{}, fmt.Errorf("email, username and password are required: %w", domain.ErrValidation)
	}
	if in.Role == "" {
		in.Role = domain.RoleUser
	}
	if !in.Role.Valid() {
		return domain.User{}, fmt.Errorf("role %q: %w", in.Role, domain.ErrValidation)
	}

	// проверки существования идут параллельно; федеративный бэкенд не умеет
	// поиск по email — ErrNotSupported означает «проверить нельзя», не отказ
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return checkFree(gctx, "email", func(ctx context.Context) error {
			_, err := uc.Store.GetUserByEmail(ctx, in.Email)
			return err
		})
	})
	g.Go(func() error {
		return checkFree(gctx, "username", func(ctx context.Context) error {
			_, err := uc.Store.GetUserByUsername(ctx, in.Username)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	// гонка двух одновременных регистраций разрешается уникальным
	// ограничением бэкенда; федеративный режим гарантии не даёт
	return uc.Store.CreateUser(ctx, domain.NewUser{
		Email:         in.Email,
		Username:      in.Username,
		PasswordHash:  string(hash),
		Role:          in.Role,
		MoneroAddress: in.MoneroAddress,
	})
}

func checkFree(ctx context.Context, field string, lookup func(ctx context.Context) error) error {
	err := lookup(ctx)
	switch {
	case err == nil:
		return fmt.Errorf("%s is taken: %w", field, domain.ErrConflict)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNotSupported):
		return nil
	default:
		return err
	}
}

// Authenticate — проверка пароля при входе. В федеративном режиме вход по
// email невозможен (нет индекса) — используйте имя пользователя.
type Authenticate struct {
	Store domain.Storage
}

func (uc Authenticate) Execute(ctx context.Context, username, password string) (domain.User, error) {
	u, err := uc.Store.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return domain.User{}, fmt.Errorf("wrong credentials: %w", domain.ErrValidation)
	}
	return u, nil
}
