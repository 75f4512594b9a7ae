package service

import (
	"context"
	"errors"

	"github.com/nkarpov/todo-api/internal/auth"
	"github.com/nkarpov/todo-api/internal/model"
	"github.com/nkarpov/todo-api/internal/repo"
)

var ErrBadCredentials = errors.New("bad credentials")

type AuthService struct {
	users  repo.UserRepository
	tokens *auth.TokenService
}

func NewAuthService(users repo.UserRepository, tokens *auth.TokenService) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register создает пользователя и сразу выдает access token.
// Дубликат email приходит из репозитория как ErrorConflict.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (string, error) {
	digest, err := auth.HashPassword(req.Password)
	if err != nil {
		return "", err
	}

	user, err := s.users.Create(ctx, req.Email, req.Name, digest)
	if err != nil {
		return "", err
	}

	return s.tokens.Issue(user.ID, s.tokens.TTL())
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrorNotFound) {
			// Неизвестный email не должен отличаться по времени от неверного пароля
			auth.CheckDummy(password)
			return "", ErrBadCredentials
		}
		return "", err
	}

	if !auth.CheckPassword(password, user.HashedPassword) {
		return "", ErrBadCredentials
	}

	return s.tokens.Issue(user.ID, s.tokens.TTL())
}

func (s *AuthService) Profile(ctx context.Context, userID string) (model.User, error) {
	return s.users.GetByID(ctx, userID)
}
