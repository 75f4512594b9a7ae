package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nkarpov/todo-api/internal/auth"
	"github.com/nkarpov/todo-api/internal/model"
	"github.com/nkarpov/todo-api/internal/repo"
)

// MockUserRepository - мок репозитория пользователей
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, email, name, hashedPassword string) (model.User, error) {
	args := m.Called(ctx, email, name, hashedPassword)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func newTestTokens() *auth.TokenService {
	return auth.NewTokenService("test-secret", time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name      string
		req       model.RegisterRequest
		setupMock func(*MockUserRepository)
		wantErr   error
	}{
		{
			name: "successful registration",
			req:  model.RegisterRequest{Email: "a@x.com", Password: "pw", Name: "Alice"},
			setupMock: func(m *MockUserRepository) {
				m.On("Create", mock.Anything, "a@x.com", "Alice", mock.MatchedBy(func(digest string) bool {
					// The stored digest must verify against the original password
					return digest != "pw" && auth.CheckPassword("pw", digest)
				})).Return(model.User{ID: "user-1", Email: "a@x.com", Name: "Alice"}, nil)
			},
			wantErr: nil,
		},
		{
			name: "duplicate email",
			req:  model.RegisterRequest{Email: "a@x.com", Password: "pw", Name: "Alice"},
			setupMock: func(m *MockUserRepository) {
				m.On("Create", mock.Anything, "a@x.com", "Alice", mock.Anything).
					Return(model.User{}, repo.ErrorConflict)
			},
			wantErr: repo.ErrorConflict,
		},
		{
			name:      "oversized password never reaches the store",
			req:       model.RegisterRequest{Email: "a@x.com", Password: strings.Repeat("a", 73), Name: "Alice"},
			setupMock: func(m *MockUserRepository) {},
			wantErr:   auth.ErrPasswordTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			tokens := newTestTokens()
			service := NewAuthService(mockRepo, tokens)
			token, err := service.Register(context.Background(), tt.req)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				userID, err := tokens.Verify(token)
				require.NoError(t, err)
				assert.Equal(t, "user-1", userID)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	digest, err := auth.HashPassword("pw")
	require.NoError(t, err)

	tests := []struct {
		name      string
		email     string
		password  string
		setupMock func(*MockUserRepository)
		wantErr   error
	}{
		{
			name:     "successful login",
			email:    "a@x.com",
			password: "pw",
			setupMock: func(m *MockUserRepository) {
				m.On("GetByEmail", mock.Anything, "a@x.com").
					Return(model.User{ID: "user-1", HashedPassword: digest}, nil)
			},
			wantErr: nil,
		},
		{
			name:     "wrong password",
			email:    "a@x.com",
			password: "not-pw",
			setupMock: func(m *MockUserRepository) {
				m.On("GetByEmail", mock.Anything, "a@x.com").
					Return(model.User{ID: "user-1", HashedPassword: digest}, nil)
			},
			wantErr: ErrBadCredentials,
		},
		{
			name:     "unknown email maps to the same error",
			email:    "nobody@x.com",
			password: "pw",
			setupMock: func(m *MockUserRepository) {
				m.On("GetByEmail", mock.Anything, "nobody@x.com").
					Return(model.User{}, repo.ErrorNotFound)
			},
			wantErr: ErrBadCredentials,
		},
		{
			name:     "oversized password is just a bad credential",
			email:    "a@x.com",
			password: strings.Repeat("a", 100),
			setupMock: func(m *MockUserRepository) {
				m.On("GetByEmail", mock.Anything, "a@x.com").
					Return(model.User{ID: "user-1", HashedPassword: digest}, nil)
			},
			wantErr: ErrBadCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			tokens := newTestTokens()
			service := NewAuthService(mockRepo, tokens)
			token, err := service.Login(context.Background(), tt.email, tt.password)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
			} else {
				require.NoError(t, err)
				userID, err := tokens.Verify(token)
				require.NoError(t, err)
				assert.Equal(t, "user-1", userID)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Profile(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetByID", mock.Anything, "user-1").
		Return(model.User{ID: "user-1", Email: "a@x.com", Name: "Alice"}, nil)
	mockRepo.On("GetByID", mock.Anything, "ghost").
		Return(model.User{}, repo.ErrorNotFound)

	service := NewAuthService(mockRepo, newTestTokens())

	user, err := service.Profile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)

	_, err = service.Profile(context.Background(), "ghost")
	assert.ErrorIs(t, err, repo.ErrorNotFound)
}
