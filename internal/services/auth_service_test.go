package services_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"vouche/internal/models"
	"vouche/internal/repositories"
	"vouche/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id, name, phone string) error {
	args := m.Called(ctx, id, name, phone)
	return args.Error(0)
}

const testJWTSecret = "test_jwt_secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func notFound(what string) error {
	return fmt.Errorf("user with username %s: %w", what, repositories.ErrNotFound)
}

func TestAuthService_RegisterUser(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, discardLogger())

	// Test successful registration
	user := &models.User{
		Username: "testuser",
		Email:    "test@example.com",
		Password: "password123",
		Role:     models.RoleAdmin,
	}

	mockRepo.On("GetByUsername", ctx, user.Username).Return(nil, notFound(user.Username)).Once()
	mockRepo.On("GetByEmail", ctx, user.Email).Return(nil, notFound(user.Email)).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil).Once()

	err := authService.RegisterUser(ctx, user)
	assert.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role, "self-registration never grants admin")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	mockRepo.AssertExpectations(t)

	// Test username already taken
	mockRepo.On("GetByUsername", ctx, user.Username).Return(&models.User{ID: "1"}, nil).Once()
	err = authService.RegisterUser(ctx, user)
	assert.ErrorIs(t, err, services.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "username 'testuser' already taken")
	mockRepo.AssertExpectations(t)

	// Test email already registered
	mockRepo.On("GetByUsername", ctx, user.Username).Return(nil, notFound(user.Username)).Once()
	mockRepo.On("GetByEmail", ctx, user.Email).Return(&models.User{ID: "1"}, nil).Once()
	err = authService.RegisterUser(ctx, user)
	assert.ErrorIs(t, err, services.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "email 'test@example.com' already registered")
	mockRepo.AssertExpectations(t)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, discardLogger())

	// Existing admin is left alone
	mockRepo.On("GetByUsername", ctx, "admin").Return(&models.User{ID: "1", Role: models.RoleAdmin}, nil).Once()
	require.NoError(t, authService.EnsureAdmin(ctx, "admin", "admin@vouche.local", "changeme"))
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	// Missing admin is created with the admin role
	mockRepo.On("GetByUsername", ctx, "admin").Return(nil, notFound("admin")).Twice()
	mockRepo.On("GetByEmail", ctx, "admin@vouche.local").Return(nil, notFound("admin@vouche.local")).Once()
	mockRepo.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Username == "admin" && u.Role == models.RoleAdmin && u.Password != "changeme"
	})).Return(nil).Once()
	require.NoError(t, authService.EnsureAdmin(ctx, "admin", "admin@vouche.local", "changeme"))
	mockRepo.AssertExpectations(t)
}

func TestAuthService_LoginUser(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, discardLogger())

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:       "user-123",
		Username: "testuser",
		Email:    "test@example.com",
		Password: string(hashedPassword),
		Role:     models.RoleAdmin,
	}

	// Test successful login
	mockRepo.On("GetByUsername", ctx, user.Username).Return(user, nil).Once()
	token, err := authService.LoginUser(ctx, "testuser", "password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	assert.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, user.Username, claims["username"])
	assert.Equal(t, models.RoleAdmin, claims["role"])
	mockRepo.AssertExpectations(t)

	// Test invalid credentials (wrong password)
	mockRepo.On("GetByUsername", ctx, user.Username).Return(user, nil).Once()
	_, err = authService.LoginUser(ctx, "testuser", "wrongpassword")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)

	// Test invalid credentials (user not found)
	mockRepo.On("GetByUsername", ctx, "nonexistentuser").Return(nil, notFound("nonexistentuser")).Once()
	_, err = authService.LoginUser(ctx, "nonexistentuser", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials) // Should return generic invalid credentials message
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, discardLogger())

	// Generate a valid token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  "user-123",
		"username": "testuser",
		"role":     models.RoleUser,
		"exp":      jwt.TimeFunc().Add(time.Hour).Unix(), // Expires in 1 hour
	})
	validTokenString, _ := token.SignedString([]byte(testJWTSecret))

	// Test valid token
	claims, err := authService.ValidateToken(validTokenString)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, "user-123", claims["user_id"])
	assert.Equal(t, "testuser", claims["username"])
	assert.Equal(t, models.RoleUser, claims["role"])

	// Test malformed token
	_, err = authService.ValidateToken("invalid.token.string")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")

	// Test token signed with another secret
	forged, _ := token.SignedString([]byte("another_secret"))
	_, err = authService.ValidateToken(forged)
	assert.Error(t, err)

	// Test expired token
	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  "user-123",
		"username": "testuser",
		"exp":      jwt.TimeFunc().Add(-time.Hour).Unix(), // Expired 1 hour ago
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredTokenString)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestAuthService_GetUser(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, discardLogger())

	mockRepo.On("GetByID", ctx, "user-123").Return(&models.User{ID: "user-123", Username: "testuser", Password: "hash"}, nil).Once()
	user, err := authService.GetUser(ctx, "user-123")
	require.NoError(t, err)
	assert.Empty(t, user.Password)

	mockRepo.On("GetByID", ctx, "missing").Return(nil, fmt.Errorf("user with id missing: %w", repositories.ErrNotFound)).Once()
	_, err = authService.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("trims and saves", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, discardLogger())

		mockRepo.On("UpdateProfile", ctx, "user-123", "Somchai", "0812345678").Return(nil).Once()
		mockRepo.On("GetByID", ctx, "user-123").Return(&models.User{ID: "user-123", Name: "Somchai", Phone: "0812345678", Password: "hash"}, nil).Once()

		user, err := authService.UpdateProfile(ctx, "user-123", "  Somchai ", " 0812345678 ")
		require.NoError(t, err)
		assert.Equal(t, "Somchai", user.Name)
		assert.Equal(t, "0812345678", user.Phone)
		assert.Empty(t, user.Password)
		mockRepo.AssertExpectations(t)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		tests := []struct {
			name  string
			input string
			phone string
			field string
		}{
			{name: "blank name", input: "  ", field: "name"},
			{name: "long name", input: strings.Repeat("n", 101), field: "name"},
			{name: "long phone", input: "Somchai", phone: strings.Repeat("9", 21), field: "phone"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mockRepo := new(MockUserRepository)
				authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, discardLogger())

				_, err := authService.UpdateProfile(ctx, "user-123", tt.input, tt.phone)
				var validationErr *services.ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.Equal(t, tt.field, validationErr.Field)
				mockRepo.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, discardLogger())

		mockRepo.On("UpdateProfile", ctx, "missing", "Somchai", "").Return(fmt.Errorf("user with id missing: %w", repositories.ErrNotFound)).Once()
		_, err := authService.UpdateProfile(ctx, "missing", "Somchai", "")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}
