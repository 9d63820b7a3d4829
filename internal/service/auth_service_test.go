package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/config"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type userRepoStub struct {
	users map[string]models.User
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: map[string]models.User{}}
}

func (r *userRepoStub) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = *user
	return user, nil
}

func (r *userRepoStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *userRepoStub) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Username == username || user.Email == email {
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &user, nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test_secret", Expiration: time.Hour, Issuer: "school-admin-api"}
}

func TestRegisterAndLoginRoundTrip(t *testing.T) {
	svc := NewAuthService(newUserRepoStub(), nil, nil, testJWTConfig())

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Username:   "student1",
		Password:   "secret123",
		Name:       "Student A",
		Email:      "a@example.com",
		Role:       "student",
		RollNumber: "R-001",
		ClassLabel: "5",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, info.Role)
	require.NotNil(t, info.RollNumber)
	assert.Equal(t, "R-001", *info.RollNumber)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "student1", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "student1", claims.Username)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "R-001", claims.RollNumber)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	svc := NewAuthService(newUserRepoStub(), nil, nil, testJWTConfig())

	req := models.RegisterRequest{
		Username: "admin1",
		Password: "secret123",
		Name:     "Admin",
		Email:    "admin@example.com",
		Role:     "admin",
	}
	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	req.Email = "other@example.com"
	_, err = svc.Register(context.Background(), req)
	assert.Equal(t, appErrors.ErrDuplicateRecord.Code, errorCode(t, err))
}

func TestRegisterStudentRequiresRollNumber(t *testing.T) {
	svc := NewAuthService(newUserRepoStub(), nil, nil, testJWTConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "student1",
		Password: "secret123",
		Name:     "Student A",
		Email:    "a@example.com",
		Role:     "student",
	})
	assert.Equal(t, appErrors.ErrMissingField.Code, errorCode(t, err))
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc := NewAuthService(newUserRepoStub(), nil, nil, testJWTConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "user1",
		Password: "secret123",
		Name:     "User",
		Email:    "u@example.com",
		Role:     "superuser",
	})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestLoginWrongPassword(t *testing.T) {
	svc := NewAuthService(newUserRepoStub(), nil, nil, testJWTConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "admin1",
		Password: "secret123",
		Name:     "Admin",
		Email:    "admin@example.com",
		Role:     "admin",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "admin1", Password: "wrong"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, errorCode(t, err))
}

func TestLoginUnknownUser(t *testing.T) {
	svc := NewAuthService(newUserRepoStub(), nil, nil, testJWTConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "whatever"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, errorCode(t, err))
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc := NewAuthService(newUserRepoStub(), nil, nil, testJWTConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "admin1",
		Password: "secret123",
		Name:     "Admin",
		Email:    "admin@example.com",
		Role:     "admin",
	})
	require.NoError(t, err)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin1", Password: "secret123"})
	require.NoError(t, err)

	other := NewAuthService(newUserRepoStub(), nil, nil, config.JWTConfig{Secret: "different", Expiration: time.Hour})
	_, err = other.ValidateToken(res.AccessToken)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))
}
