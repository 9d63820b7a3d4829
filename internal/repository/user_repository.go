package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/models"
)

const userColumns = "id, username, password_hash, name, email, role, roll_number, class_label, created_at, updated_at"

// UserRepository manages persistence for user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user account.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	query := fmt.Sprintf(`INSERT INTO users (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING %s`, userColumns, userColumns)
	var stored models.User
	if err := r.db.GetContext(ctx, &stored, query,
		user.ID, user.Username, user.PasswordHash, user.Name, user.Email,
		user.Role, user.RollNumber, user.ClassLabel, user.CreatedAt, user.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &stored, nil
}

// FindByUsername fetches a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1 LIMIT 1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsernameOrEmail fetches a user matching either identifier.
func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1 OR email = $2 LIMIT 1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID fetches a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}
