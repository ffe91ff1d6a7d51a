package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/medmarket-api/internal/domain"
	"github.com/medmarket-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldName         = "name"
	fieldPasswordHash = "password_hash"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type Service interface {
	List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, callerID, userID string, req domain.UpdateUserRequest) (*domain.User, error)
	Disable(ctx context.Context, callerID, userID string) error
}

type userStore interface {
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) (*domain.User, error)
	UpdateEmail(ctx context.Context, userID, oldEmail, newEmail string) error
	Disable(ctx context.Context, userID string) error
}

type service struct {
	repo       userStore
	bcryptCost int
}

type ServiceDeps struct {
	UserRepo userStore
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

func NewService(deps ServiceDeps) Service {
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &service{repo: deps.UserRepo, bcryptCost: cost}
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error) {
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.repo.ScanPage(ctx, int32(limit), cursor)
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

// Update changes the caller's own profile. Role and phone are immutable.
func (s *service) Update(ctx context.Context, callerID, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	if callerID != userID {
		return nil, fmt.Errorf("cannot update another user: %w", domain.ErrForbidden)
	}
	if req.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &e
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	current, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != current.Email {
		if err := s.repo.UpdateEmail(ctx, userID, current.Email, *req.Email); err != nil {
			return nil, err
		}
		current.Email = *req.Email
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates[fieldName] = strings.TrimSpace(*req.Name)
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.bcryptCost)
		if err != nil {
			return nil, err
		}
		updates[fieldPasswordHash] = string(hash)
	}
	if len(updates) == 0 {
		return current, nil
	}
	return s.repo.Update(ctx, userID, updates)
}

// Disable turns off the caller's own account. Accounts are never deleted.
func (s *service) Disable(ctx context.Context, callerID, userID string) error {
	if callerID != userID {
		return fmt.Errorf("cannot disable another user: %w", domain.ErrForbidden)
	}
	return s.repo.Disable(ctx, userID)
}
