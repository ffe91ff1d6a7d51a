package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medmarket-api/internal/domain"
	"github.com/medmarket-api/internal/pkg/id"
	"github.com/medmarket-api/internal/pkg/validate"
)

type Service interface {
	Create(ctx context.Context, userID string, req domain.CreateReviewRequest) (*domain.Review, error)
	ListByMedicine(ctx context.Context, medicineID string) ([]domain.Review, error)
	Delete(ctx context.Context, userID, reviewID string) error
}

type reviewRepo interface {
	Put(ctx context.Context, r *domain.Review) error
	Get(ctx context.Context, reviewID string) (*domain.Review, error)
	ListByMedicine(ctx context.Context, medicineID string) ([]domain.Review, error)
	Delete(ctx context.Context, reviewID string) error
}

type medicineGetter interface {
	Get(ctx context.Context, medicineID string) (*domain.Medicine, error)
}

type ServiceDeps struct {
	ReviewRepo   reviewRepo
	MedicineRepo medicineGetter
}

type service struct {
	repo      reviewRepo
	medicines medicineGetter
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.ReviewRepo, medicines: deps.MedicineRepo}
}

func (s *service) Create(ctx context.Context, userID string, req domain.CreateReviewRequest) (*domain.Review, error) {
	req.Content = strings.TrimSpace(req.Content)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if _, err := s.medicines.Get(ctx, req.MedicineID); err != nil {
		return nil, err
	}
	rv := &domain.Review{
		ReviewID:   id.New(),
		MedicineID: req.MedicineID,
		UserID:     userID,
		Content:    req.Content,
		Rating:     req.Rating,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Put(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

func (s *service) ListByMedicine(ctx context.Context, medicineID string) ([]domain.Review, error) {
	if _, err := s.medicines.Get(ctx, medicineID); err != nil {
		return nil, err
	}
	return s.repo.ListByMedicine(ctx, medicineID)
}

// Delete removes a review. Only its author may do so.
func (s *service) Delete(ctx context.Context, userID, reviewID string) error {
	rv, err := s.repo.Get(ctx, reviewID)
	if err != nil {
		return err
	}
	if rv.UserID != userID {
		return fmt.Errorf("review belongs to another user: %w", domain.ErrForbidden)
	}
	return s.repo.Delete(ctx, reviewID)
}
