package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medmarket-api/internal/domain"
	"github.com/medmarket-api/internal/pkg/id"
	"github.com/medmarket-api/internal/pkg/validate"
)

const (
	fieldName     = "name"
	fieldLocation = "location"

	defaultPageSize = 50
	maxPageSize     = 100
)

type Service interface {
	Create(ctx context.Context, vendorID string, in domain.StoreInput) (*domain.Store, error)
	Get(ctx context.Context, storeID string) (*domain.Store, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.Store, string, error)
	Update(ctx context.Context, vendorID, storeID string, in domain.StoreInput) (*domain.Store, error)
	Delete(ctx context.Context, vendorID, storeID string) error
}

type storeRepo interface {
	Put(ctx context.Context, s *domain.Store) error
	Get(ctx context.Context, storeID string) (*domain.Store, error)
	ListByVendor(ctx context.Context, vendorID string) ([]domain.Store, error)
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Store, string, error)
	Update(ctx context.Context, storeID string, updates map[string]interface{}) (*domain.Store, error)
	Delete(ctx context.Context, storeID string) error
}

type medicineLister interface {
	ListByStore(ctx context.Context, storeID string) ([]domain.Medicine, error)
}

type ServiceDeps struct {
	StoreRepo    storeRepo
	MedicineRepo medicineLister
}

type service struct {
	repo      storeRepo
	medicines medicineLister
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.StoreRepo, medicines: deps.MedicineRepo}
}

func (s *service) Create(ctx context.Context, vendorID string, in domain.StoreInput) (*domain.Store, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if err := s.checkNameFree(ctx, vendorID, "", in.Name); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	st := &domain.Store{
		StoreID:   id.New(),
		VendorID:  vendorID,
		Name:      in.Name,
		Location:  in.Location,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Put(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// checkNameFree fails with ErrAlreadyExists when another store of the vendor
// (other than exceptID) already uses name.
func (s *service) checkNameFree(ctx context.Context, vendorID, exceptID, name string) error {
	stores, err := s.repo.ListByVendor(ctx, vendorID)
	if err != nil {
		return err
	}
	for _, st := range stores {
		if st.StoreID != exceptID && strings.EqualFold(st.Name, name) {
			return fmt.Errorf("store %q already exists: %w", name, domain.ErrAlreadyExists)
		}
	}
	return nil
}

// Get returns the store together with its medicines.
func (s *service) Get(ctx context.Context, storeID string) (*domain.Store, error) {
	st, err := s.repo.Get(ctx, storeID)
	if err != nil {
		return nil, err
	}
	meds, err := s.medicines.ListByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	st.Medicines = meds
	return st, nil
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.Store, string, error) {
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.repo.ScanPage(ctx, int32(limit), cursor)
}

func (s *service) owned(ctx context.Context, vendorID, storeID string) (*domain.Store, error) {
	st, err := s.repo.Get(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if st.VendorID != vendorID {
		return nil, fmt.Errorf("store belongs to another vendor: %w", domain.ErrForbidden)
	}
	return st, nil
}

func (s *service) Update(ctx context.Context, vendorID, storeID string, in domain.StoreInput) (*domain.Store, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	st, err := s.owned(ctx, vendorID, storeID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(st.Name, in.Name) {
		if err := s.checkNameFree(ctx, vendorID, storeID, in.Name); err != nil {
			return nil, err
		}
	}
	return s.repo.Update(ctx, storeID, map[string]interface{}{
		fieldName:     in.Name,
		fieldLocation: in.Location,
	})
}

// Delete removes an empty store. A store that still lists medicines is kept.
func (s *service) Delete(ctx context.Context, vendorID, storeID string) error {
	if _, err := s.owned(ctx, vendorID, storeID); err != nil {
		return err
	}
	meds, err := s.medicines.ListByStore(ctx, storeID)
	if err != nil {
		return err
	}
	if len(meds) > 0 {
		return fmt.Errorf("store still has %d medicines: %w", len(meds), domain.ErrConflict)
	}
	return s.repo.Delete(ctx, storeID)
}
