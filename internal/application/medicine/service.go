package medicine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/medmarket-api/internal/domain"
	"github.com/medmarket-api/internal/pkg/id"
	"github.com/medmarket-api/internal/pkg/validate"
)

const (
	fieldName        = "name"
	fieldDescription = "description"
	fieldPrice       = "price"
	fieldStock       = "stock"
	fieldImageURL    = "image_url"

	defaultPageSize = 50
	maxPageSize     = 100
)

var allowedImageExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

type Service interface {
	// Create adds a medicine to one of the vendor's stores. When the store
	// already lists a medicine with the same name, its stock is increased and
	// its price replaced instead; created reports which happened.
	Create(ctx context.Context, vendorID string, req domain.CreateMedicineRequest) (m *domain.Medicine, created bool, err error)
	Get(ctx context.Context, medicineID string) (*domain.Medicine, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.Medicine, string, error)
	ListByVendor(ctx context.Context, vendorID string) ([]domain.Medicine, error)
	Update(ctx context.Context, vendorID, medicineID string, req domain.UpdateMedicineRequest) (*domain.Medicine, error)
	Delete(ctx context.Context, vendorID, medicineID string) error
	SetImage(ctx context.Context, vendorID, medicineID, filename string, r io.Reader) (*domain.Medicine, error)
}

type medicineRepo interface {
	Put(ctx context.Context, m *domain.Medicine) error
	Get(ctx context.Context, medicineID string) (*domain.Medicine, error)
	ListByVendor(ctx context.Context, vendorID string) ([]domain.Medicine, error)
	ListByStore(ctx context.Context, storeID string) ([]domain.Medicine, error)
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Medicine, string, error)
	Update(ctx context.Context, medicineID string, updates map[string]interface{}) (*domain.Medicine, error)
	AddStock(ctx context.Context, medicineID string, qty int, price float64) (*domain.Medicine, error)
	Delete(ctx context.Context, medicineID string) error
}

type storeGetter interface {
	Get(ctx context.Context, storeID string) (*domain.Store, error)
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, location string) error
}

type ServiceDeps struct {
	MedicineRepo medicineRepo
	StoreRepo    storeGetter
	Images       objectStore
}

type service struct {
	repo   medicineRepo
	stores storeGetter
	images objectStore
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.MedicineRepo, stores: deps.StoreRepo, images: deps.Images}
}

func (s *service) Create(ctx context.Context, vendorID string, req domain.CreateMedicineRequest) (*domain.Medicine, bool, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return nil, false, err
	}
	st, err := s.stores.Get(ctx, req.StoreID)
	if err != nil {
		return nil, false, err
	}
	if st.VendorID != vendorID {
		return nil, false, fmt.Errorf("store belongs to another vendor: %w", domain.ErrForbidden)
	}

	existing, err := s.repo.ListByStore(ctx, req.StoreID)
	if err != nil {
		return nil, false, err
	}
	for _, m := range existing {
		if strings.EqualFold(m.Name, req.Name) {
			updated, err := s.repo.AddStock(ctx, m.MedicineID, req.Stock, req.Price)
			return updated, false, err
		}
	}

	now := time.Now().UTC()
	m := &domain.Medicine{
		MedicineID:  id.New(),
		StoreID:     req.StoreID,
		VendorID:    vendorID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Put(ctx, m); err != nil {
		return nil, false, err
	}
	return m, true, nil
}

func (s *service) Get(ctx context.Context, medicineID string) (*domain.Medicine, error) {
	return s.repo.Get(ctx, medicineID)
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.Medicine, string, error) {
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.repo.ScanPage(ctx, int32(limit), cursor)
}

func (s *service) ListByVendor(ctx context.Context, vendorID string) ([]domain.Medicine, error) {
	return s.repo.ListByVendor(ctx, vendorID)
}

func (s *service) owned(ctx context.Context, vendorID, medicineID string) (*domain.Medicine, error) {
	m, err := s.repo.Get(ctx, medicineID)
	if err != nil {
		return nil, err
	}
	if m.VendorID != vendorID {
		return nil, fmt.Errorf("medicine belongs to another vendor: %w", domain.ErrForbidden)
	}
	return m, nil
}

func (s *service) Update(ctx context.Context, vendorID, medicineID string, req domain.UpdateMedicineRequest) (*domain.Medicine, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	m, err := s.owned(ctx, vendorID, medicineID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates[fieldName] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates[fieldDescription] = *req.Description
	}
	if req.Price != nil {
		updates[fieldPrice] = *req.Price
	}
	if req.Stock != nil {
		updates[fieldStock] = *req.Stock
	}
	if len(updates) == 0 {
		return m, nil
	}
	return s.repo.Update(ctx, medicineID, updates)
}

func (s *service) Delete(ctx context.Context, vendorID, medicineID string) error {
	m, err := s.owned(ctx, vendorID, medicineID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, medicineID); err != nil {
		return err
	}
	s.dropImage(ctx, m.ImageURL)
	return nil
}

// SetImage stores the uploaded image and points the medicine at it. The
// previous image, if any, is removed afterwards.
func (s *service) SetImage(ctx context.Context, vendorID, medicineID, filename string, r io.Reader) (*domain.Medicine, error) {
	ext := strings.ToLower(path.Ext(filename))
	if !allowedImageExt[ext] {
		return nil, fmt.Errorf("unsupported image type %q: %w", ext, domain.ErrBadRequest)
	}
	m, err := s.owned(ctx, vendorID, medicineID)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("medicines/%s/%s%s", medicineID, id.New(), ext)
	loc, err := s.images.Upload(ctx, key, r, "")
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, medicineID, map[string]interface{}{fieldImageURL: loc})
	if err != nil {
		s.dropImage(ctx, &loc)
		return nil, err
	}
	s.dropImage(ctx, m.ImageURL)
	return updated, nil
}

func (s *service) dropImage(ctx context.Context, loc *string) {
	if loc == nil || *loc == "" {
		return
	}
	if err := s.images.Delete(ctx, *loc); err != nil {
		slog.WarnContext(ctx, "failed to delete medicine image", "location", *loc, "err", err)
	}
}
