package http

import (
	"context"
	"io"
	"time"

	"github.com/medmarket-api/internal/domain"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) (*domain.User, error)
	UpdateEmail(ctx context.Context, userID, oldEmail, newEmail string) error
	Disable(ctx context.Context, userID string) error
	// ScanPage returns a page of enabled users.
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
}

// OTPRepository is the minimal interface the router requires from a one-time code store.
// Every method is a single conditional write; callers never read-then-write.
type OTPRepository interface {
	PutIfResendable(ctx context.Context, rec *domain.OTPRecord, now time.Time) error
	Consume(ctx context.Context, phone, code string, intent domain.OTPIntent, now time.Time) (*domain.OTPRecord, error)
	RecordFailedAttempt(ctx context.Context, phone, code string, maxAttempts int) error
	DeleteIfCode(ctx context.Context, phone, code string) error
}

// StoreRepository is the minimal interface the router requires from a store table.
type StoreRepository interface {
	Put(ctx context.Context, s *domain.Store) error
	Get(ctx context.Context, storeID string) (*domain.Store, error)
	ListByVendor(ctx context.Context, vendorID string) ([]domain.Store, error)
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Store, string, error)
	Update(ctx context.Context, storeID string, updates map[string]interface{}) (*domain.Store, error)
	Delete(ctx context.Context, storeID string) error
}

// MedicineRepository is the minimal interface the router requires from a medicine table.
type MedicineRepository interface {
	Put(ctx context.Context, m *domain.Medicine) error
	Get(ctx context.Context, medicineID string) (*domain.Medicine, error)
	ListByVendor(ctx context.Context, vendorID string) ([]domain.Medicine, error)
	ListByStore(ctx context.Context, storeID string) ([]domain.Medicine, error)
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Medicine, string, error)
	Update(ctx context.Context, medicineID string, updates map[string]interface{}) (*domain.Medicine, error)
	AddStock(ctx context.Context, medicineID string, qty int, price float64) (*domain.Medicine, error)
	Delete(ctx context.Context, medicineID string) error
}

// ReviewRepository is the minimal interface the router requires from a review table.
type ReviewRepository interface {
	Put(ctx context.Context, r *domain.Review) error
	Get(ctx context.Context, reviewID string) (*domain.Review, error)
	ListByMedicine(ctx context.Context, medicineID string) ([]domain.Review, error)
	Delete(ctx context.Context, reviewID string) error
}

// ObjectStore is the minimal interface the router requires from an object storage backend.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, location string) error
}

// SMSSender delivers verification codes.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}
