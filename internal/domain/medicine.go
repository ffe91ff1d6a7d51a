package domain

import "time"

type Medicine struct {
	MedicineID  string    `json:"id" dynamodbav:"medicine_id"`
	StoreID     string    `json:"store_id" dynamodbav:"store_id"`
	VendorID    string    `json:"vendor_id" dynamodbav:"vendor_id"`
	Name        string    `json:"name" dynamodbav:"name"`
	Description string    `json:"description" dynamodbav:"description"`
	Price       float64   `json:"price" dynamodbav:"price"`
	Stock       int       `json:"stock" dynamodbav:"stock"`
	ImageURL    *string   `json:"image_url" dynamodbav:"image_url"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateMedicineRequest struct {
	StoreID     string  `json:"store_id" validate:"required"`
	Name        string  `json:"name" validate:"required,max=120"`
	Description string  `json:"description" validate:"max=2000"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
}

type UpdateMedicineRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=120"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
}
