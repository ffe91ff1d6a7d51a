package domain

import "time"

type Store struct {
	StoreID   string     `json:"id" dynamodbav:"store_id"`
	VendorID  string     `json:"vendor_id" dynamodbav:"vendor_id"`
	Name      string     `json:"name" dynamodbav:"name"`
	Location  string     `json:"location" dynamodbav:"location"`
	CreatedAt time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time  `json:"updated" dynamodbav:"updated_at"`
	Medicines []Medicine `json:"medicines,omitempty" dynamodbav:"-"`
}

type StoreInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Location string `json:"location" validate:"required,max=200"`
}
