package domain

import "time"

type Review struct {
	ReviewID   string    `json:"id" dynamodbav:"review_id"`
	MedicineID string    `json:"medicine_id" dynamodbav:"medicine_id"`
	UserID     string    `json:"user_id" dynamodbav:"user_id"`
	Content    string    `json:"content" dynamodbav:"content"`
	Rating     int       `json:"rating" dynamodbav:"rating"`
	CreatedAt  time.Time `json:"created" dynamodbav:"created_at"`
}

type CreateReviewRequest struct {
	MedicineID string `json:"medicine_id" validate:"required"`
	Content    string `json:"content" validate:"required,max=2000"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
}
