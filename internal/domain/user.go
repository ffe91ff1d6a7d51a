package domain

import "time"

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Name         string    `json:"name" dynamodbav:"name"`
	Phone        string    `json:"mobile_number" dynamodbav:"phone"`
	Email        string    `json:"email,omitempty" dynamodbav:"email,omitempty"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash,omitempty"`
	Role         string    `json:"role" dynamodbav:"role"`
	Enable       bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
}
