package models

import "time"

// User is a locally registered account
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserResponse is the safe representation returned by auth endpoints
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ToResponse converts a User to its API representation
func (u *User) ToResponse() UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email}
}
