package model

import (
	"time"

	"github.com/google/uuid"
)

// Account is the single signed-in mailbox identity.
type Account struct {
	ID           string    `json:"id"`
	ProviderID   string    `json:"provider_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenExpiry  time.Time `json:"token_expiry"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewAccount(providerID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) *Account {
	now := time.Now()
	return &Account{
		ID:           uuid.New().String(),
		ProviderID:   providerID,
		Email:        email,
		Name:         name,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenExpiry:  tokenExpiry,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
