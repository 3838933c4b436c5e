package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"followup-tracker/internal/logger"
	"followup-tracker/internal/model"
	"followup-tracker/internal/repository"
)

type authService struct {
	accountRepo repository.AccountRepository
	oauthConfig *oauth2.Config
	logger      *logger.Logger

	// active is the account whose mailbox feeds refreshes.
	activeMux sync.RWMutex
	active    string
}

// NewAuthService keeps the signed-in account. oauthConfig, when set, is used
// to renew expired access tokens with the stored refresh token.
func NewAuthService(accountRepo repository.AccountRepository, oauthConfig *oauth2.Config, logger *logger.Logger) AuthService {
	return &authService{
		accountRepo: accountRepo,
		oauthConfig: oauthConfig,
		logger:      logger,
	}
}

func (s *authService) SignIn(ctx context.Context, providerID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) (*model.Account, error) {
	account, err := s.accountRepo.FindByProviderID(ctx, providerID)
	if err != nil {
		account = model.NewAccount(providerID, email, name, accessToken, refreshToken, tokenExpiry)
		s.logger.Info("Created new account:", account.ID)
	} else {
		account.Email = email
		account.Name = name
		account.AccessToken = accessToken
		// providers only send a refresh token on first consent
		if refreshToken != "" {
			account.RefreshToken = refreshToken
		}
		account.TokenExpiry = tokenExpiry
		account.UpdatedAt = time.Now()
		s.logger.Info("Updated existing account:", account.ID)
	}

	if err := s.accountRepo.Save(ctx, account); err != nil {
		s.logger.Error("Failed to save account:", err)
		return nil, err
	}

	s.activeMux.Lock()
	s.active = account.ID
	s.activeMux.Unlock()

	return account, nil
}

func (s *authService) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	return s.accountRepo.FindByID(ctx, accountID)
}

// Activate looks up a session's account and makes it the active mailbox owner.
func (s *authService) Activate(ctx context.Context, accountID string) (*model.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	s.activeMux.Lock()
	s.active = account.ID
	s.activeMux.Unlock()

	return account, nil
}

func (s *authService) SignOut(ctx context.Context, accountID string) {
	s.activeMux.Lock()
	defer s.activeMux.Unlock()

	if s.active == accountID {
		s.active = ""
	}
}

// AccessToken returns a usable token for the active account, refreshing it
// when it has expired.
func (s *authService) AccessToken(ctx context.Context) (string, error) {
	s.activeMux.RLock()
	accountID := s.active
	s.activeMux.RUnlock()

	if accountID == "" {
		return "", ErrNotAuthenticated
	}
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return "", ErrNotAuthenticated
	}

	token := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		Expiry:       account.TokenExpiry,
	}
	if token.Valid() || s.oauthConfig == nil || token.RefreshToken == "" {
		return account.AccessToken, nil
	}

	renewed, err := s.oauthConfig.TokenSource(ctx, token).Token()
	if err != nil {
		s.logger.Error("Failed to refresh access token:", err)
		return "", ErrNotAuthenticated
	}
	account.AccessToken = renewed.AccessToken
	if renewed.RefreshToken != "" {
		account.RefreshToken = renewed.RefreshToken
	}
	account.TokenExpiry = renewed.Expiry
	account.UpdatedAt = time.Now()
	if err := s.accountRepo.Save(ctx, account); err != nil {
		s.logger.Warn("Failed to persist refreshed token:", err)
	}
	return account.AccessToken, nil
}
