package handler

import (
	"fmt"
	"net/http"

	"followup-tracker/internal/config"
	"followup-tracker/internal/model"
	"followup-tracker/internal/service"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
)

// GmailScopes are requested at sign-in; the tracker only reads the mailbox.
var GmailScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

type AuthHandler struct {
	authService service.AuthService
	store       sessions.Store
	logger      echo.Logger
}

func NewAuthHandler(authService service.AuthService, store sessions.Store, logger echo.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		store:       store,
		logger:      logger,
	}
}

// UseGoogleProvider registers the Google provider with goth. gothic keeps its
// OAuth state in the same cookie store as the app session.
func UseGoogleProvider(cfg *config.Config, store sessions.Store) {
	gothic.Store = store
	provider := google.New(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.BaseURL+"/auth/google/callback",
		GmailScopes...,
	)
	// offline access yields a refresh token for periodic refreshes
	provider.SetAccessType("offline")
	goth.UseProviders(provider)
}

func forceGoogleProvider(c echo.Context) *http.Request {
	req := c.Request()
	q := req.URL.Query()
	q.Set("provider", "google")
	req.URL.RawQuery = q.Encode()
	return req
}

// BeginAuthHandler initiates the OAuth flow
func (h *AuthHandler) BeginAuthHandler(c echo.Context) error {
	if c.Param("provider") != "google" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid provider",
		})
	}

	gothic.BeginAuthHandler(c.Response(), forceGoogleProvider(c))
	return nil
}

// CallbackHandler handles the OAuth callback
func (h *AuthHandler) CallbackHandler(c echo.Context) error {
	req := forceGoogleProvider(c)

	googleUser, err := gothic.CompleteUserAuth(c.Response(), req)
	if err != nil {
		h.logger.Error("Failed to complete user auth:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Authentication failed",
		})
	}

	account, err := h.authService.SignIn(
		req.Context(),
		googleUser.Provider+"_"+googleUser.UserID,
		googleUser.Email,
		googleUser.Name,
		googleUser.AccessToken,
		googleUser.RefreshToken,
		googleUser.ExpiresAt,
	)
	if err != nil {
		h.logger.Error("Failed to sign in account:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to process account",
		})
	}

	session, _ := h.store.Get(req, SessionName)
	session.Values[sessionAccountKey] = account.ID
	if err := session.Save(req, c.Response()); err != nil {
		h.logger.Error("Failed to save session:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to save session",
		})
	}

	return c.Redirect(http.StatusTemporaryRedirect, "/api/messages")
}

// LogoutHandler clears the session
func (h *AuthHandler) LogoutHandler(c echo.Context) error {
	req := forceGoogleProvider(c)

	session, _ := h.store.Get(req, SessionName)
	if accountID, ok := session.Values[sessionAccountKey].(string); ok {
		h.authService.SignOut(req.Context(), accountID)
	}
	delete(session.Values, sessionAccountKey)
	if err := session.Save(req, c.Response()); err != nil {
		h.logger.Error("Failed to save session:", err)
	}
	_ = gothic.Logout(c.Response(), req)

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Signed out",
	})
}

// GetCurrentAccount returns the signed-in account and marks it active
func (h *AuthHandler) GetCurrentAccount(c echo.Context) (*model.Account, error) {
	session, err := h.store.Get(c.Request(), SessionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	accountID, ok := session.Values[sessionAccountKey].(string)
	if !ok {
		return nil, service.ErrNotAuthenticated
	}

	account, err := h.authService.Activate(c.Request().Context(), accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}
