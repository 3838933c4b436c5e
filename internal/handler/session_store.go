package handler

import (
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionName is the cookie holding the signed-in account and view preferences.
const SessionName = "followup_session"

const (
	sessionAccountKey = "account_id"
	sessionFilterKey  = "filter"
)

// NewSessionStore creates a new cookie store for sessions
func NewSessionStore(secret []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30, // 30 days
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
