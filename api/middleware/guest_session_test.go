package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mercavia/tienda-backend/pkg/config"
)

type recordingGuestStore struct {
	touched   []string
	live      map[string]bool
	err       error
	existsErr error
}

func (s *recordingGuestStore) TouchGuestSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	s.touched = append(s.touched, sessionID)
	return s.err
}

func (s *recordingGuestStore) GuestSessionExists(ctx context.Context, sessionID string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.live[sessionID], nil
}

func guestSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		GuestTTL:        time.Hour,
		GuestCookieName: "tienda_session",
		CookieSecure:    false,
	}
}

func TestGuestSessionMintsCookie(t *testing.T) {
	store := &recordingGuestStore{}
	var seen string
	handler := GuestSession(guestSessionConfig(), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GuestSessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if seen == "" {
		t.Fatal("expected session id in context")
	}
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected uuid session id, got %q", seen)
	}

	cookies := resp.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "tienda_session" {
		t.Fatalf("expected tienda_session cookie, got %v", cookies)
	}
	if cookies[0].Value != seen {
		t.Fatal("cookie and context session id should match")
	}
	if !cookies[0].HttpOnly {
		t.Fatal("expected HttpOnly cookie")
	}
	if len(store.touched) != 1 || store.touched[0] != seen {
		t.Fatalf("expected session touched in store, got %v", store.touched)
	}
}

func TestGuestSessionReusesCookie(t *testing.T) {
	existing := uuid.NewString()
	store := &recordingGuestStore{live: map[string]bool{existing: true}}
	var seen string
	handler := GuestSession(guestSessionConfig(), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GuestSessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "tienda_session", Value: existing})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if seen != existing {
		t.Fatalf("expected reused session %s, got %s", existing, seen)
	}
	if len(resp.Result().Cookies()) != 0 {
		t.Fatal("expected no new cookie for an existing session")
	}
}

func TestGuestSessionReplacesMalformedCookie(t *testing.T) {
	store := &recordingGuestStore{}
	var seen string
	handler := GuestSession(guestSessionConfig(), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GuestSessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "tienda_session", Value: "not-a-uuid"})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if seen == "not-a-uuid" {
		t.Fatal("expected malformed session id to be replaced")
	}
	if len(resp.Result().Cookies()) != 1 {
		t.Fatal("expected replacement cookie")
	}
}

func TestGuestSessionReplacesRetiredCookie(t *testing.T) {
	store := &recordingGuestStore{}
	retired := uuid.NewString()
	var seen string
	handler := GuestSession(guestSessionConfig(), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GuestSessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "tienda_session", Value: retired})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if seen == retired {
		t.Fatal("expected a session unknown to the store to be replaced")
	}
	if len(resp.Result().Cookies()) != 1 {
		t.Fatal("expected replacement cookie")
	}
}

func TestGuestSessionKeepsCookieOnLookupError(t *testing.T) {
	existing := uuid.NewString()
	store := &recordingGuestStore{existsErr: context.DeadlineExceeded}
	var seen string
	handler := GuestSession(guestSessionConfig(), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GuestSessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "tienda_session", Value: existing})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if seen != existing {
		t.Fatalf("expected presented session kept on lookup error, got %s", seen)
	}
}
