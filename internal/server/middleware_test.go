package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"tailscale.com/client/tailscale/apitype"
	"tailscale.com/tailcfg"
)

type fakeWhoIs struct {
	resp *apitype.WhoIsResponse
	err  error
}

func (f fakeWhoIs) WhoIs(context.Context, string) (*apitype.WhoIsResponse, error) {
	return f.resp, f.err
}

func identityRecorder(gotID *int, gotInfo *UserInfo) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotID = userIDFromContext(r)
		*gotInfo = userInfoFromContext(r)
		w.WriteHeader(http.StatusOK)
	})
}

// TestIdentifyDevUser verifies that without Tailscale every request resolves
// to the local dev user through the store.
func TestIdentifyDevUser(t *testing.T) {
	db := newFakeStore()
	s := newTestServer(db, nil)

	var gotID int
	var gotInfo UserInfo
	handler := s.identify(identityRecorder(&gotID, &gotInfo))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if gotInfo != devUser {
		t.Errorf("info = %+v, want %+v", gotInfo, devUser)
	}
	if gotID != db.users["local"] {
		t.Errorf("userID = %d, want %d", gotID, db.users["local"])
	}
}

// TestIdentifyTailscaleUser verifies the WhoIs profile becomes the dashboard user.
func TestIdentifyTailscaleUser(t *testing.T) {
	db := newFakeStore()
	db.users["someone-else"] = 1
	s := newTestServer(db, nil)
	s.SetTailscale(fakeWhoIs{resp: &apitype.WhoIsResponse{
		UserProfile: &tailcfg.UserProfile{LoginName: "alice@example.com", DisplayName: "Alice"},
	}})

	var gotID int
	var gotInfo UserInfo
	rec := httptest.NewRecorder()
	s.identify(identityRecorder(&gotID, &gotInfo)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotInfo.Login != "alice@example.com" || gotInfo.DisplayName != "Alice" {
		t.Errorf("info = %+v", gotInfo)
	}
	if gotID != 2 {
		t.Errorf("userID = %d, want 2", gotID)
	}
}

// TestIdentifyRejects verifies failed lookups never reach the handler.
func TestIdentifyRejects(t *testing.T) {
	tests := []struct {
		name   string
		whois  fakeWhoIs
		dbErr  error
		status int
	}{
		{"whois error", fakeWhoIs{err: errors.New("no peer")}, nil, http.StatusUnauthorized},
		{"tagged node", fakeWhoIs{resp: &apitype.WhoIsResponse{}}, nil, http.StatusForbidden},
		{"store error", fakeWhoIs{resp: &apitype.WhoIsResponse{
			UserProfile: &tailcfg.UserProfile{LoginName: "bob@example.com"},
		}}, errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newFakeStore()
			db.err = tt.dbErr
			s := newTestServer(db, nil)
			s.SetTailscale(tt.whois)

			handler := s.identify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("next handler should not be called")
			}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

// TestUserIDFromContextDefault verifies that userIDFromContext returns 1
// when no identity middleware has set a value (fallback for safety).
func TestUserIDFromContextDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := userIDFromContext(req); id != 1 {
		t.Errorf("userIDFromContext without context value = %d, want 1", id)
	}
}

// TestUserInfoFromContext verifies the identity round-trips through the context.
func TestUserInfoFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if info := userInfoFromContext(req); info != devUser {
		t.Errorf("default info = %+v, want dev user", info)
	}

	req = req.WithContext(withIdentity(req.Context(), 42, UserInfo{Login: "alice@example.com", DisplayName: "Alice"}))
	if id := userIDFromContext(req); id != 42 {
		t.Errorf("userIDFromContext = %d, want 42", id)
	}
	if info := userInfoFromContext(req); info.Login != "alice@example.com" {
		t.Errorf("login = %q, want %q", info.Login, "alice@example.com")
	}
}

// TestAPIKeyAuth verifies missing keys get 401 and wrong keys 403.
func TestAPIKeyAuth(t *testing.T) {
	handler := APIKeyAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for key, want := range map[string]int{"": http.StatusUnauthorized, "nope": http.StatusForbidden, "secret": http.StatusOK} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("key %q: status = %d, want %d", key, rec.Code, want)
		}
	}
}

// TestRequestLogging verifies that the logging middleware calls the next handler and records status.
func TestRequestLogging(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := RequestLogging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
}

// TestCORSPreflight verifies that OPTIONS requests get 204 and advertise the
// dashboard's write methods.
func TestCORSPreflight(t *testing.T) {
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called for OPTIONS")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS origin = %q, want *", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PATCH, DELETE, OPTIONS" {
		t.Errorf("CORS methods = %q", got)
	}
}
