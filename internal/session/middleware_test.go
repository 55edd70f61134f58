package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// testHandler reports the authorized username.
func testHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(ident.Email))
	})
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRequireReporter_NoToken(t *testing.T) {
	gate := NewGate(newCodec(t), newStore())
	handler := gate.RequireReporter()(testHandler())

	req := httptest.NewRequest(http.MethodPost, "/requests/garbage", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != ReporterLoginPath {
		t.Errorf("expected redirect to %s, got %q", ReporterLoginPath, loc)
	}
	c := findCookie(rec, ReporterCookie)
	if c == nil || c.MaxAge >= 0 || c.Value != "" {
		t.Errorf("expected cleared %s cookie, got %+v", ReporterCookie, c)
	}
}

func TestRequireReporter_ValidCookie(t *testing.T) {
	codec := newCodec(t)
	gate := NewGate(codec, newStore())
	handler := gate.RequireReporter()(testHandler())

	req := httptest.NewRequest(http.MethodGet, "/reporters/me", nil)
	req.AddCookie(&http.Cookie{Name: ReporterCookie, Value: sign(t, codec, ana)})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ana@example.com" {
		t.Errorf("expected ana@example.com, got %q", rec.Body.String())
	}
}

func TestRequireReporter_BearerFallback(t *testing.T) {
	codec := newCodec(t)
	gate := NewGate(codec, newStore())
	handler := gate.RequireReporter()(testHandler())

	req := httptest.NewRequest(http.MethodGet, "/reporters/me", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, codec, ana))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestRequireAdministrator_ReporterCookieRejected(t *testing.T) {
	codec := newCodec(t)
	gate := NewGate(codec, newStore(), WithSecureCookies(true))
	handler := gate.RequireAdministrator()(testHandler())

	req := httptest.NewRequest(http.MethodGet, "/admin/requests/garbage", nil)
	// A reporter token presented in the admin cookie.
	req.AddCookie(&http.Cookie{Name: AdminCookie, Value: sign(t, codec, ana)})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != AdminLoginPath {
		t.Errorf("expected redirect to %s, got %q", AdminLoginPath, loc)
	}
	c := findCookie(rec, AdminCookie)
	if c == nil || !c.Secure || !c.HttpOnly {
		t.Errorf("expected cleared secure httponly %s cookie, got %+v", AdminCookie, c)
	}
}

func TestRequireAdministrator_ValidCookie(t *testing.T) {
	codec := newCodec(t)
	gate := NewGate(codec, newStore())
	handler := gate.RequireAdministrator()(testHandler())

	req := httptest.NewRequest(http.MethodGet, "/admin/requests/garbage", nil)
	req.AddCookie(&http.Cookie{Name: AdminCookie, Value: sign(t, codec, eve)})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*http.Request)
		kind    Kind
		want    string
		wantErr bool
	}{
		{"reporter cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: "abc"}) }, KindReporter, "abc", false},
		{"admin cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "adminToken", Value: "xyz"}) }, KindAdministrator, "xyz", false},
		{"wrong cookie for kind", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: "abc"}) }, KindAdministrator, "", true},
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer tok") }, KindReporter, "tok", false},
		{"basic header", func(r *http.Request) { r.Header.Set("Authorization", "Basic dXNlcjpwYXNz") }, KindReporter, "", true},
		{"empty bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer ") }, KindReporter, "", true},
		{"nothing", func(*http.Request) {}, KindReporter, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			got, err := TokenFromRequest(req, tt.kind)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
