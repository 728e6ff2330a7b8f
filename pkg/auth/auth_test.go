package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/palette/pkg/auth"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func echoSubject(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, auth.Subject(r.Context()))
}

func TestDisabledUsesDevSubject(t *testing.T) {
	cfg := &auth.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	handler := auth.New(cfg, discard).Middleware()(http.HandlerFunc(echoSubject))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "local-dev" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestBearerVerification(t *testing.T) {
	v := auth.VerifierFunc(func(ctx context.Context, raw string) (string, error) {
		if raw == "good" {
			return "user-42", nil
		}
		return "", errors.New("bad signature")
	})
	handler := auth.NewWithVerifier(v, discard).Middleware()(http.HandlerFunc(echoSubject))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer good", http.StatusOK, "user-42"},
		{"lowercase scheme", "bearer good", http.StatusOK, "user-42"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"basic", "Basic abc", http.StatusUnauthorized, ""},
		{"invalid", "Bearer forged", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status: got %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK && rec.Body.String() != tt.body {
				t.Errorf("subject: got %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestEnabledWithoutVerifierIsUnavailable(t *testing.T) {
	cfg := &auth.Config{Enabled: true, Issuer: "https://issuer.example", ClientID: "palette"}
	handler := auth.New(cfg, discard).Middleware()(http.HandlerFunc(echoSubject))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer anything")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", rec.Code)
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := &auth.Config{Enabled: true}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("expected error without issuer and client id")
	}

	t.Setenv("TEST_AUTH_ENABLED", "false")
	cfg = &auth.Config{Enabled: true}
	if err := cfg.Finalize(&auth.Env{Enabled: "TEST_AUTH_ENABLED"}); err != nil {
		t.Errorf("env disable should pass validation: %v", err)
	}
}
