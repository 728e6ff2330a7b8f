// Package auth verifies OIDC bearer tokens and carries the caller's
// subject through the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/JaimeStill/palette/pkg/handlers"
	"github.com/JaimeStill/palette/pkg/lifecycle"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
	ErrNotReady     = errors.New("token verifier not ready")
)

// Verifier checks a raw token and returns its subject.
type Verifier interface {
	Verify(ctx context.Context, raw string) (string, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, raw string) (string, error)

func (f VerifierFunc) Verify(ctx context.Context, raw string) (string, error) {
	return f(ctx, raw)
}

type oidcVerifier struct {
	v *oidc.IDTokenVerifier
}

func (o oidcVerifier) Verify(ctx context.Context, raw string) (string, error) {
	tok, err := o.v.Verify(ctx, raw)
	if err != nil {
		return "", err
	}
	return tok.Subject, nil
}

type subjectKey struct{}

// WithSubject returns ctx carrying subject.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// Subject returns the authenticated subject, or "".
func Subject(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// Authenticator holds the active verifier.
type Authenticator struct {
	cfg    *Config
	logger *slog.Logger

	mu       sync.RWMutex
	verifier Verifier
}

// New creates an Authenticator. With a JWKS URL the verifier is built
// immediately; otherwise Start discovers it from the issuer.
func New(cfg *Config, logger *slog.Logger) *Authenticator {
	a := &Authenticator{
		cfg:    cfg,
		logger: logger.With("system", "auth"),
	}

	if cfg.Enabled && cfg.JWKSURL != "" {
		keys := oidc.NewRemoteKeySet(context.Background(), cfg.JWKSURL)
		a.verifier = oidcVerifier{oidc.NewVerifier(cfg.Issuer, keys, &oidc.Config{ClientID: cfg.ClientID})}
	}
	return a
}

// NewWithVerifier creates an enabled Authenticator around v.
func NewWithVerifier(v Verifier, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		cfg:      &Config{Enabled: true},
		logger:   logger.With("system", "auth"),
		verifier: v,
	}
}

// Start registers issuer discovery when no verifier was configured.
func (a *Authenticator) Start(lc *lifecycle.Coordinator) error {
	if !a.cfg.Enabled {
		a.logger.Warn("authentication disabled", "subject", a.cfg.DevSubject)
		return nil
	}
	if a.current() != nil {
		return nil
	}

	lc.OnStartup("auth", func(ctx context.Context) error {
		provider, err := oidc.NewProvider(ctx, a.cfg.Issuer)
		if err != nil {
			return fmt.Errorf("discover issuer %s: %w", a.cfg.Issuer, err)
		}

		a.mu.Lock()
		a.verifier = oidcVerifier{provider.Verifier(&oidc.Config{ClientID: a.cfg.ClientID})}
		a.mu.Unlock()

		a.logger.Info("oidc issuer discovered", "issuer", a.cfg.Issuer)
		return nil
	})
	return nil
}

func (a *Authenticator) current() Verifier {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.verifier
}

// Middleware rejects requests without a valid bearer token and stores the
// token subject in the context.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.cfg.Enabled {
				next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), a.cfg.DevSubject)))
				return
			}

			v := a.current()
			if v == nil {
				handlers.RespondError(w, a.logger, http.StatusServiceUnavailable, ErrNotReady)
				return
			}

			raw, ok := bearer(r)
			if !ok {
				handlers.RespondError(w, a.logger, http.StatusUnauthorized, ErrMissingToken)
				return
			}

			subject, err := v.Verify(r.Context(), raw)
			if err != nil || subject == "" {
				a.logger.Debug("token rejected", "error", err)
				handlers.RespondError(w, a.logger, http.StatusUnauthorized, ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
