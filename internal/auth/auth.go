package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc"
	"golang.org/x/oauth2"

	"binderflow/backend/internal/config"
	"binderflow/backend/internal/repository"
	"binderflow/backend/pkg/models"
)

const (
	stateCookie   = "oauthstate"
	idTokenCookie = "id_token"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Auth performs OpenID Connect authentication against an Okta tenant and
// scopes every authenticated request to the caller's tenant.
type Auth struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	apiVerifier  *oidc.IDTokenVerifier
	repo         repository.TenantStore
	logger       Logger
	devMode      bool
	authBypass   bool
}

// New creates a new Auth object using values from the application
// configuration. Outside bypass mode it contacts the provider and prepares
// the token verifiers.
func New(ctx context.Context, cfg *config.Config, repo repository.TenantStore, logger Logger) (*Auth, error) {
	isDev := cfg.IsDev()
	shouldBypass := isDev && cfg.DevModeBypass

	a := &Auth{
		repo:       repo,
		logger:     logger,
		devMode:    isDev,
		authBypass: shouldBypass,
	}
	if shouldBypass {
		if logger != nil {
			logger.Info("authentication bypassed", "tenant_domain", DevTenantDomain)
		}
		return a, nil
	}

	if cfg.Auth.OktaDomain == "" || cfg.Auth.ClientID == "" ||
		cfg.Auth.ClientSecret == "" || cfg.Auth.RedirectURL == "" {
		return nil, errors.New("auth configuration is incomplete")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Auth.OktaDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to discover oidc provider: %w", err)
	}

	a.oauth2Config = &oauth2.Config{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  cfg.Auth.RedirectURL,
		Scopes:       LoginScopes,
	}
	a.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.Auth.ClientID})
	// Access tokens carry an API audience rather than the client id.
	a.apiVerifier = provider.Verifier(&oidc.Config{SkipClientIDCheck: true})
	return a, nil
}

// Bypassed reports whether requests are authenticated as the dev user.
func (a *Auth) Bypassed() bool { return a.authBypass }

// LoginHandler redirects the user to the authorization endpoint. A random
// state value is stored in a cookie to mitigate CSRF attacks.
func (a *Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if a.authBypass {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	state, err := generateState()
	if err != nil {
		http.Error(w, "failed to generate state", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		HttpOnly: true,
		Path:     "/",
		Secure:   !a.devMode,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, a.oauth2Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// CallbackHandler verifies the state parameter, exchanges the code for
// tokens, validates the ID token and stores it in a session cookie.
func (a *Auth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if a.authBypass {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || r.URL.Query().Get("state") != cookie.Value {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	token, err := a.oauth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		http.Error(w, "token exchange failed", http.StatusInternalServerError)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token in token response", http.StatusInternalServerError)
		return
	}

	if _, err := a.verifier.Verify(r.Context(), rawIDToken); err != nil {
		http.Error(w, "failed to verify id token", http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     idTokenCookie,
		Value:    rawIDToken,
		HttpOnly: true,
		Path:     "/",
		Secure:   !a.devMode,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RequireAuth is middleware that authenticates the request by bearer token
// or session cookie and scopes its context to the caller's tenant. Browser
// requests without a cookie are redirected to the login page.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := "dev@" + DevTenantDomain
		if !a.authBypass {
			token, status, err := a.verify(r)
			if status == http.StatusSeeOther {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if err != nil {
				http.Error(w, "invalid token: "+err.Error(), status)
				return
			}

			var claims struct {
				Email string `json:"email"`
			}
			if err := token.Claims(&claims); err != nil {
				http.Error(w, "failed to parse token claims", http.StatusUnauthorized)
				return
			}
			email = claims.Email
		}

		_, domain, ok := strings.Cut(email, "@")
		if !ok || domain == "" || strings.Contains(domain, "@") {
			http.Error(w, "invalid email format in token", http.StatusUnauthorized)
			return
		}

		tenant, err := a.resolveTenant(r.Context(), domain)
		if err != nil {
			http.Error(w, "failed to provision tenant: "+err.Error(), http.StatusInternalServerError)
			return
		}

		ctx := models.ContextWithTenant(r.Context(), tenant.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// verify checks the bearer token or, failing that, the session cookie.
func (a *Auth) verify(r *http.Request) (*oidc.IDToken, int, error) {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		token, err := a.apiVerifier.Verify(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			return nil, http.StatusUnauthorized, err
		}
		return token, http.StatusOK, nil
	}
	cookie, err := r.Cookie(idTokenCookie)
	if err != nil {
		return nil, http.StatusSeeOther, err
	}
	token, err := a.verifier.Verify(r.Context(), cookie.Value)
	if err != nil {
		return nil, http.StatusUnauthorized, err
	}
	return token, http.StatusOK, nil
}

// resolveTenant looks up the tenant for domain, provisioning it on first use.
func (a *Auth) resolveTenant(ctx context.Context, domain string) (*models.Tenant, error) {
	tenant, err := a.repo.GetTenantByDomain(ctx, domain)
	if err == nil {
		return tenant, nil
	}
	tenant = &models.Tenant{Name: domain, Domain: domain}
	if createErr := a.repo.CreateTenant(ctx, tenant); createErr != nil {
		if a.logger != nil {
			a.logger.Error("failed to provision tenant", "domain", domain, "error", createErr)
		}
		return nil, createErr
	}
	if a.logger != nil {
		a.logger.Info("provisioned tenant", "domain", domain, "tenant_id", tenant.ID)
	}
	return tenant, nil
}

// LogoutHandler clears the session cookie and redirects to the home page.
func (a *Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   idTokenCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
