package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"binderflow/backend/internal/config"
	"binderflow/backend/pkg/models"
)

const (
	testIssuer   = "https://test-issuer.com"
	testClientID = "test-client"
)

// NoOpLogger for testing
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(msg string, args ...any) {}
func (l *NoOpLogger) Info(msg string, args ...any)  {}
func (l *NoOpLogger) Error(msg string, args ...any) {}

// MockKeySet satisfies oidc.KeySet to bypass signature verification
type MockKeySet struct{}

func (m *MockKeySet) VerifySignature(ctx context.Context, jwtToken string) ([]byte, error) {
	parts := strings.Split(jwtToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed jwt")
	}
	return base64.RawURLEncoding.DecodeString(parts[1])
}

// MockTenantStore satisfies repository.TenantStore
type MockTenantStore struct {
	mock.Mock
}

func (m *MockTenantStore) GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func fakeToken(t *testing.T, email string) string {
	t.Helper()
	claims := map[string]any{
		"iss":   testIssuer,
		"aud":   testClientID,
		"sub":   "test-user",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Add(-1 * time.Minute).Unix(),
		"email": email,
	}
	header, err := json.Marshal(map[string]any{"alg": "RS256", "typ": "JWT", "kid": "test-key"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString([]byte("fakesignature"))
}

func testVerifier() *oidc.IDTokenVerifier {
	return oidc.NewVerifier(testIssuer, &MockKeySet{}, &oidc.Config{
		ClientID:          testClientID,
		SkipClientIDCheck: true,
	})
}

// tenantRecorder is a next handler that captures the tenant in the request context.
func tenantRecorder(got *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, _ = models.TenantFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth_BearerToken_ExtractsTenant(t *testing.T) {
	store := new(MockTenantStore)
	store.On("GetTenantByDomain", mock.Anything, "acme.com").
		Return(&models.Tenant{ID: "tenant-123", Name: "acme.com", Domain: "acme.com"}, nil)

	a := &Auth{apiVerifier: testVerifier(), repo: store}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, "user@acme.com"))
	rec := httptest.NewRecorder()

	var tenantID string
	a.RequireAuth(tenantRecorder(&tenantID)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "tenant-123", tenantID)
	store.AssertExpectations(t)
}

func TestRequireAuth_BypassMode(t *testing.T) {
	store := new(MockTenantStore)
	store.On("GetTenantByDomain", mock.Anything, DevTenantDomain).Return(nil, fmt.Errorf("not found"))
	store.On("CreateTenant", mock.Anything, mock.MatchedBy(func(tenant *models.Tenant) bool {
		return tenant.Domain == DevTenantDomain
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Tenant).ID = "dev-tenant-id"
	}).Return(nil)

	cfg := &config.Config{Environment: "DEV", DevModeBypass: true}
	a, err := New(context.Background(), cfg, store, &NoOpLogger{})
	require.NoError(t, err)
	assert.True(t, a.Bypassed())

	rec := httptest.NewRecorder()
	var tenantID string
	a.RequireAuth(tenantRecorder(&tenantID)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev-tenant-id", tenantID)
	store.AssertExpectations(t)
}

func TestNew_BypassRequiresDev(t *testing.T) {
	cfg := &config.Config{Environment: "PROD", DevModeBypass: true}
	_, err := New(context.Background(), cfg, new(MockTenantStore), &NoOpLogger{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete")
}

func TestRequireAuth_AutoProvisionTenant(t *testing.T) {
	store := new(MockTenantStore)
	store.On("GetTenantByDomain", mock.Anything, "startup.io").Return(nil, fmt.Errorf("not found"))
	store.On("CreateTenant", mock.Anything, mock.MatchedBy(func(tenant *models.Tenant) bool {
		return tenant.Domain == "startup.io" && tenant.Name == "startup.io"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Tenant).ID = "new-tenant-id"
	}).Return(nil)

	a := &Auth{apiVerifier: testVerifier(), repo: store, logger: &NoOpLogger{}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, "founder@startup.io"))
	rec := httptest.NewRecorder()

	var tenantID string
	a.RequireAuth(tenantRecorder(&tenantID)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "new-tenant-id", tenantID)
	store.AssertExpectations(t)
}

func TestRequireAuth_ProvisioningFailure(t *testing.T) {
	store := new(MockTenantStore)
	store.On("GetTenantByDomain", mock.Anything, "broken.io").Return(nil, fmt.Errorf("not found"))
	store.On("CreateTenant", mock.Anything, mock.Anything).Return(fmt.Errorf("db down"))

	a := &Auth{apiVerifier: testVerifier(), repo: store, logger: &NoOpLogger{}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, "ops@broken.io"))
	rec := httptest.NewRecorder()

	a.RequireAuth(http.NotFoundHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "db down")
}

func TestRequireAuth_RejectsBadCredentials(t *testing.T) {
	a := &Auth{apiVerifier: testVerifier(), verifier: testVerifier(), repo: new(MockTenantStore)}

	t.Run("malformed bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		a.RequireAuth(http.NotFoundHandler()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("no credentials redirects to login", func(t *testing.T) {
		rec := httptest.NewRecorder()
		a.RequireAuth(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("email without domain", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+fakeToken(t, "nobody"))
		rec := httptest.NewRecorder()
		a.RequireAuth(http.NotFoundHandler()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogoutHandler_ClearsCookie(t *testing.T) {
	a := &Auth{}
	rec := httptest.NewRecorder()
	a.LogoutHandler(rec, httptest.NewRequest(http.MethodGet, "/logout", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, idTokenCookie, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestLoginHandler_RequestsLoginScopes(t *testing.T) {
	var issuer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":                 issuer,
			"authorization_endpoint": issuer + "/authorize",
			"token_endpoint":         issuer + "/token",
			"jwks_uri":               issuer + "/keys",
		})
	}))
	defer srv.Close()
	issuer = srv.URL

	cfg := &config.Config{Environment: "PROD"}
	cfg.Auth.OktaDomain = issuer
	cfg.Auth.ClientID = testClientID
	cfg.Auth.ClientSecret = "secret"
	cfg.Auth.RedirectURL = "http://localhost/callback"
	a, err := New(context.Background(), cfg, new(MockTenantStore), &NoOpLogger{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.LoginHandler(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/authorize", loc.Path)
	assert.Equal(t, strings.Join(LoginScopes, " "), loc.Query().Get("scope"))
	assert.Equal(t, testClientID, loc.Query().Get("client_id"))
}
