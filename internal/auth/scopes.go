package auth

const (
	ScopeOpenID  = "openid"
	ScopeProfile = "profile"
	ScopeEmail   = "email"
)

// LoginScopes are requested on the authorization redirect. The email claim
// selects the caller's tenant.
var LoginScopes = []string{ScopeOpenID, ScopeProfile, ScopeEmail}

// DevTenantDomain is the tenant domain used when authentication is bypassed.
const DevTenantDomain = "localhost"
