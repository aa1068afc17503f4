package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"kinship.dev/internal/identity"
	"kinship.dev/internal/obs"
)

const (
	authHeader       = "Authorization"
	bearerScheme     = "Bearer "
	accessCodeHeader = "X-Access-Code"
	orgIDHeader      = "X-Organization-Id"
	orgCodeHeader    = "X-Organization-Code"
)

var errMissingOrgHeader = errors.New("organization id or code header is required with an access code")

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/refresh",
	"/v1/auth/password-reset",
	"/v1/auth/password-reset/confirm",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// withAuth resolves the request principal. A bearer access token is tried
// first; when it is absent or fails, an organization access code presented in
// headers is tried next. Neither succeeding yields a single generic 401 that
// does not reveal which path was attempted.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.identity == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()

		if token, err := extractBearerToken(r.Header.Get(authHeader)); err == nil {
			principal, err := a.identity.AuthenticateToken(ctx, token)
			if err == nil {
				ctx = identity.ContextWithPrincipal(ctx, principal)
				ctx = identity.ContextWithToken(ctx, token)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		if code := strings.TrimSpace(r.Header.Get(accessCodeHeader)); code != "" {
			orgID := strings.TrimSpace(r.Header.Get(orgIDHeader))
			orgCode := strings.TrimSpace(r.Header.Get(orgCodeHeader))
			if orgID == "" && orgCode == "" {
				writeError(w, r, http.StatusBadRequest, errMissingOrgHeader.Error())
				return
			}
			principal, err := a.identity.ValidateAccessCode(ctx, code, orgID, orgCode)
			if err == nil {
				ctx = identity.ContextWithPrincipal(ctx, principal)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		writeError(w, r, http.StatusUnauthorized, "No valid authentication")
	})
}

// routePermissions maps each guarded operation, keyed by method plus
// canonical path, to the permission keys a principal must hold. Operations
// absent from the table require authentication only.
var routePermissions = map[string][]string{
	"GET /v1/access-codes":          {identity.PermAccessCodeView},
	"POST /v1/access-codes":         {identity.PermAccessCodeEdit},
	"DELETE /v1/access-codes/:id":   {identity.PermAccessCodeEdit},
	"DELETE /v1/roles/:id":          {identity.PermRoleEdit},
	"PUT /v1/roles/:id/permissions": {identity.PermRoleEdit},
}

// ensurePermissions evaluates the principal's grants against the operation's
// routePermissions entry and writes the failure response itself. Handlers
// bail out when it returns false.
func (a *API) ensurePermissions(w http.ResponseWriter, r *http.Request) bool {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "No valid authentication")
		return false
	}
	required := routePermissions[r.Method+" "+obs.CanonicalPath(r.URL.Path)]
	if err := a.identity.Authorize(r.Context(), principal, required); err != nil {
		handleIdentityError(w, r, err)
		return false
	}
	return true
}

// requestPrincipal returns the authenticated principal or writes a 401.
func requestPrincipal(w http.ResponseWriter, r *http.Request) (identity.Principal, bool) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "No valid authentication")
	}
	return principal, ok
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearerScheme)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearerScheme):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
