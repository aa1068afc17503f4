package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"kinship.dev/internal/audit"
	"kinship.dev/internal/identity"
)

type createAccessCodeRequest struct {
	Name           string     `json:"name"`
	Code           string     `json:"code"`
	RoleID         string     `json:"roleId"`
	ExpireDate     *time.Time `json:"expireDate"`
	OrganizationID string     `json:"organizationId"`
}

type updateRolePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// accessCodeResponse never carries the stored hash.
type accessCodeResponse struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organizationId"`
	Name           string     `json:"name"`
	RoleID         string     `json:"roleId"`
	ExpireDate     *time.Time `json:"expireDate,omitempty"`
	IsActive       bool       `json:"isActive"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func accessCodePayload(code *identity.AccessCode) accessCodeResponse {
	resp := accessCodeResponse{
		ID:             code.ID,
		OrganizationID: code.OrganizationID,
		Name:           code.Name,
		RoleID:         code.RoleID,
		IsActive:       code.IsActive,
		CreatedAt:      code.CreatedAt,
	}
	if !code.ExpireDate.IsZero() {
		expire := code.ExpireDate
		resp.ExpireDate = &expire
	}
	return resp
}

// actorOrganization resolves which organization an admin request operates on.
// Super-admins may address any tenant; everyone else is pinned to their own.
func actorOrganization(principal identity.Principal, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if principal.IsSuperAdmin {
		if requested == "" {
			return "", fmt.Errorf("%w: organization id is required", identity.ErrInvalidInput)
		}
		return requested, nil
	}
	if requested != "" && requested != principal.OrganizationID {
		return "", identity.ErrForbidden
	}
	return principal.OrganizationID, nil
}

func (a *API) handleAccessCodes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listAccessCodes(w, r)
	case http.MethodPost:
		a.createAccessCode(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listAccessCodes(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r) {
		return
	}
	principal, ok := requestPrincipal(w, r)
	if !ok {
		return
	}
	orgID, err := actorOrganization(principal, r.URL.Query().Get("organization_id"))
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}

	codes, err := a.identity.ListAccessCodes(r.Context(), orgID)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	items := make([]accessCodeResponse, 0, len(codes))
	for _, code := range codes {
		items = append(items, accessCodePayload(code))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) createAccessCode(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r) {
		return
	}
	principal, ok := requestPrincipal(w, r)
	if !ok {
		return
	}
	var req createAccessCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	orgID, err := actorOrganization(principal, req.OrganizationID)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}

	var expire time.Time
	if req.ExpireDate != nil {
		expire = *req.ExpireDate
	}
	code, err := a.identity.CreateAccessCode(r.Context(), orgID, req.Name, req.Code, req.RoleID, expire)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "access_code.create", map[string]any{
		"access_code_id":  code.ID,
		"organization_id": orgID,
		"name":            code.Name,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/access-codes/%s", code.ID))
	writeJSON(w, http.StatusCreated, accessCodePayload(code))
}

func (a *API) handleAccessCodeResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/access-codes/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if !a.ensurePermissions(w, r) {
		return
	}
	principal, ok := requestPrincipal(w, r)
	if !ok {
		return
	}

	if err := a.identity.DeactivateAccessCode(r.Context(), principal, id); err != nil {
		handleIdentityError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "access_code.deactivate", map[string]any{
		"access_code_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRoleResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/roles/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1:
		a.deleteRole(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "permissions":
		a.updateRolePermissions(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) deleteRole(w http.ResponseWriter, r *http.Request, roleID string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if !a.ensurePermissions(w, r) {
		return
	}
	principal, ok := requestPrincipal(w, r)
	if !ok {
		return
	}

	if err := a.identity.DeleteRole(r.Context(), principal, roleID); err != nil {
		handleIdentityError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "role.delete", map[string]any{
		"role_id": roleID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) updateRolePermissions(w http.ResponseWriter, r *http.Request, roleID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if !a.ensurePermissions(w, r) {
		return
	}
	var req updateRolePermissionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.identity.SetRolePermissions(r.Context(), roleID, req.Permissions); err != nil {
		handleIdentityError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "role.permissions.update", map[string]any{
		"role_id": roleID,
		"count":   len(req.Permissions),
	})
	w.WriteHeader(http.StatusNoContent)
}
