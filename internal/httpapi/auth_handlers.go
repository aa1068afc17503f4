package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"kinship.dev/internal/audit"
	"kinship.dev/internal/identity"
)

type loginRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	OrganizationCode string `json:"organizationCode"`
	DeviceID         string `json:"deviceId"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	DeviceID     string `json:"deviceId"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
	DeviceID     string `json:"deviceId"`
}

type passwordResetRequest struct {
	Email            string `json:"email"`
	OrganizationCode string `json:"organizationCode"`
}

type passwordResetConfirmRequest struct {
	Email            string `json:"email"`
	Code             string `json:"code"`
	NewPassword      string `json:"newPassword"`
	OrganizationCode string `json:"organizationCode"`
}

type principalResponse struct {
	ID             string   `json:"id"`
	OrganizationID string   `json:"organizationId,omitempty"`
	IsSuperAdmin   bool     `json:"isSuperAdmin,omitempty"`
	Permissions    []string `json:"permissions"`
}

type tokenPairResponse struct {
	AccessToken      string            `json:"accessToken"`
	RefreshToken     string            `json:"refreshToken"`
	AccessExpiresAt  time.Time         `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time         `json:"refreshExpiresAt"`
	DeviceID         string            `json:"deviceId"`
	User             principalResponse `json:"user"`
}

func tokenPairPayload(pair identity.TokenPair, principal identity.Principal, deviceID string) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		DeviceID:         deviceID,
		User: principalResponse{
			ID:             principal.Subject,
			OrganizationID: principal.OrganizationID,
			IsSuperAdmin:   principal.IsSuperAdmin,
			Permissions:    principal.PermissionList(),
		},
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := a.identity.ValidateUser(r.Context(), req.Email, req.Password, req.OrganizationCode)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}

	// Clients that do not manage a device identity get a fresh one; they must
	// present it again to refresh on the same session.
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	pair, principal, err := a.identity.Login(r.Context(), user, deviceID, r.UserAgent(), clientIP(r))
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id":   user.ID,
		"device_id": deviceID,
	})
	writeJSON(w, http.StatusOK, tokenPairPayload(pair, principal, deviceID))
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, r, http.StatusBadRequest, "refreshToken is required")
		return
	}

	pair, principal, err := a.identity.Refresh(r.Context(), req.RefreshToken, req.DeviceID)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}

	deviceID := strings.TrimSpace(req.DeviceID)
	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
		"user_id": principal.Subject,
	})
	writeJSON(w, http.StatusOK, tokenPairPayload(pair, principal, deviceID))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	principal, ok := requestPrincipal(w, r)
	if !ok {
		return
	}
	if principal.Kind != identity.KindUser {
		writeError(w, r, http.StatusForbidden, "sessions belong to user principals")
		return
	}
	var req logoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.identity.Logout(r.Context(), principal.Subject, req.RefreshToken, req.DeviceID); err != nil {
		handleIdentityError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	principal, ok := requestPrincipal(w, r)
	if !ok {
		return
	}
	if principal.Kind != identity.KindUser {
		writeError(w, r, http.StatusForbidden, "sessions belong to user principals")
		return
	}

	if err := a.identity.LogoutAll(r.Context(), principal.Subject); err != nil {
		handleIdentityError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.logout_all", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req passwordResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, r, http.StatusBadRequest, "email is required")
		return
	}

	// The response is identical whether or not the email matched an account.
	if err := a.identity.RequestPasswordReset(r.Context(), req.Email, req.OrganizationCode); err != nil {
		if errors.Is(err, identity.ErrInvalidInput) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "password reset failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.password_reset.requested", nil)
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "ok"})
}

func (a *API) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req passwordResetConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Code) == "" || req.NewPassword == "" {
		writeError(w, r, http.StatusBadRequest, "email, code and newPassword are required")
		return
	}

	err := a.identity.ConfirmPasswordReset(r.Context(), req.Email, req.Code, req.NewPassword, req.OrganizationCode)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.password_reset.confirmed", nil)
	w.WriteHeader(http.StatusNoContent)
}
