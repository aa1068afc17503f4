package audit

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"kinship.dev/internal/identity"
	"kinship.dev/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit
// logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the audit request id from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry enriched with request and principal context.
// Secret material (tokens, codes, passwords) must never appear in fields.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}

	zfields := []zap.Field{
		zap.String("type", "audit"),
		zap.String("event", event),
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		zfields = append(zfields, zap.String("request_id", rid))
	}
	if principal, ok := identity.PrincipalFromContext(ctx); ok {
		zfields = append(zfields, zap.String("principal_kind", string(principal.Kind)))
		switch principal.Kind {
		case identity.KindUser:
			zfields = append(zfields, zap.String("user_id", principal.Subject))
		case identity.KindAccessCode:
			zfields = append(zfields, zap.String("access_code_id", principal.AccessCodeID))
		}
		if principal.OrganizationID != "" {
			zfields = append(zfields, zap.String("organization_id", principal.OrganizationID))
		}
	}
	if len(fields) > 0 {
		zfields = append(zfields, zap.Any("fields", fields))
	}

	obs.Logger().Info("audit", zfields...)
	return nil
}
