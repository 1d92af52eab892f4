package goEnroll

import (
	"context"
	"errors"
	"io"
	"strconv"

	internalaudit "github.com/MrEthical07/goEnroll/internal/audit"
)

// AuditEvent is one audit record. See [AuditSink].
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = internalaudit.Sink

type NoOpSink = internalaudit.NoOpSink
type ChannelSink = internalaudit.ChannelSink
type JSONWriterSink = internalaudit.JSONWriterSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink writes one JSON object per event line to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

const (
	auditEventRegister      = "register"
	auditEventLogin         = "login"
	auditEventRefresh       = "refresh"
	auditEventRefreshReuse  = "refresh_reuse_detected"
	auditEventLogout        = "logout"
	auditEventAccountDelete = "account_delete"
	auditEventAdminSeeded   = "admin_seeded"
	auditEventAccessDenied  = "access_denied"
	auditEventCourseCreate  = "course_create"
	auditEventCourseUpdate  = "course_update"
	auditEventCourseDelete  = "course_delete"
	auditEventClassCreate   = "class_create"
	auditEventClassUpdate   = "class_update"
	auditEventClassDelete   = "class_delete"
	auditEventClassJoin     = "class_join"
	auditEventClassLeave    = "class_leave"
	auditEventRateLimitHit  = "rate_limit_triggered"
	auditResourceUser       = "user"
	auditResourceCourse     = "course"
	auditResourceClass      = "class_session"
	auditResourceSession    = "session"
)

// seatAuditEvents are the event types that change who holds a seat. The
// dispatcher never sheds them on a full buffer.
var seatAuditEvents = []string{auditEventClassJoin, auditEventClassLeave, auditEventAccountDelete}

// AuditErrorCode is the stable error string recorded in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrValidation   AuditErrorCode = "validation"
	auditErrNotFound     AuditErrorCode = "not_found"
	auditErrDuplicate    AuditErrorCode = "duplicate"
	auditErrAlreadyIn    AuditErrorCode = "already_enrolled"
	auditErrNotIn        AuditErrorCode = "not_enrolled"
	auditErrNoCapacity   AuditErrorCode = "no_capacity"
	auditErrCredentials  AuditErrorCode = "invalid_credentials"
	auditErrReuse        AuditErrorCode = "refresh_reuse"
	auditErrUnauthorized AuditErrorCode = "unauthorized"
	auditErrForbidden    AuditErrorCode = "forbidden"
	auditErrRateLimited  AuditErrorCode = "rate_limited"
	auditErrInternal     AuditErrorCode = "internal_error"
)

type auditTarget struct {
	userID     uint
	resource   string
	resourceID uint
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, target auditTarget, err error, metadataBuilder func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := internalaudit.NewEvent(eventType, err == nil)
	if target.userID != 0 {
		event.UserID = strconv.FormatUint(uint64(target.userID), 10)
	}
	event.Resource = target.resource
	if target.resourceID != 0 {
		event.ResourceID = strconv.FormatUint(uint64(target.resourceID), 10)
	}
	event.IP = clientIPFromContext(ctx)
	event.RequestID = requestIDFromContext(ctx)
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}
	if metadataBuilder != nil {
		event.Metadata = metadataBuilder()
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope string) {
	e.emitAudit(ctx, auditEventRateLimitHit, auditTarget{}, ErrRateLimited, func() map[string]string {
		return map[string]string{"scope": scope}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrAlreadyEnrolled):
		return auditErrAlreadyIn
	case errors.Is(err, ErrNotEnrolled):
		return auditErrNotIn
	case errors.Is(err, ErrConflict):
		return auditErrDuplicate
	case errors.Is(err, ErrNoCapacity):
		return auditErrNoCapacity
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrCredentials
	case errors.Is(err, ErrRefreshReuse):
		return auditErrReuse
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	default:
		return auditErrInternal
	}
}
