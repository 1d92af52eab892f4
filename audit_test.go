package goEnroll

import (
	"context"
	"errors"
	"testing"
)

func drainEvents(sink *ChannelSink) []AuditEvent {
	var out []AuditEvent
	for {
		select {
		case ev := <-sink.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func findEvent(events []AuditEvent, eventType string) (AuditEvent, bool) {
	for _, ev := range events {
		if ev.Type == eventType {
			return ev, true
		}
	}
	return AuditEvent{}, false
}

func TestAuditRecordsEnrollmentFlow(t *testing.T) {
	sink := NewChannelSink(256)
	env := newTestEnv(t, nil, sink)
	e := env.engine

	admin := seedAdmin(t, e)
	_, cs := createClass(t, e, admin, "Yoga", 1)
	_, a := registerUser(t, e, "a@x.com")
	_, b := registerUser(t, e, "b@x.com")

	ctx := WithRequestID(WithClientIP(context.Background(), "198.51.100.4"), "req-1")
	if _, err := e.JoinClass(ctx, a, cs.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := e.JoinClass(ctx, b, cs.ID); !errors.Is(err, ErrNoCapacity) {
		t.Fatalf("expected ErrNoCapacity, got %v", err)
	}
	e.Close()

	events := drainEvents(sink)
	for _, want := range []string{auditEventAdminSeeded, auditEventCourseCreate, auditEventClassCreate, auditEventRegister, auditEventLogin} {
		if _, ok := findEvent(events, want); !ok {
			t.Fatalf("missing %s event in %d events", want, len(events))
		}
	}

	var joins []AuditEvent
	for _, ev := range events {
		if ev.Type == auditEventClassJoin {
			joins = append(joins, ev)
		}
	}
	if len(joins) != 2 {
		t.Fatalf("expected 2 join events, got %d", len(joins))
	}
	ok, full := joins[0], joins[1]
	if !ok.Success || ok.Resource != auditResourceClass || ok.IP != "198.51.100.4" || ok.RequestID != "req-1" {
		t.Fatalf("unexpected successful join event %+v", ok)
	}
	if full.Success || full.Error != string(auditErrNoCapacity) {
		t.Fatalf("unexpected failed join event %+v", full)
	}
	if ok.ID == "" || ok.ID == full.ID {
		t.Fatal("expected unique event ids")
	}
}

func TestAuditRecordsAccessDenied(t *testing.T) {
	sink := NewChannelSink(64)
	env := newTestEnv(t, nil, sink)
	e := env.engine
	_, user := registerUser(t, e, "a@x.com")

	if err := e.DeleteCourse(context.Background(), user, 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	e.Close()

	ev, ok := findEvent(drainEvents(sink), auditEventAccessDenied)
	if !ok {
		t.Fatal("missing access_denied event")
	}
	if ev.Metadata["operation"] != "delete_course" || ev.Metadata["role"] != "user" || ev.Error != string(auditErrForbidden) {
		t.Fatalf("unexpected access_denied event %+v", ev)
	}
}

func TestAuditRecordsRefreshReuse(t *testing.T) {
	sink := NewChannelSink(64)
	env := newTestEnv(t, nil, sink)
	e := env.engine
	pair, _ := registerUser(t, e, "a@x.com")
	ctx := context.Background()

	if _, err := e.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("expected ErrRefreshReuse, got %v", err)
	}
	e.Close()

	ev, ok := findEvent(drainEvents(sink), auditEventRefreshReuse)
	if !ok {
		t.Fatal("missing refresh reuse event")
	}
	if ev.Success || ev.Metadata["session_id"] == "" {
		t.Fatalf("unexpected reuse event %+v", ev)
	}
}

func TestAuditDisabledByDefault(t *testing.T) {
	e := newTestEngine(t)
	registerUser(t, e, "a@x.com")
	if e.audit != nil {
		t.Fatal("expected no dispatcher when audit is disabled")
	}
	if e.AuditDropped() != 0 {
		t.Fatal("expected zero dropped events")
	}
}

func TestAuditErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{validationError("email", "bad"), auditErrValidation},
		{ErrCourseNotFound, auditErrNotFound},
		{ErrAlreadyEnrolled, auditErrAlreadyIn},
		{ErrNotEnrolled, auditErrNotIn},
		{ErrDuplicateEmail, auditErrDuplicate},
		{ErrNoCapacity, auditErrNoCapacity},
		{ErrInvalidCredentials, auditErrCredentials},
		{ErrRefreshReuse, auditErrReuse},
		{ErrTokenExpired, auditErrUnauthorized},
		{ErrAdminRequired, auditErrForbidden},
		{ErrRateLimited, auditErrRateLimited},
		{errors.New("boom"), auditErrInternal},
	}
	for _, tc := range tests {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
