package goEnroll

import (
	"context"
	"errors"
	"time"
)

// JoinClass takes one seat in classID for the caller.
//
// Fails with ErrUserNotFound or ErrClassNotFound, then ErrAlreadyEnrolled,
// then ErrNoCapacity, in that order. When several callers race for the last
// seat exactly one succeeds.
func (e *Engine) JoinClass(ctx context.Context, id *Identity, classID uint) (ClassSession, error) {
	if err := e.ready(); err != nil {
		return ClassSession{}, err
	}
	if err := requireIdentity(id); err != nil {
		return ClassSession{}, err
	}

	start := time.Now()
	model, err := e.store.JoinClass(ctx, id.UserID, classID)
	e.observe(MetricJoinLatency, start)

	target := auditTarget{userID: id.UserID, resource: auditResourceClass, resourceID: classID}
	if err != nil {
		err = mapStoreError("join class", err)
		switch {
		case errors.Is(err, ErrNoCapacity):
			e.metricInc(MetricJoinNoCapacity)
		case errors.Is(err, ErrAlreadyEnrolled):
			e.metricInc(MetricJoinAlreadyEnrolled)
		}
		e.emitAudit(ctx, auditEventClassJoin, target, err, nil)
		return ClassSession{}, err
	}

	e.metricInc(MetricJoinSuccess)
	e.emitAudit(ctx, auditEventClassJoin, target, nil, nil)
	return classFromModel(model), nil
}

// LeaveClass gives the caller's seat in classID back.
func (e *Engine) LeaveClass(ctx context.Context, id *Identity, classID uint) (ClassSession, error) {
	if err := e.ready(); err != nil {
		return ClassSession{}, err
	}
	if err := requireIdentity(id); err != nil {
		return ClassSession{}, err
	}

	start := time.Now()
	model, err := e.store.LeaveClass(ctx, id.UserID, classID)
	e.observe(MetricLeaveLatency, start)

	target := auditTarget{userID: id.UserID, resource: auditResourceClass, resourceID: classID}
	if err != nil {
		err = mapStoreError("leave class", err)
		if errors.Is(err, ErrNotEnrolled) {
			e.metricInc(MetricLeaveNotEnrolled)
		}
		e.emitAudit(ctx, auditEventClassLeave, target, err, nil)
		return ClassSession{}, err
	}

	e.metricInc(MetricLeaveSuccess)
	e.emitAudit(ctx, auditEventClassLeave, target, nil, nil)
	return classFromModel(model), nil
}

// ListMembers returns the users holding a seat in classID. Admin only.
func (e *Engine) ListMembers(ctx context.Context, id *Identity, classID uint) ([]User, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.authorize(ctx, id, RoleAdmin, "list_members"); err != nil {
		return nil, err
	}

	rows, err := e.store.Members(ctx, classID)
	if err != nil {
		return nil, mapStoreError("list members", err)
	}
	out := make([]User, 0, len(rows))
	for _, u := range rows {
		out = append(out, userFromModel(u))
	}
	return out, nil
}

// MyEnrollments returns the class sessions the caller holds seats in, in the
// order they were joined.
func (e *Engine) MyEnrollments(ctx context.Context, id *Identity) ([]Enrollment, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	rows, err := e.store.EnrollmentsForUser(ctx, id.UserID)
	if err != nil {
		return nil, mapStoreError("list enrollments", err)
	}
	out := make([]Enrollment, 0, len(rows))
	for _, r := range rows {
		out = append(out, Enrollment{
			ClassSession: classFromModel(r.ClassSession),
			CourseName:   r.CourseName,
			JoinedAt:     r.JoinedAt,
		})
	}
	return out, nil
}

// MyCourses returns the courses in which the caller holds at least one class
// seat.
func (e *Engine) MyCourses(ctx context.Context, id *Identity) ([]Course, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	rows, err := e.store.CoursesForUser(ctx, id.UserID)
	if err != nil {
		return nil, mapStoreError("list my courses", err)
	}
	out := make([]Course, 0, len(rows))
	for _, c := range rows {
		out = append(out, courseFromModel(c))
	}
	return out, nil
}
