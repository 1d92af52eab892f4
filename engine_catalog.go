package goEnroll

import (
	"context"
	"strconv"

	"github.com/MrEthical07/goEnroll/storage"
)

// ListCourses returns every course with its class count and the total of
// available spots across its class sessions. It needs no identity.
func (e *Engine) ListCourses(ctx context.Context) ([]CourseSummary, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	rows, err := e.store.ListCourses(ctx)
	if err != nil {
		return nil, mapStoreError("list courses", err)
	}
	out := make([]CourseSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, CourseSummary{
			Course: Course{
				ID:          r.ID,
				Name:        r.Name,
				Description: r.Description,
				CreatedAt:   r.CreatedAt,
				UpdatedAt:   r.UpdatedAt,
			},
			ClassCount:     r.ClassCount,
			AvailableSpots: r.AvailableSpots,
		})
	}
	return out, nil
}

// GetCourse returns one course. It needs no identity.
func (e *Engine) GetCourse(ctx context.Context, courseID uint) (Course, error) {
	if err := e.ready(); err != nil {
		return Course{}, err
	}

	c, err := e.store.CourseByID(ctx, courseID)
	if err != nil {
		return Course{}, mapStoreError("get course", err)
	}
	return courseFromModel(c), nil
}

// ListClassSessions returns the class sessions of a course to any
// authenticated caller.
func (e *Engine) ListClassSessions(ctx context.Context, id *Identity, courseID uint) ([]ClassSession, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	rows, err := e.store.ClassSessionsByCourse(ctx, courseID)
	if err != nil {
		return nil, mapStoreError("list class sessions", err)
	}
	out := make([]ClassSession, 0, len(rows))
	for _, cs := range rows {
		out = append(out, classFromModel(cs))
	}
	return out, nil
}

// CreateCourse adds a course. Names are unique.
func (e *Engine) CreateCourse(ctx context.Context, id *Identity, in CourseInput) (Course, error) {
	if err := e.ready(); err != nil {
		return Course{}, err
	}
	if err := e.authorize(ctx, id, RoleAdmin, "create_course"); err != nil {
		return Course{}, err
	}

	in, err := in.normalized()
	if err != nil {
		return Course{}, err
	}

	model := storage.Course{Name: in.Name, Description: in.Description}
	if err := e.store.CreateCourse(ctx, &model); err != nil {
		err = mapStoreError("create course", err)
		e.emitAudit(ctx, auditEventCourseCreate, auditTarget{userID: id.UserID, resource: auditResourceCourse}, err, nil)
		return Course{}, err
	}

	e.metricInc(MetricCourseCreated)
	e.emitAudit(ctx, auditEventCourseCreate, auditTarget{userID: id.UserID, resource: auditResourceCourse, resourceID: model.ID}, nil, nil)
	return courseFromModel(model), nil
}

// UpdateCourse applies the non-nil fields of patch to courseID.
func (e *Engine) UpdateCourse(ctx context.Context, id *Identity, courseID uint, patch CoursePatch) (Course, error) {
	if err := e.ready(); err != nil {
		return Course{}, err
	}
	if err := e.authorize(ctx, id, RoleAdmin, "update_course"); err != nil {
		return Course{}, err
	}

	patch, err := patch.normalized()
	if err != nil {
		return Course{}, err
	}

	model, err := e.store.UpdateCourse(ctx, courseID, storage.CourseUpdate{
		Name:        patch.Name,
		Description: patch.Description,
	})
	target := auditTarget{userID: id.UserID, resource: auditResourceCourse, resourceID: courseID}
	if err != nil {
		err = mapStoreError("update course", err)
		e.emitAudit(ctx, auditEventCourseUpdate, target, err, nil)
		return Course{}, err
	}

	e.metricInc(MetricCourseUpdated)
	e.emitAudit(ctx, auditEventCourseUpdate, target, nil, nil)
	return courseFromModel(model), nil
}

// DeleteCourse removes a course together with its class sessions and every
// membership in them.
func (e *Engine) DeleteCourse(ctx context.Context, id *Identity, courseID uint) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.authorize(ctx, id, RoleAdmin, "delete_course"); err != nil {
		return err
	}

	result, err := e.store.DeleteCourse(ctx, courseID)
	target := auditTarget{userID: id.UserID, resource: auditResourceCourse, resourceID: courseID}
	if err != nil {
		err = mapStoreError("delete course", err)
		e.emitAudit(ctx, auditEventCourseDelete, target, err, nil)
		return err
	}

	e.metricInc(MetricCourseDeleted)
	e.emitAudit(ctx, auditEventCourseDelete, target, nil, func() map[string]string {
		return map[string]string{
			"classes":     strconv.FormatInt(result.Classes, 10),
			"memberships": strconv.FormatInt(result.Memberships, 10),
		}
	})
	return nil
}

// CreateClassSession adds a class session to a course. Its AvailableSpots
// becomes the fixed TotalMaxSpots.
func (e *Engine) CreateClassSession(ctx context.Context, id *Identity, courseID uint, in ClassSessionInput) (ClassSession, error) {
	if err := e.ready(); err != nil {
		return ClassSession{}, err
	}
	if err := e.authorize(ctx, id, RoleAdmin, "create_class"); err != nil {
		return ClassSession{}, err
	}

	in, err := in.normalized()
	if err != nil {
		return ClassSession{}, err
	}

	model := storage.ClassSession{
		CourseID:       courseID,
		DayOfWeek:      in.DayOfWeek,
		Time:           in.Time,
		Location:       in.Location,
		Trainer:        in.Trainer,
		AvailableSpots: *in.AvailableSpots,
	}
	if err := e.store.CreateClassSession(ctx, &model); err != nil {
		err = mapStoreError("create class session", err)
		e.emitAudit(ctx, auditEventClassCreate, auditTarget{userID: id.UserID, resource: auditResourceClass}, err, nil)
		return ClassSession{}, err
	}

	e.metricInc(MetricClassCreated)
	e.emitAudit(ctx, auditEventClassCreate, auditTarget{userID: id.UserID, resource: auditResourceClass, resourceID: model.ID}, nil, func() map[string]string {
		return map[string]string{
			"course_id":       strconv.FormatUint(uint64(courseID), 10),
			"total_max_spots": strconv.Itoa(model.TotalMaxSpots),
		}
	})
	return classFromModel(model), nil
}

// UpdateClassSession edits a class session of courseID. A non-nil
// AvailableSpots overrides the seat counter directly and must lie within
// [0, TotalMaxSpots].
func (e *Engine) UpdateClassSession(ctx context.Context, id *Identity, courseID, classID uint, patch ClassSessionPatch) (ClassSession, error) {
	if err := e.ready(); err != nil {
		return ClassSession{}, err
	}
	if err := e.authorize(ctx, id, RoleAdmin, "update_class"); err != nil {
		return ClassSession{}, err
	}

	patch, err := patch.normalized()
	if err != nil {
		return ClassSession{}, err
	}

	model, err := e.store.UpdateClassSession(ctx, courseID, classID, storage.ClassSessionUpdate{
		DayOfWeek:      patch.DayOfWeek,
		Time:           patch.Time,
		Location:       patch.Location,
		Trainer:        patch.Trainer,
		AvailableSpots: patch.AvailableSpots,
	})
	target := auditTarget{userID: id.UserID, resource: auditResourceClass, resourceID: classID}
	if err != nil {
		err = mapStoreError("update class session", err)
		e.emitAudit(ctx, auditEventClassUpdate, target, err, nil)
		return ClassSession{}, err
	}

	e.metricInc(MetricClassUpdated)
	e.emitAudit(ctx, auditEventClassUpdate, target, nil, func() map[string]string {
		if patch.AvailableSpots == nil {
			return nil
		}
		return map[string]string{"available_spots_override": strconv.Itoa(*patch.AvailableSpots)}
	})
	return classFromModel(model), nil
}

// DeleteClassSession removes a class session of courseID and its memberships.
func (e *Engine) DeleteClassSession(ctx context.Context, id *Identity, courseID, classID uint) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.authorize(ctx, id, RoleAdmin, "delete_class"); err != nil {
		return err
	}

	removed, err := e.store.DeleteClassSession(ctx, courseID, classID)
	target := auditTarget{userID: id.UserID, resource: auditResourceClass, resourceID: classID}
	if err != nil {
		err = mapStoreError("delete class session", err)
		e.emitAudit(ctx, auditEventClassDelete, target, err, nil)
		return err
	}

	e.metricInc(MetricClassDeleted)
	e.emitAudit(ctx, auditEventClassDelete, target, nil, func() map[string]string {
		return map[string]string{"memberships": strconv.FormatInt(removed, 10)}
	})
	return nil
}
