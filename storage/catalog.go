package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateCourse inserts c and fills its id and timestamps.
func (s *Store) CreateCourse(ctx context.Context, c *Course) error {
	if c == nil {
		return errors.New("create course: nil course")
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCourseName
		}
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// CourseByID returns the course with the given id.
func (s *Store) CourseByID(ctx context.Context, id uint) (Course, error) {
	var c Course
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return Course{}, notFound(err, ErrCourseNotFound, "get course")
	}
	return c, nil
}

// ListCourses returns every course ordered by id, each with its class count
// and the sum of available spots across its sessions.
func (s *Store) ListCourses(ctx context.Context) ([]CourseSummary, error) {
	var rows []CourseSummary
	err := s.db.WithContext(ctx).
		Table("courses").
		Select("courses.id, courses.name, courses.description, courses.created_at, courses.updated_at, " +
			"COUNT(class_sessions.id) AS class_count, " +
			"COALESCE(SUM(class_sessions.available_spots), 0) AS available_spots").
		Joins("LEFT JOIN class_sessions ON class_sessions.course_id = courses.id").
		Group("courses.id, courses.name, courses.description, courses.created_at, courses.updated_at").
		Order("courses.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return rows, nil
}

// UpdateCourse applies the non-nil fields of upd to the course.
func (s *Store) UpdateCourse(ctx context.Context, id uint, upd CourseUpdate) (Course, error) {
	var out Course
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, id).Error; err != nil {
			return notFound(err, ErrCourseNotFound, "get course")
		}

		changes := map[string]any{}
		if upd.Name != nil {
			changes["name"] = *upd.Name
		}
		if upd.Description != nil {
			changes["description"] = *upd.Description
		}
		if len(changes) == 0 {
			return nil
		}

		if err := tx.Model(&out).Updates(changes).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateCourseName
			}
			return fmt.Errorf("update course: %w", err)
		}
		return tx.First(&out, id).Error
	})
	if err != nil {
		return Course{}, err
	}
	return out, nil
}

// DeleteCourse removes the course, its class sessions, and every membership
// that references one of those sessions, in one transaction.
func (s *Store) DeleteCourse(ctx context.Context, id uint) (CascadeResult, error) {
	var result CascadeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Course
		if err := tx.First(&c, id).Error; err != nil {
			return notFound(err, ErrCourseNotFound, "get course")
		}

		var classIDs []uint
		if err := tx.Model(&ClassSession{}).Where("course_id = ?", id).Pluck("id", &classIDs).Error; err != nil {
			return fmt.Errorf("list class sessions: %w", err)
		}

		if len(classIDs) > 0 {
			res := tx.Where("class_session_id IN ?", classIDs).Delete(&Membership{})
			if res.Error != nil {
				return fmt.Errorf("delete memberships: %w", res.Error)
			}
			result.Memberships = res.RowsAffected

			res = tx.Where("course_id = ?", id).Delete(&ClassSession{})
			if res.Error != nil {
				return fmt.Errorf("delete class sessions: %w", res.Error)
			}
			result.Classes = res.RowsAffected
		}

		if err := tx.Delete(&Course{}, id).Error; err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
		return nil
	})
	if err != nil {
		return CascadeResult{}, err
	}
	return result, nil
}

// CreateClassSession inserts cs under its course. The capacity ceiling is
// taken from AvailableSpots and never changes afterwards.
func (s *Store) CreateClassSession(ctx context.Context, cs *ClassSession) error {
	if cs == nil {
		return errors.New("create class session: nil class session")
	}
	if cs.AvailableSpots < 0 {
		return ErrSpotsOutOfRange
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Course
		if err := tx.Select("id").First(&c, cs.CourseID).Error; err != nil {
			return notFound(err, ErrCourseNotFound, "get course")
		}
		cs.ID = 0
		cs.TotalMaxSpots = cs.AvailableSpots
		if err := tx.Create(cs).Error; err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return ErrCourseNotFound
			}
			return fmt.Errorf("create class session: %w", err)
		}
		return nil
	})
}

// ClassSessionByID returns the class session with the given id.
func (s *Store) ClassSessionByID(ctx context.Context, id uint) (ClassSession, error) {
	var cs ClassSession
	if err := s.db.WithContext(ctx).First(&cs, id).Error; err != nil {
		return ClassSession{}, notFound(err, ErrClassNotFound, "get class session")
	}
	return cs, nil
}

// SeatCounts returns the seat state of every class session ordered by id.
func (s *Store) SeatCounts(ctx context.Context) ([]SeatCount, error) {
	var rows []SeatCount
	err := s.db.WithContext(ctx).
		Table("class_sessions").
		Select("id AS class_id, course_id, available_spots, total_max_spots").
		Order("id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("seat counts: %w", err)
	}
	return rows, nil
}

// ClassSessionsByCourse returns the sessions of a course ordered by id.
func (s *Store) ClassSessionsByCourse(ctx context.Context, courseID uint) ([]ClassSession, error) {
	var out []ClassSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Course
		if err := tx.Select("id").First(&c, courseID).Error; err != nil {
			return notFound(err, ErrCourseNotFound, "get course")
		}
		if err := tx.Where("course_id = ?", courseID).Order("id").Find(&out).Error; err != nil {
			return fmt.Errorf("list class sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateClassSession applies the non-nil fields of upd to the session, which
// must belong to courseID. An AvailableSpots override outside
// [0, total_max_spots] is rejected with ErrSpotsOutOfRange.
func (s *Store) UpdateClassSession(ctx context.Context, courseID, classID uint, upd ClassSessionUpdate) (ClassSession, error) {
	var out ClassSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockClassSession(tx, &out, "id = ? AND course_id = ?", classID, courseID); err != nil {
			return err
		}

		changes := map[string]any{}
		if upd.DayOfWeek != nil {
			changes["day_of_week"] = *upd.DayOfWeek
		}
		if upd.Time != nil {
			changes["time"] = *upd.Time
		}
		if upd.Location != nil {
			changes["location"] = *upd.Location
		}
		if upd.Trainer != nil {
			changes["trainer"] = *upd.Trainer
		}
		if upd.AvailableSpots != nil {
			spots := *upd.AvailableSpots
			if spots < 0 || spots > out.TotalMaxSpots {
				return ErrSpotsOutOfRange
			}
			changes["available_spots"] = spots
		}
		if len(changes) == 0 {
			return nil
		}

		if err := tx.Model(&out).Updates(changes).Error; err != nil {
			return fmt.Errorf("update class session: %w", err)
		}
		return tx.First(&out, classID).Error
	})
	if err != nil {
		return ClassSession{}, err
	}
	return out, nil
}

// DeleteClassSession removes the session, which must belong to courseID,
// after clearing its memberships. It returns how many memberships went with it.
func (s *Store) DeleteClassSession(ctx context.Context, courseID, classID uint) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cs ClassSession
		if err := lockClassSession(tx, &cs, "id = ? AND course_id = ?", classID, courseID); err != nil {
			return err
		}

		res := tx.Where("class_session_id = ?", classID).Delete(&Membership{})
		if res.Error != nil {
			return fmt.Errorf("delete memberships: %w", res.Error)
		}
		removed = res.RowsAffected

		if err := tx.Delete(&ClassSession{}, classID).Error; err != nil {
			return fmt.Errorf("delete class session: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// lockClassSession loads one class session row FOR UPDATE. Dialects without
// row locks ignore the clause.
func lockClassSession(tx *gorm.DB, dst *ClassSession, query string, args ...any) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where(query, args...).First(dst).Error
	if err != nil {
		return notFound(err, ErrClassNotFound, "get class session")
	}
	return nil
}
