package storage

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JoinClass gives userID a seat in classID. The membership insert and the
// counter decrement commit together or not at all.
//
// Checks run in this order: user exists, class exists, not already a member,
// a seat is left. The decrement is guarded by available_spots > 0, so two
// transactions racing for the last seat cannot both succeed.
func (s *Store) JoinClass(ctx context.Context, userID, classID uint) (ClassSession, error) {
	var out ClassSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := userExists(tx, userID); err != nil {
			return err
		}
		if err := lockClassSession(tx, &out, "id = ?", classID); err != nil {
			return err
		}

		member, err := isMember(tx, userID, classID)
		if err != nil {
			return err
		}
		if member {
			return ErrAlreadyMember
		}
		if out.AvailableSpots <= 0 {
			return ErrNoCapacity
		}

		res := tx.Model(&ClassSession{}).
			Where("id = ? AND available_spots > 0", classID).
			Update("available_spots", gorm.Expr("available_spots - 1"))
		if res.Error != nil {
			return fmt.Errorf("take seat: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNoCapacity
		}

		m := Membership{UserID: userID, ClassSessionID: classID}
		if err := tx.Omit(clause.Associations).Create(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyMember
			}
			return fmt.Errorf("create membership: %w", err)
		}

		return tx.First(&out, classID).Error
	})
	if err != nil {
		return ClassSession{}, err
	}
	return out, nil
}

// LeaveClass releases userID's seat in classID. The membership delete and the
// counter increment commit together. The increment never pushes the counter
// past total_max_spots.
func (s *Store) LeaveClass(ctx context.Context, userID, classID uint) (ClassSession, error) {
	var out ClassSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := userExists(tx, userID); err != nil {
			return err
		}
		if err := lockClassSession(tx, &out, "id = ?", classID); err != nil {
			return err
		}

		res := tx.Where("user_id = ? AND class_session_id = ?", userID, classID).Delete(&Membership{})
		if res.Error != nil {
			return fmt.Errorf("delete membership: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotMember
		}

		ok, err := releaseSeat(tx, classID)
		if err != nil {
			return err
		}
		if !ok {
			log.Printf("goEnroll/storage: class session %d already at its ceiling on leave by user %d", classID, userID)
		}

		return tx.First(&out, classID).Error
	})
	if err != nil {
		return ClassSession{}, err
	}
	return out, nil
}

// IsMember reports whether userID holds a seat in classID.
func (s *Store) IsMember(ctx context.Context, userID, classID uint) (bool, error) {
	return isMember(s.db.WithContext(ctx), userID, classID)
}

// Members returns the users holding a seat in classID, in join order.
func (s *Store) Members(ctx context.Context, classID uint) ([]User, error) {
	var out []User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cs ClassSession
		if err := tx.Select("id").First(&cs, classID).Error; err != nil {
			return notFound(err, ErrClassNotFound, "get class session")
		}
		err := tx.Model(&User{}).
			Joins("JOIN class_memberships ON class_memberships.user_id = users.id").
			Where("class_memberships.class_session_id = ?", classID).
			Order("class_memberships.created_at, users.id").
			Find(&out).Error
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EnrollmentsForUser returns the class sessions userID holds seats in, each
// with its course name, in join order.
func (s *Store) EnrollmentsForUser(ctx context.Context, userID uint) ([]Enrollment, error) {
	var out []Enrollment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := userExists(tx, userID); err != nil {
			return err
		}
		err := tx.Table("class_memberships").
			Select("class_sessions.*, courses.name AS course_name, class_memberships.created_at AS joined_at").
			Joins("JOIN class_sessions ON class_sessions.id = class_memberships.class_session_id").
			Joins("JOIN courses ON courses.id = class_sessions.course_id").
			Where("class_memberships.user_id = ?", userID).
			Order("class_memberships.created_at, class_sessions.id").
			Scan(&out).Error
		if err != nil {
			return fmt.Errorf("list enrollments: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CoursesForUser returns the courses in which userID holds at least one class
// seat. Course membership is derived; it is never stored.
func (s *Store) CoursesForUser(ctx context.Context, userID uint) ([]Course, error) {
	var out []Course
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := userExists(tx, userID); err != nil {
			return err
		}
		sub := tx.Table("class_sessions").
			Select("class_sessions.course_id").
			Joins("JOIN class_memberships ON class_memberships.class_session_id = class_sessions.id").
			Where("class_memberships.user_id = ?", userID)
		if err := tx.Where("id IN (?)", sub).Order("id").Find(&out).Error; err != nil {
			return fmt.Errorf("list courses for user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func userExists(tx *gorm.DB, userID uint) error {
	var u User
	if err := tx.Select("id").First(&u, userID).Error; err != nil {
		return notFound(err, ErrUserNotFound, "get user")
	}
	return nil
}

func isMember(tx *gorm.DB, userID, classID uint) (bool, error) {
	var count int64
	err := tx.Model(&Membership{}).
		Where("user_id = ? AND class_session_id = ?", userID, classID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return count > 0, nil
}

// releaseSeat adds one seat back to classID unless it is already at its
// ceiling. It reports whether the counter moved.
func releaseSeat(tx *gorm.DB, classID uint) (bool, error) {
	res := tx.Model(&ClassSession{}).
		Where("id = ? AND available_spots < total_max_spots", classID).
		Update("available_spots", gorm.Expr("available_spots + 1"))
	if res.Error != nil {
		return false, fmt.Errorf("release seat: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
