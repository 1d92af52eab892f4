package storage

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
)

// CreateUser inserts u and fills its id and timestamps.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if u == nil {
		return errors.New("create user: nil user")
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UserByID returns the user with the given id.
func (s *Store) UserByID(ctx context.Context, id uint) (User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return User{}, notFound(err, ErrUserNotFound, "get user")
	}
	return u, nil
}

// UserByEmail returns the user registered under email. The caller normalizes
// the address.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return User{}, notFound(err, ErrUserNotFound, "get user by email")
	}
	return u, nil
}

// UpdatePasswordHash replaces the stored password hash.
func (s *Store) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("password", hash)
	if res.Error != nil {
		return fmt.Errorf("update password hash: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteUser removes the user in one transaction. Every seat the user holds is
// released first, then the membership rows go, then the user row. It returns
// the ids of the class sessions whose seats were released.
func (s *Store) DeleteUser(ctx context.Context, id uint) ([]uint, error) {
	var released []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u User
		if err := tx.First(&u, id).Error; err != nil {
			return notFound(err, ErrUserNotFound, "get user")
		}

		var classIDs []uint
		if err := tx.Model(&Membership{}).Where("user_id = ?", id).
			Order("class_session_id").Pluck("class_session_id", &classIDs).Error; err != nil {
			return fmt.Errorf("list memberships: %w", err)
		}

		for _, classID := range classIDs {
			ok, err := releaseSeat(tx, classID)
			if err != nil {
				return err
			}
			if !ok {
				log.Printf("goEnroll/storage: class session %d already at its ceiling while deleting user %d", classID, id)
			}
		}

		if err := tx.Where("user_id = ?", id).Delete(&Membership{}).Error; err != nil {
			return fmt.Errorf("delete memberships: %w", err)
		}
		if err := tx.Delete(&User{}, id).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		released = classIDs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}
